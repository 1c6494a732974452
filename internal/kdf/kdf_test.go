package kdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgon2idDeriveDeterministic(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt := make([]byte, 16)
	for i := range salt {
		salt[i] = byte(i)
	}

	a := Argon2idDerive(password, salt)
	b := Argon2idDerive(password, salt)

	assert.Equal(t, a, b)
	assert.Len(t, a, int(Argon2KeyLen))
}

func TestArgon2idDeriveDiffersBySalt(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt1 := make([]byte, 16)
	salt2 := make([]byte, 16)
	salt2[0] = 1

	a := Argon2idDerive(password, salt1)
	b := Argon2idDerive(password, salt2)

	assert.NotEqual(t, a, b)
}

func TestPBKDF2DeriveDeterministic(t *testing.T) {
	password := []byte("hunter2")
	salt := []byte("some-salt-bytes-0123456789")

	a := PBKDF2Derive(password, salt, 1000, SHA256, 32)
	b := PBKDF2Derive(password, salt, 1000, SHA256, 32)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestPBKDF2DeriveHashKindMatters(t *testing.T) {
	password := []byte("hunter2")
	salt := []byte("some-salt-bytes-0123456789")

	a := PBKDF2Derive(password, salt, 1000, SHA256, 32)
	b := PBKDF2Derive(password, salt, 1000, SHA512, 32)

	assert.NotEqual(t, a, b)
}

func TestDomainSeparatedSalt(t *testing.T) {
	salt := []byte("0123456789abcdef")
	out := DomainSeparatedSalt(salt)

	assert.Equal(t, "BASTION_VAULT_V1::", string(out[:len(DomainSeparatorV1)]))
	assert.Equal(t, salt, out[len(DomainSeparatorV1):])
}
