// Package serial implements the vault engine's canonical serializer
// and frame/pad layer (§4.4). The encoding is hand-rolled rather than
// delegated to encoding/json because the spec requires exact,
// reproducible field ordering and zero incidental whitespace — byte
// reproducibility is the whole point, and a general-purpose JSON
// encoder does not guarantee field order for maps or structs across
// versions of the standard library.
package serial

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"

	"github.com/bastion-vault/bastion/internal/vaultstate"
)

// ErrCorruptFrame is returned when a framed length field does not fit
// within the decrypted payload.
var ErrCorruptFrame = errors.New("serial: corrupt frame")

// FrameAlignment is the byte boundary every framed payload is padded
// to.
const FrameAlignment = 64

// CanonicalSerialize emits state as UTF-8 JSON-like text with root
// fields in the fixed order required by §4.4, and each element of
// configs/notes/contacts/locker re-ordered per its own fixed schema.
// Two states that are equal as logical records always produce
// identical bytes.
func CanonicalSerialize(s *vaultstate.State) []byte {
	var b strings.Builder
	b.WriteByte('{')

	writeField(&b, "version", true)
	writeInt(&b, int64(s.Version))
	b.WriteByte(',')

	writeField(&b, "entropy", true)
	writeString(&b, s.Entropy)
	b.WriteByte(',')

	writeField(&b, "flags", true)
	writeInt(&b, int64(s.Flags))
	b.WriteByte(',')

	writeField(&b, "lastModified", true)
	writeInt(&b, s.LastModified)
	b.WriteByte(',')

	writeField(&b, "locker", true)
	writeLocker(&b, s.Locker)
	b.WriteByte(',')

	writeField(&b, "contacts", true)
	writeContacts(&b, s.Contacts)
	b.WriteByte(',')

	writeField(&b, "notes", true)
	writeNotes(&b, s.Notes)
	b.WriteByte(',')

	writeField(&b, "configs", true)
	writeConfigs(&b, s.Configs)

	b.WriteByte('}')
	return []byte(b.String())
}

func writeField(b *strings.Builder, name string, first bool) {
	if !first {
		b.WriteByte(',')
	}
	writeString(b, name)
	b.WriteByte(':')
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

func writeInt(b *strings.Builder, n int64) {
	b.WriteString(strconv.FormatInt(n, 10))
}

func writeBool(b *strings.Builder, v bool) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

func writeConfigs(b *strings.Builder, cs []vaultstate.Config) {
	b.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeConfig(b, c)
	}
	b.WriteByte(']')
}

func writeConfig(b *strings.Builder, c vaultstate.Config) {
	b.WriteByte('{')
	writeField(b, "id", true)
	writeString(b, c.ID)
	writeField(b, "name", false)
	writeString(b, c.Name)
	writeField(b, "username", false)
	writeString(b, c.Username)
	writeField(b, "category", false)
	writeString(b, c.Category)
	writeField(b, "version", false)
	writeInt(b, int64(c.Version))
	writeField(b, "length", false)
	writeInt(b, int64(c.Length))
	writeField(b, "useSymbols", false)
	writeBool(b, c.UseSymbols)
	writeField(b, "customPassword", false)
	writeString(b, c.CustomPassword)
	writeField(b, "breachStats", false)
	writeInt(b, int64(c.BreachStats))
	writeField(b, "compromised", false)
	writeBool(b, c.Compromised)
	writeField(b, "createdAt", false)
	writeInt(b, c.CreatedAt)
	writeField(b, "updatedAt", false)
	writeInt(b, c.UpdatedAt)
	writeField(b, "usageCount", false)
	writeInt(b, int64(c.UsageCount))
	writeField(b, "sortOrder", false)
	writeInt(b, int64(c.SortOrder))
	// Unknown-to-the-base-spec fields are appended sorted
	// lexicographically. totpSecret is the only one today.
	if c.TOTPSecret != "" {
		writeField(b, "totpSecret", false)
		writeString(b, c.TOTPSecret)
	}
	b.WriteByte('}')
}

func writeNotes(b *strings.Builder, ns []vaultstate.Note) {
	b.WriteByte('[')
	for i, n := range ns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		writeField(b, "id", true)
		writeString(b, n.ID)
		writeField(b, "title", false)
		writeString(b, n.Title)
		writeField(b, "body", false)
		writeString(b, n.Body)
		writeField(b, "createdAt", false)
		writeInt(b, n.CreatedAt)
		writeField(b, "updatedAt", false)
		writeInt(b, n.UpdatedAt)
		b.WriteByte('}')
	}
	b.WriteByte(']')
}

func writeContacts(b *strings.Builder, cs []vaultstate.Contact) {
	b.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		writeField(b, "id", true)
		writeString(b, c.ID)
		writeField(b, "name", false)
		writeString(b, c.Name)
		writeField(b, "email", false)
		writeString(b, c.Email)
		writeField(b, "phone", false)
		writeString(b, c.Phone)
		writeField(b, "notes", false)
		writeString(b, c.Notes)
		writeField(b, "createdAt", false)
		writeInt(b, c.CreatedAt)
		writeField(b, "updatedAt", false)
		writeInt(b, c.UpdatedAt)
		b.WriteByte('}')
	}
	b.WriteByte(']')
}

func writeLocker(b *strings.Builder, rs []vaultstate.Resonance) {
	b.WriteByte('[')
	for i, r := range rs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		writeField(b, "id", true)
		writeString(b, r.ID)
		writeField(b, "timestamp", false)
		writeInt(b, r.Timestamp)
		writeField(b, "label", false)
		writeString(b, r.Label)
		writeField(b, "size", false)
		writeInt(b, r.Size)
		writeField(b, "mime", false)
		writeString(b, r.Mime)
		writeField(b, "key", false)
		writeString(b, r.Key)
		writeField(b, "hash", false)
		writeString(b, r.Hash)
		writeField(b, "embedded", false)
		writeBool(b, r.Embedded)
		b.WriteByte('}')
	}
	b.WriteByte(']')
}

// Frame prepends a 4-byte little-endian length and zero-pads the
// result to the next FrameAlignment-byte boundary.
func Frame(payload []byte) []byte {
	total := 4 + len(payload)
	if rem := total % FrameAlignment; rem != 0 {
		total += FrameAlignment - rem
	}
	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// Deframe reads the length prefix and returns the payload, rejecting
// frames whose declared length does not fit in the buffer.
func Deframe(framed []byte) ([]byte, error) {
	if len(framed) < 4 {
		return nil, ErrCorruptFrame
	}
	length := binary.LittleEndian.Uint32(framed[:4])
	if uint64(length)+4 > uint64(len(framed)) {
		return nil, ErrCorruptFrame
	}
	return framed[4 : 4+length], nil
}
