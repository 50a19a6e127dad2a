package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HandleSize is the size of an opaque ciphertext handle in bytes.
const HandleSize = 32

// Handle is an opaque reference to an encrypted value. The coordinator never
// inspects the plaintext behind a handle; it only passes handles to the
// scheme's combine/compare operations and to the disclosure oracle.
type Handle [HandleSize]byte

// NewHandleFromBytes creates a Handle from a byte slice.
func NewHandleFromBytes(data []byte) (Handle, error) {
	var h Handle
	if len(data) != HandleSize {
		return h, fmt.Errorf("handle must be %d bytes, got %d", HandleSize, len(data))
	}
	copy(h[:], data)
	return h, nil
}

// NewHandleFromString creates a Handle from a hex-encoded string.
func NewHandleFromString(data string) (Handle, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return Handle{}, err
	}
	return NewHandleFromBytes(raw)
}

// Bytes returns the handle as a byte slice.
func (h Handle) Bytes() []byte {
	return h[:]
}

// String returns the hex encoding of the handle.
func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the handle is the all-zero placeholder, used for
// uninitialized per-batch aggregates.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// MarshalJSON encodes the handle as a hex string.
func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into the handle.
func (h *Handle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewHandleFromString(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Field identifies one of the three tracked aggregate dimensions.
type Field int

const (
	FieldWeapon Field = iota
	FieldRoom
	FieldSuspect
)

// Fields returns the tracked fields in canonical order. Commitments and wire
// encodings always follow this order.
func Fields() []Field {
	return []Field{FieldWeapon, FieldRoom, FieldSuspect}
}

// String returns the field name.
func (f Field) String() string {
	switch f {
	case FieldWeapon:
		return "weapon"
	case FieldRoom:
		return "room"
	case FieldSuspect:
		return "suspect"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Contribution is a participant's opaque value for each tracked field.
// The same shape is used for submissions and for accusation guesses.
type Contribution struct {
	Weapon  Handle `json:"weapon"`
	Room    Handle `json:"room"`
	Suspect Handle `json:"suspect"`
}

// Get returns the handle for the given field.
func (c Contribution) Get(f Field) Handle {
	switch f {
	case FieldWeapon:
		return c.Weapon
	case FieldRoom:
		return c.Room
	case FieldSuspect:
		return c.Suspect
	}
	return Handle{}
}

// Set stores the handle for the given field.
func (c *Contribution) Set(f Field, h Handle) {
	switch f {
	case FieldWeapon:
		c.Weapon = h
	case FieldRoom:
		c.Room = h
	case FieldSuspect:
		c.Suspect = h
	}
}

// Handles returns the contribution's handles in canonical field order.
func (c Contribution) Handles() []Handle {
	return []Handle{c.Weapon, c.Room, c.Suspect}
}
