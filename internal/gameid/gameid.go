// Package gameid generates table ids: a UUIDv7 encoded as 26 characters of
// lowercase Crockford base32, so ids sort by creation time.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32, as used by TypeID
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the size of an encoded id
const Length = 26

// New returns a fresh id. It panics only if the system random source fails.
func New() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// Encode renders a UUID as 26 base32 characters. The 128 bits are left padded
// with two zero bits, so the first character is always 0-7.
func Encode(id uuid.UUID) string {
	out := make([]byte, Length)
	for i := range out {
		var v byte
		for b := 0; b < 5; b++ {
			v <<= 1
			bit := i*5 + b - 2
			if bit >= 0 && id[bit/8]&(0x80>>(bit%8)) != 0 {
				v |= 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

// Validate checks that id could have come from Encode
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
