package goBiometric

import (
	"crypto/rand"
	"encoding/binary"
)

// randomUint64 draws a non-zero 64-bit identity from the platform CSPRNG.
func randomUint64() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			continue
		}
		if v := binary.BigEndian.Uint64(buf[:]); v != 0 {
			return v
		}
	}
}
