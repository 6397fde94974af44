package handshake

import (
	"crypto/rand"
	"encoding/binary"
)

// Cookie is a one-time random correlation id matching an asynchronous "ready"
// acknowledgement to the attempt that requested it. Zero is never issued, so
// the zero value can mean "no cookie".
type Cookie uint32

// NewCookie returns a fresh random non-zero cookie.
func NewCookie() (Cookie, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		c := Cookie(binary.BigEndian.Uint32(buf[:]))
		if c != 0 {
			return c, nil
		}
	}
}
