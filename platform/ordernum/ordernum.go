// Package ordernum generates human-readable service order numbers.
// This is part of the platform layer and contains no business logic.
package ordernum

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Unambiguous uppercase alphabet: no 0/O, 1/I/L to keep order numbers readable
// over the phone.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const suffixLen = 5

// Generator produces unique order numbers. The zero value is not usable; use
// New. Uniqueness comes from the date prefix plus a random suffix; collision
// handling, should one ever occur, is the database's unique constraint.
type Generator struct {
	now func() time.Time
}

// New creates a Generator using the system clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock creates a Generator with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns a new order number, e.g. "ORD-20250901-K7F3Q".
func (g *Generator) Next() string {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock's nanoseconds rather than returning an error the caller
		// cannot act on.
		nanos := g.now().UnixNano()
		for i := range buf {
			buf[i] = byte(nanos >> (i * 8))
		}
	}

	suffix := make([]byte, suffixLen)
	for i, b := range buf {
		suffix[i] = alphabet[int(b)%len(alphabet)]
	}

	return fmt.Sprintf("ORD-%s-%s", g.now().Format("20060102"), suffix)
}
