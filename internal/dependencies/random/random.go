package random

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand. A failed read from the entropy
// source panics.
type CryptoRandom struct {
	reader io.Reader
}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{reader: rand.Reader}
}

func (r *CryptoRandom) source() io.Reader {
	if r.reader == nil {
		return rand.Reader
	}
	return r.reader
}

// Intn returns a uniformly distributed int in [0, n), or 0 when n <= 0
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(r.source(), big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("random: reading entropy: %v", err))
	}
	return int(result.Int64())
}

// String draws length symbols from alphabet, rejecting bytes that would bias the result
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 || len(alphabet) > 256 {
		return ""
	}
	limit := 256 - 256%len(alphabet)
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := io.ReadFull(r.source(), buf); err != nil {
			panic(fmt.Sprintf("random: reading entropy: %v", err))
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
