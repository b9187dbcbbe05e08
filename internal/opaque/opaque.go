// Package opaque mints unguessable identifiers for challenges and clearances.
package opaque

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// New returns a base58 token carrying 128 bits of entropy.
func New() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base58.Encode(b), nil
}
