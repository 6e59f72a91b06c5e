// Package gen provides utility functions for generating identifiers.
package gen

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	sep      = "|"
	tokenLen = 8
)

// Key generates a composite key from the provided strings a and b.
func Key(a, b string) string {
	return fmt.Sprintf("%s%s%s", a, sep, b)
}

// UUIDv5 generates a deterministic UUIDv5 from the provided strings a and b.
func UUIDv5(a, b string) string {
	key := Key(a, b)

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Token returns a short random token used to disambiguate artifact names
// that two concurrent requests would otherwise derive identically.
func Token() string {
	return uuid.NewString()[:tokenLen]
}
