// Package id generates identifiers for mock routes. Route IDs show up
// in logs and listings, so they are short hex strings rather than full
// UUIDs.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Short returns a random 16-character hex ID.
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Route returns a route ID with the "route-" prefix, used when a
// configured route does not carry an explicit id.
func Route() string {
	return "route-" + Short()
}
