// Package identity derives pseudonymous device identifiers. The server
// only ever sees the salted hash, never raw fingerprint signals, and the
// per-site salt makes device ids unlinkable across sites.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// SaltedDeviceID is deterministic for a (visitorID, siteSalt) pair, which
// makes device upserts idempotent.
func SaltedDeviceID(visitorID, siteSalt string) string {
	return SHA256Hex(visitorID + ":" + siteSalt)
}

func GenerateSiteSalt() string {
	buf := make([]byte, 32)
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
