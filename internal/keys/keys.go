package keys

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultMaxLen is used when the caller passes maxLen <= 0.
const DefaultMaxLen = 512

// Storage returns "<prefix>:<ns>:<key>". Keys longer than maxLen are replaced by
// "h:" + the hex SHA-256 of the key so providers with key size limits keep working.
func Storage(prefix, ns, key string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if len(key) > maxLen {
		sum := sha256.Sum256([]byte(key))
		key = "h:" + hex.EncodeToString(sum[:])
	}
	return prefix + ":" + ns + ":" + key
}
