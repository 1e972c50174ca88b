package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// MaxHashSize bounds how many bytes of a payload are hashed.
const MaxHashSize = 1024 * 1024

// HashContent returns the hex SHA-256 of content, or "" for empty content.
// Only the first MaxHashSize bytes are hashed.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashPayload hashes the JSON encoding of v. Values that cannot be encoded
// hash to "".
func HashPayload(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return HashContent(data)
}

// TruncateString shortens s to at most maxLen bytes, ending with "..." when
// cut. A non-positive maxLen disables truncation.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
