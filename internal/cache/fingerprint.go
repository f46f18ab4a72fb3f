package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint derives a stable cache key from v: sha256 over the canonical
// JSON serialization. The value is marshaled, decoded into generic form and
// re-marshaled so that map key order cannot influence the digest
// (encoding/json emits map keys sorted). Structurally equal inputs always
// hash identically; any field difference changes the digest.
func Fingerprint(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("fingerprint canonicalize: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("fingerprint canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
