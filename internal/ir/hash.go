package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainBlob separates blob digests from any other hash over canonical JSON.
const DomainBlob = "relstore/blob/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BlobDigest returns a stable digest of a blob. Equal record sets give equal
// digests regardless of map iteration order.
func BlobDigest(blob IRObject) (string, error) {
	canonical, err := MarshalCanonical(blob)
	if err != nil {
		return "", fmt.Errorf("BlobDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBlob, canonical), nil
}
