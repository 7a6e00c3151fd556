package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainExpr separates expression fingerprints from any other hash computed
// over canonical JSON. The version suffix changes with the document format.
const DomainExpr = "fluentq/expr/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex. The
// null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content hash of an expression document. Documents
// that differ only in key order or string normalization share a fingerprint.
func Fingerprint(doc IRObject) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainExpr, canonical), nil
}
