package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSummary prefixes summary digests. The version suffix changes when
// the canonical form does.
const DomainSummary = "retailkit/summary/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null byte keeps the domain and data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes already-canonical summary bytes.
func Digest(canonical []byte) string {
	return hashWithDomain(DomainSummary, canonical)
}

// DigestOf renders v canonically and hashes it.
func DigestOf(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return Digest(b), nil
}
