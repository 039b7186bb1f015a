package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTree prefixes tree hashes; the version suffix is bumped if the
// encoding changes.
const DomainTree = "flash/tree/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TreeHash identifies an encoded descriptor tree.
// Two renders with equal hashes described the same UI.
func TreeHash(tree IRObject) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("TreeHash: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}
