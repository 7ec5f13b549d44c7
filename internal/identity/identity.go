// Package identity derives content-addressed identifiers for document pages.
//
// A page id is a pure function of the document's byte stream and the 1-based
// page number: "<sha256-hex>-p<page>". Re-ingesting byte-identical content
// therefore maps to the same ids, which is what makes ingestion idempotent.
package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// DocumentHash computes the sha256 hex digest over the exact byte stream.
//
// The hash must cover the bytes as uploaded, not a decoded or re-encoded
// form, or identity stops being reproducible across runs.
func DocumentHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing document: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes is a convenience wrapper over DocumentHash for in-memory documents.
func HashBytes(data []byte) string {
	// sha256 over a byte slice cannot fail
	sum, _ := DocumentHash(bytes.NewReader(data))
	return sum
}

// PageID composes the content-addressed id for one page of a document.
// Page numbers are 1-based.
func PageID(documentHash string, pageNumber int) string {
	return fmt.Sprintf("%s-p%d", documentHash, pageNumber)
}

// PointID derives the vector-store point id for a page id.
//
// Qdrant point ids must be UUIDs, so the readable page id is mapped through
// UUIDv5. The derivation is deterministic, which preserves content addressing:
// identical page ids always land on the same point.
func PointID(pageID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(pageID)).String()
}
