package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHash(t *testing.T) {
	doc := []byte("%PDF-1.4 sample document body")
	want := sha256.Sum256(doc)

	got, err := DocumentHash(strings.NewReader(string(doc)))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got)

	// Same bytes, same hash
	again, err := DocumentHash(strings.NewReader(string(doc)))
	require.NoError(t, err)
	assert.Equal(t, got, again)

	// Any byte change produces a different hash
	mutated := append([]byte{}, doc...)
	mutated[0] ^= 0x01
	other := HashBytes(mutated)
	assert.NotEqual(t, got, other)
}

func TestPageID(t *testing.T) {
	hash := HashBytes([]byte("doc"))

	assert.Equal(t, hash+"-p1", PageID(hash, 1))
	assert.Equal(t, hash+"-p42", PageID(hash, 42))

	// Changing only the page number changes only the suffix
	p1 := PageID(hash, 1)
	p2 := PageID(hash, 2)
	assert.Equal(t, hash, strings.TrimSuffix(p1, "-p1"))
	assert.Equal(t, hash, strings.TrimSuffix(p2, "-p2"))
	assert.NotEqual(t, p1, p2)
}

func TestPointID(t *testing.T) {
	pageID := PageID(HashBytes([]byte("doc")), 1)

	a := PointID(pageID)
	b := PointID(pageID)
	assert.Equal(t, a, b, "point id must be deterministic")
	assert.Len(t, a, 36, "point id must be a UUID")

	other := PointID(PageID(HashBytes([]byte("doc")), 2))
	assert.NotEqual(t, a, other)
}
