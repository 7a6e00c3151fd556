package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepb/fluentqueries/pkg/query"
)

func TestFingerprint_Deterministic(t *testing.T) {
	doc1, err := Encode(composite().AsExpression())
	require.NoError(t, err)
	doc2, err := Encode(composite().AsExpression())
	require.NoError(t, err)

	fp1 := mustFingerprint(t, doc1)
	fp2 := mustFingerprint(t, doc2)

	assert.Equal(t, fp1, fp2, "independently built equal queries share a fingerprint")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a, err := Encode(query.Ordered(query.Has(age)).GreaterThan(18).AsExpression())
	require.NoError(t, err)
	b, err := Encode(query.Ordered(query.Has(age)).GreaterThan(19).AsExpression())
	require.NoError(t, err)
	c, err := Encode(query.Ordered(query.Has(age)).GreaterThanOrEqualTo(18).AsExpression())
	require.NoError(t, err)

	assert.NotEqual(t, mustFingerprint(t, a), mustFingerprint(t, b))
	assert.NotEqual(t, mustFingerprint(t, a), mustFingerprint(t, c))
}

func TestFingerprint_DomainSeparated(t *testing.T) {
	doc := IRObject{"a": IRInt(1)}
	canonical, err := MarshalCanonical(doc)
	require.NoError(t, err)

	plain := sha256.Sum256(canonical)
	assert.NotEqual(t, hex.EncodeToString(plain[:]), mustFingerprint(t, doc))

	h := sha256.New()
	h.Write([]byte(DomainExpr))
	h.Write([]byte{0x00})
	h.Write(canonical)
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), mustFingerprint(t, doc))
}

func TestFingerprint_RejectsInvalid(t *testing.T) {
	_, err := Fingerprint(IRObject{"a": nil})
	assert.Error(t, err)
}
