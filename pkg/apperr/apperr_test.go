package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "gone")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(KindUnsupportedFormat, "bad ext")
	outer := fmt.Errorf("ingest failed: %w", inner)

	assert.Equal(t, KindUnsupportedFormat, KindOf(outer))
	assert.True(t, IsKind(outer, KindUnsupportedFormat))
	assert.False(t, IsKind(outer, KindNotFound))
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, "not_found: document missing", New(KindNotFound, "document missing").Error())

	wrapped := Wrap(KindEmbeddingError, "embed call", errors.New("timeout"))
	assert.Equal(t, "embedding_error: embed call: timeout", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "timeout")
}

func TestNewf(t *testing.T) {
	err := Newf(KindInvalidInput, "bad value %d", 7)
	assert.Equal(t, "invalid_input: bad value 7", err.Error())
}
