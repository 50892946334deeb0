package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/theory-cloud/authdb/pkg/errors"
)

func TestAdapterErrorWrapsSentinel(t *testing.T) {
	err := errors.NewError("findMany", "user", errors.ErrUnsupportedRequest)

	assert.True(t, errors.IsUnsupportedRequest(err))
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedRequest))
	assert.Contains(t, err.Error(), "findMany")
	// Model names stay out of the message.
	assert.NotContains(t, err.Error(), "user")
}

func TestAdapterErrorWrapsNestedSentinel(t *testing.T) {
	inner := fmt.Errorf("context: %w", errors.ErrConstraintViolation)
	err := errors.NewError("create", "user", inner)
	assert.True(t, errors.IsConstraintViolation(err))
	assert.False(t, errors.IsNotFound(err))
}

func TestPredicates(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.ErrDocumentNotFound))
	assert.True(t, errors.IsMissingIndex(errors.ErrMissingIndex))
	assert.False(t, errors.IsMissingIndex(errors.ErrDocumentNotFound))
	assert.False(t, errors.IsNotFound(nil))
}
