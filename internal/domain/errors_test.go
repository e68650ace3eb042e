package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("pmid", "is required")

	assert.Equal(t, "validation error: pmid: is required", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("build: %w", err)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "pmid", ve.Field)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("article", "123")

	assert.Equal(t, "article not found: 123", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExternalAPIError(t *testing.T) {
	t.Run("with endpoint", func(t *testing.T) {
		err := NewExternalAPIError("PubMed", "elink", 502, "bad gateway", nil)
		assert.Equal(t, "PubMed elink API error (status 502): bad gateway", err.Error())
	})

	t.Run("without endpoint", func(t *testing.T) {
		err := NewExternalAPIError("PubMed", "", 500, "boom", nil)
		assert.Equal(t, "PubMed API error (status 500): boom", err.Error())
	})

	t.Run("unwraps cause", func(t *testing.T) {
		err := NewExternalAPIError("PubMed", "efetch", 429, "slow down", ErrRateLimited)
		assert.True(t, errors.Is(err, ErrRateLimited))
	})
}
