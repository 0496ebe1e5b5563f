package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		status int
	}{
		{"validation", ValidationField("quantity", "must be greater than 0"), ErrValidation, http.StatusBadRequest},
		{"not found", NotFound("batch"), ErrNotFound, http.StatusNotFound},
		{"conflict", Conflict("batch does not belong to this medicine"), ErrConflict, http.StatusConflict},
		{"insufficient stock", InsufficientStock(3, 5), ErrInsufficientStock, http.StatusConflict},
		{"persistence", Persistence(errors.New("disk full")), ErrPersistence, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.target))
			assert.Equal(t, tt.status, From(wrapped).StatusCode)
		})
	}
}

func TestInsufficientStockCarriesAvailable(t *testing.T) {
	err := InsufficientStock(7, 12)
	assert.Equal(t, 7, err.Available)
	assert.Equal(t, "7", err.Details["available"])
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	notFound := From(gorm.ErrRecordNotFound)
	require.NotNil(t, notFound)
	assert.Equal(t, KindNotFound, notFound.Kind)

	timeout := From(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, KindPersistence, timeout.Kind)
	assert.True(t, timeout.Retryable)
	assert.Equal(t, http.StatusServiceUnavailable, timeout.StatusCode)

	generic := From(errors.New("connection reset"))
	assert.Equal(t, "storage failure", generic.Message)
	assert.NotContains(t, generic.Message, "connection reset")
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("wrap: %w", Conflict("x")), KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindConflict))
}
