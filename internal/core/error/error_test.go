package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := New(base, http.StatusBadGateway, "upstream failed")

	assert.Equal(t, "upstream failed: boom", err.Error())
	assert.ErrorIs(t, err, base)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	var appErr *AppError
	require.ErrorAs(t, WrapRedis(redis.Nil), &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)

	require.ErrorAs(t, WrapRedis(errors.New("conn reset")), &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, RedisErrorMessage, appErr.Message)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"nil", nil, http.StatusOK, "OK"},
		{"signature", Signature(errors.New("mismatch")), http.StatusBadRequest, "Invalid signature"},
		{"bare sentinel", fmt.Errorf("parse: %w", ErrSignatureInvalid), http.StatusBadRequest, "Invalid signature"},
		{"redis", WrapRedis(errors.New("down")), http.StatusInternalServerError, "Internal Server Error"},
		{"provider", Provider("turn 1", errors.New("quota")), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := StatusOf(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestProviderKeepsCause(t *testing.T) {
	cause := errors.New("deadline")
	err := Provider("turn 2", cause)
	assert.ErrorIs(t, err, ErrProviderCallFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "turn 2")
}
