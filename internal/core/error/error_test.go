package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestWrapRedisNil(t *testing.T) {
	err := WrapRedis(redis.Nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, redis.Nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(err, 0))
}

func TestWrapRedisGeneric(t *testing.T) {
	err := WrapRedis(errors.New("connection refused"))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err, 0))
	assert.Nil(t, WrapRedis(nil))
}

func TestIsRateLimited(t *testing.T) {
	cases := map[string]bool{
		"googleapi: Error 429: Resource has been exhausted": true,
		"RESOURCE_EXHAUSTED":                                true,
		"rate limit exceeded":                               true,
		"429 too many requests":                             true,
		"invalid argument":                                  false,
		"bad request (request id 84291c)":                   false,
		"invalid value for quota_project_id":                false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsRateLimited(errors.New(msg)), msg)
	}
	assert.True(t, IsRateLimited(fmt.Errorf("call: %w", ErrRateLimited)))
	assert.True(t, IsRateLimited(fmt.Errorf("generate: %w", genai.APIError{Code: http.StatusTooManyRequests})))
	assert.True(t, IsRateLimited(&genai.APIError{Code: http.StatusTooManyRequests}))
	assert.False(t, IsRateLimited(genai.APIError{Code: http.StatusBadRequest, Message: "quota exceeded for trace 429"}))
	assert.False(t, IsRateLimited(nil))
}

func TestWrapOracleStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(WrapOracle(ErrRateLimited), 0))
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(WrapOracle(ErrOracleUnavailable), 0))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapOracle(errors.New("boom")), 0))

	var appErr *AppError
	require.True(t, errors.As(WrapOracle(errors.New("boom")), &appErr))
	assert.Equal(t, OracleErrorMessage, appErr.Message)
}
