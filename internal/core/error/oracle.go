package errx

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrRateLimited marks a provider throttling response.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoStructuredResult marks a model reply without a parsable JSON payload.
	ErrNoStructuredResult = errors.New("no structured result")
	// ErrOracleUnavailable is returned when no chat model is configured.
	ErrOracleUnavailable = errors.New("oracle unavailable")
)

// rateLimitSignals match providers that only surface throttling as text.
var rateLimitSignals = []string{
	"error 429",
	"status 429",
	"code 429",
	"429 too many requests",
	"resource exhausted",
	"resource_exhausted",
	"rate limit",
	"too many requests",
	"quota exceeded",
	"exceeded your current quota",
}

// IsRateLimited reports whether err is a provider rate-limit signal. A typed
// Gemini API error decides by its status code; other errors fall back to text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if code, ok := apiStatus(err); ok {
		return code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	for _, s := range rateLimitSignals {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func apiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// WrapOracle maps a language model error to AppError. Rate limits become 429.
func WrapOracle(err error) error {
	if err == nil {
		return nil
	}
	if IsRateLimited(err) {
		return New(err, http.StatusTooManyRequests, OracleRateLimitedMessage)
	}
	if errors.Is(err, ErrOracleUnavailable) {
		return New(err, http.StatusServiceUnavailable, OracleErrorMessage)
	}
	return New(err, http.StatusBadGateway, OracleErrorMessage)
}

// WrapTransport maps a speech transport error to AppError.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, TransportErrorMessage)
}
