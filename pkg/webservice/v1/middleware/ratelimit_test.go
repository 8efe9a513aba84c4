package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/webservice/v1/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRateLimiter(max int, logger *logging.Logger) (*RateLimiter, *time.Time) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	rl := NewRateLimiter(&RateLimiterParams{
		Logger:      logger,
		Writer:      response.NewResponseWriter(logger),
		MaxRequests: max,
		Interval:    time.Minute,
	})
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestAllow(t *testing.T) {

	rl, clock := createRateLimiter(3, nil)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// independent bucket per client
	assert.True(t, rl.Allow("10.0.0.2"))

	// one token every 20 seconds
	*clock = clock.Add(20 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// refill never exceeds the burst size
	*clock = clock.Add(time.Hour)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestSweep(t *testing.T) {

	rl, clock := createRateLimiter(1, nil)

	rl.Allow("10.0.0.1")
	*clock = clock.Add(2 * time.Minute)
	rl.sweep(*clock)
	assert.Empty(t, rl.buckets)
}

func TestLimit(t *testing.T) {

	var buf bytes.Buffer
	logger := logging.NewLogger(slog.LevelInfo, &buf)
	rl, _ := createRateLimiter(1, logger)

	served := 0
	next := func(w http.ResponseWriter, r *http.Request) {
		served++
		w.WriteHeader(http.StatusOK)
	}

	request := httptest.NewRequest(http.MethodPost, "/api/v1/pkcs12/extract", nil)
	request.RemoteAddr = "192.0.2.10:41234"

	recorder := httptest.NewRecorder()
	rl.Limit(recorder, request, next)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// same client on a different source port
	request.RemoteAddr = "192.0.2.10:41235"
	recorder = httptest.NewRecorder()
	rl.Limit(recorder, request, next)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
	assert.Equal(t, 1, served)

	var resp response.WebServiceResponse
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrRateLimitExceeded.Error(), resp.Error)

	assert.Contains(t, buf.String(), "SECURITY")
	assert.Contains(t, buf.String(), "192.0.2.10")
}
