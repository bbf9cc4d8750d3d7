package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgh3326/rent-radar/internal/logger"
)

func testConfig() Config {
	return Config{
		RequestTimeout:    time.Second,
		InterRequestDelay: 0,
		MaxRetries:        3,
		BaseDelay:         time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		JitterRatio:       0,
		CooldownThreshold: 10,
		Cooldown:          time.Millisecond,
	}
}

func TestGetJSONRecoversAfterRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil, logger.NewNop())

	payload, err := client.GetJSON(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, 3, calls)

	retries, cooldowns, failures := client.Metrics().Snapshot()
	assert.Equal(t, 2, retries)
	assert.Equal(t, 0, cooldowns)
	assert.Equal(t, 0, failures)
}

func TestGetJSONCooldownAfterConsecutiveRateLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.CooldownThreshold = 2
	client := NewClient(cfg, nil, logger.NewNop())

	_, err := client.GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry budget exhausted")

	_, cooldowns, failures := client.Metrics().Snapshot()
	assert.GreaterOrEqual(t, cooldowns, 1)
	assert.Equal(t, 1, failures)
}

func TestGetJSONClientErrorDoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil, logger.NewNop())

	_, err := client.GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	retries, _, failures := client.Metrics().Snapshot()
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, failures)
}

func TestGetJSONServerErrorExhaustsBudget(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxRetries = 2
	client := NewClient(cfg, nil, logger.NewNop())

	_, err := client.GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestGetJSONRejectsNonObjectPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil, logger.NewNop())

	_, err := client.GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
}

func TestGetTextSendsHeadersAndParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "11110", r.URL.Query().Get("LAWD_CD"))
		w.Write([]byte("<response/>"))
	}))
	defer server.Close()

	client := NewClient(testConfig(), map[string]string{"User-Agent": "test-agent"}, logger.NewNop())

	params := url.Values{}
	params.Set("LAWD_CD", "11110")
	body, err := client.GetText(context.Background(), server.URL, params)
	require.NoError(t, err)
	assert.Equal(t, "<response/>", body)
}

func TestGetJSONContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BaseDelay = time.Minute
	client := NewClient(cfg, nil, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetJSON(ctx, server.URL, nil)
	require.Error(t, err)
}

func TestBackoffCapsAtMaxBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Second
	cfg.MaxBackoff = 4 * time.Second
	client := NewClient(cfg, nil, logger.NewNop())

	assert.Equal(t, time.Second, client.backoff(0))
	assert.Equal(t, 2*time.Second, client.backoff(1))
	assert.Equal(t, 4*time.Second, client.backoff(2))
	assert.Equal(t, 4*time.Second, client.backoff(10))
}

func TestBackoffJitterStaysInSpread(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = time.Second
	cfg.MaxBackoff = time.Minute
	cfg.JitterRatio = 0.2
	client := NewClient(cfg, nil, logger.NewNop())

	for range 100 {
		delay := client.backoff(1)
		assert.GreaterOrEqual(t, delay, 1600*time.Millisecond)
		assert.LessOrEqual(t, delay, 2400*time.Millisecond)
	}
}
