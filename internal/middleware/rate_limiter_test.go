package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okLimitedHandler(rl *RateLimiter) echo.HandlerFunc {
	return rl.Middleware()(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

func hit(e *echo.Echo, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func TestRateLimiter_BurstThenLimited(t *testing.T) {
	e := echo.New()
	handler := okLimitedHandler(NewRateLimiter(2, 4))

	for i := 0; i < 4; i++ {
		rec := hit(e, handler, "192.168.1.2:12345")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst", i)
	}

	rec := hit(e, handler, "192.168.1.2:12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "SYSTEM_006")
}

func TestRateLimiter_BurstNeverBelowRate(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	assert.Equal(t, 10, rl.burst)
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	e := echo.New()
	handler := okLimitedHandler(NewRateLimiter(5, 5))

	for _, ip := range []string{"192.168.1.1:1234", "192.168.1.2:1234", "192.168.1.3:1234"} {
		for i := 0; i < 5; i++ {
			rec := hit(e, handler, ip)
			assert.Equal(t, http.StatusOK, rec.Code, "request %d for %s", i, ip)
		}
	}
}

func TestRateLimiter_Independent(t *testing.T) {
	e := echo.New()
	strict := okLimitedHandler(NewRateLimiter(1, 1))
	loose := okLimitedHandler(NewRateLimiter(100, 100))

	assert.Equal(t, http.StatusOK, hit(e, strict, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, strict, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(e, loose, "10.0.0.1:1").Code)
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "X-Forwarded-For header",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1"},
			remoteAddr: "127.0.0.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For chain uses client entry",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			remoteAddr: "127.0.0.1:12345",
			expected:   "203.0.113.7",
		},
		{
			name:       "X-Real-IP header",
			headers:    map[string]string{"X-Real-IP": "192.168.1.2"},
			remoteAddr: "127.0.0.1:12345",
			expected:   "192.168.1.2",
		},
		{
			name: "X-Forwarded-For takes precedence",
			headers: map[string]string{
				"X-Forwarded-For": "192.168.1.1",
				"X-Real-IP":       "192.168.1.2",
			},
			remoteAddr: "127.0.0.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "Falls back to RealIP",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.3:12345",
			expected:   "192.168.1.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remoteAddr

			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.expected, getIP(c))
		})
	}
}

func TestRateLimiter_SweepRemovesIdleVisitors(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 10)
	rl.now = func() time.Time { return now }

	rl.getVisitor("old_ip")
	now = now.Add(5 * time.Minute)
	rl.getVisitor("new_ip")

	rl.sweep()

	assert.Equal(t, 1, rl.size())
	_, oldExists := rl.visitors["old_ip"]
	_, newExists := rl.visitors["new_ip"]
	assert.False(t, oldExists)
	assert.True(t, newExists)
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(5, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run did not return after cancel")
	}
}

func TestRateLimiter_Concurrency(t *testing.T) {
	e := echo.New()
	handler := okLimitedHandler(NewRateLimiter(5, 10))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount, rateLimitCount := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := hit(e, handler, "192.168.1.100:12345")

			mu.Lock()
			defer mu.Unlock()
			switch rec.Code {
			case http.StatusOK:
				successCount++
			case http.StatusTooManyRequests:
				rateLimitCount++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, successCount+rateLimitCount)
	assert.GreaterOrEqual(t, successCount, 10)
	assert.Greater(t, rateLimitCount, 0)
}
