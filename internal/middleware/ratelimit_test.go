package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(t *testing.T, h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/transform", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		if rec := hit(t, h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := hit(t, h, "10.0.0.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if body["error"] != "rate_limited" {
		t.Errorf("error kind = %q, want rate_limited", body["error"])
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	h := RateLimit(1, time.Minute)(okHandler())

	if rec := hit(t, h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d", rec.Code)
	}
	if rec := hit(t, h, "10.0.0.1:9999"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same ip, new port: status = %d, want 429", rec.Code)
	}
	if rec := hit(t, h, "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("second client: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	h := RateLimit(1, 10*time.Millisecond)(okHandler())

	if rec := hit(t, h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := hit(t, h, "10.0.0.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 inside window", rec.Code)
	}

	time.Sleep(20 * time.Millisecond)
	if rec := hit(t, h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 after window reset", rec.Code)
	}
}

func TestRetryAfterSecondsFloor(t *testing.T) {
	now := time.Now()
	if got := retryAfterSeconds(now.Add(90*time.Second), now); got != 90 {
		t.Errorf("retryAfterSeconds(+90s) = %d, want 90", got)
	}
	if got := retryAfterSeconds(now, now); got != 1 {
		t.Errorf("retryAfterSeconds(now) = %d, want floor of 1", got)
	}
}
