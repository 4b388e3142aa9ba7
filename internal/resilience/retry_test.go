package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	var calls int
	v, err := Retry(context.Background(), "overpass", fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errors.New("busy"), http.StatusTooManyRequests)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", v, calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), "postcodes", fastRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("syntax error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := Retry(context.Background(), "roads", fastRetry(2), func(context.Context) (int, error) {
		calls++
		return 0, Transient(errors.New("timeout"), 0)
	})
	if err == nil || calls != 2 {
		t.Errorf("expected error after 2 calls, got %v after %d", err, calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := Retry(ctx, "roads", RetryConfig{Attempts: 5, Backoff: time.Hour, MaxBackoff: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient(errors.New("timeout"), 0)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected no retry after cancellation, got %d calls", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", Transient(errors.New("x"), 503), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"pg connection", &pgconn.PgError{Code: "08006"}, true},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg syntax", &pgconn.PgError{Code: "42601"}, false},
		{"plain", errors.New("no rows"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	if StatusError(http.StatusOK) != nil {
		t.Error("2xx should not be an error")
	}
	if err := StatusError(http.StatusGatewayTimeout); !IsTransient(err) {
		t.Errorf("504 should be transient: %v", err)
	}
	if err := StatusError(http.StatusBadRequest); err == nil || IsTransient(err) {
		t.Errorf("400 should be a permanent error: %v", err)
	}
}

func TestFromRetrySettings(t *testing.T) {
	cfg := FromRetrySettings(0, 0)
	if cfg.Attempts != 3 || cfg.Backoff != 200*time.Millisecond {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	cfg = FromRetrySettings(1, 50)
	if cfg.Attempts != 1 || cfg.Backoff != 50*time.Millisecond {
		t.Errorf("expected overrides, got %+v", cfg)
	}
}
