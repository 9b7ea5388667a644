package accounts

import (
	"errors"
	"testing"
	"time"

	"github.com/hauslive/hausd/internal/clock"
)

func testService(secret string, now time.Time) *Service {
	return New(nil, clock.NewFixed(now), Config{
		JWTSecret: secret,
		TokenTTL:  time.Hour,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := testService("test-secret", now)

	token, err := svc.signToken("addr-1", now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	addr, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if addr != "addr-1" {
		t.Fatalf("address = %s, want addr-1", addr)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := testService("test-secret", now)

	t.Run("garbage", func(t *testing.T) {
		if _, err := svc.VerifyToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testService("other-secret", now)
		token, err := other.signToken("addr-1", now)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.signToken("addr-1", now.Add(-2*time.Hour))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})
}

func TestVerifyTokenUsesServiceClock(t *testing.T) {
	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	token, err := testService("test-secret", issued).signToken("addr-1", issued)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	t.Run("valid within ttl", func(t *testing.T) {
		svc := testService("test-secret", issued.Add(30*time.Minute))
		if _, err := svc.VerifyToken(token); err != nil {
			t.Fatalf("verify: %v", err)
		}
	})

	t.Run("expired past ttl", func(t *testing.T) {
		svc := testService("test-secret", issued.Add(2*time.Hour))
		if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("want ErrInvalidToken, got %v", err)
		}
	})
}
