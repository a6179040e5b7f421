package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := New("test-key", time.Hour)

	token := tokens.Issue("alice")
	owner, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if owner != "alice" {
		t.Errorf("expected alice, got %s", owner)
	}
}

func TestTokens_Rejections(t *testing.T) {
	tokens := New("test-key", time.Hour)

	t.Run("tampered payload", func(t *testing.T) {
		token := tokens.Issue("alice")
		parts := strings.SplitN(token, ".", 2)
		forged := parts[0] + "x." + parts[1]
		if _, err := tokens.Verify(forged); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := New("other-key", time.Hour)
		if _, err := other.Verify(tokens.Issue("alice")); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := New("test-key", -time.Minute)
		if _, err := tokens.Verify(expired.Issue("alice")); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := tokens.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
