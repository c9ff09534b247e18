package util

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte(testSecret), time.Hour)

	token, err := signer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	userID, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("expected user-42, got %q", userID)
	}
}

func TestTokenSigner_Expired(t *testing.T) {
	signer := NewTokenSigner([]byte(testSecret), -time.Minute)

	token, err := signer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := signer.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenSigner_WrongSecret(t *testing.T) {
	issuer := NewTokenSigner([]byte(testSecret), time.Hour)
	verifier := NewTokenSigner([]byte("a-different-secret-entirely-here"), time.Hour)

	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestTokenSigner_Garbage(t *testing.T) {
	signer := NewTokenSigner([]byte(testSecret), time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := signer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestTokenSigner_MissingSecret(t *testing.T) {
	signer := NewTokenSigner(nil, time.Hour)

	if _, err := signer.Issue("user-42"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
