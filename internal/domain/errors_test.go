package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := map[error]Kind{
		fmt.Errorf("submit: %w", ErrTokenExpired): KindForbidden,
		ErrTokenUsed:                              KindForbidden,
		ErrTokenInvalid:                           KindUnauthorized,
		ErrOptionNotFound:                         KindValidation,
		fmt.Errorf("x: %w", ErrQuizNotFound):      KindNotFound,
		errors.New("boom"):                        KindInternal,
	}
	for err, want := range cases {
		if got := KindOf(err); got != want {
			t.Fatalf("KindOf(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestSentinelForRecoversWireErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: signature mismatch", ErrTokenInvalid)
	if got := SentinelFor(KindOf(wrapped), Sentinel(wrapped).Error()); got != ErrTokenInvalid {
		t.Fatalf("expected token invalid, got %v", got)
	}
	if got := SentinelFor(KindForbidden, "something else"); got != ErrTokenOwnership {
		t.Fatalf("expected ownership fallback, got %v", got)
	}
	if got := SentinelFor(KindInternal, "internal error"); got != nil {
		t.Fatalf("expected nil for internal, got %v", got)
	}
}
