package pool

import (
	"errors"
	"fmt"
	"testing"

	"prediction-pool/internal/ledger"
)

func TestClassifyAndCode(t *testing.T) {
	cases := []struct {
		err   error
		class Class
		code  string
	}{
		{ErrInvalidAmount, ClassValidation, "invalid_amount"},
		{fmt.Errorf("enter: %w", ErrPoolLocked), ClassState, "pool_locked"},
		{ErrUnauthorized, ClassAuthorization, "unauthorized"},
		{ErrOverflow, ClassArithmetic, "arithmetic_overflow"},
		{ledger.ErrBalanceOverflow, ClassArithmetic, "balance_overflow"},
		{ErrAlreadyClaimed, ClassReplay, "already_claimed"},
		{ErrNotWinner, ClassReplay, "not_winner"},
		{ErrEntryNotFound, ClassNotFound, "entry_not_found"},
		{ledger.ErrInsufficientFunds, ClassFunds, "insufficient_funds"},
		{ErrConflict, ClassState, "version_conflict"},
		{errors.New("disk on fire"), ClassInternal, "internal_error"},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.class {
			t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.class)
		}
		if got := Code(tc.err); got != tc.code {
			t.Fatalf("Code(%v) = %q, want %q", tc.err, got, tc.code)
		}
	}
	if !ClassState.Retryable() || ClassReplay.Retryable() {
		t.Fatal("unexpected retryable classes")
	}
}
