package pool

import (
	"errors"

	"prediction-pool/internal/ledger"
)

var (
	ErrInvalidTimestamps = errors.New("invalid_timestamps")
	ErrInvalidLineBps    = errors.New("invalid_line_bps")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidSide       = errors.New("invalid_side")
	ErrInvalidWinner     = errors.New("invalid_winner")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPrincipal  = errors.New("invalid_principal")
	ErrInvalidHash       = errors.New("invalid_hash")
	ErrInvalidRecord     = errors.New("invalid_record")

	ErrPoolExists          = errors.New("pool_exists")
	ErrPoolNotOpen         = errors.New("pool_not_open")
	ErrPoolLocked          = errors.New("pool_locked")
	ErrPoolNotLockable     = errors.New("pool_not_lockable")
	ErrPoolNotEnded        = errors.New("pool_not_ended")
	ErrPoolAlreadyResolved = errors.New("pool_already_resolved")
	ErrPoolNotResolved     = errors.New("pool_not_resolved")

	ErrUnauthorized = errors.New("unauthorized")

	ErrOverflow = errors.New("arithmetic_overflow")

	ErrAlreadyClaimed = errors.New("already_claimed")
	ErrNotWinner      = errors.New("not_winner")

	ErrPoolNotFound  = errors.New("pool_not_found")
	ErrEntryNotFound = errors.New("entry_not_found")

	ErrInsufficientFunds = ledger.ErrInsufficientFunds

	// ErrConflict reports a write against a record version that is no longer current.
	ErrConflict = errors.New("version_conflict")
)

// Class groups errors by how a caller should react to them.
type Class int

const (
	ClassInternal Class = iota
	ClassValidation
	ClassState
	ClassAuthorization
	ClassArithmetic
	ClassReplay
	ClassNotFound
	ClassFunds
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassState:
		return "state"
	case ClassAuthorization:
		return "authorization"
	case ClassArithmetic:
		return "arithmetic"
	case ClassReplay:
		return "replay"
	case ClassNotFound:
		return "not_found"
	case ClassFunds:
		return "funds"
	default:
		return "internal"
	}
}

// Retryable reports whether the same call may succeed later without changing its input.
func (c Class) Retryable() bool {
	return c == ClassState || c == ClassFunds
}

var classes = []struct {
	err   error
	class Class
}{
	{ErrInvalidTimestamps, ClassValidation},
	{ErrInvalidLineBps, ClassValidation},
	{ErrInvalidAmount, ClassValidation},
	{ErrInvalidSide, ClassValidation},
	{ErrInvalidWinner, ClassValidation},
	{ErrInvalidStatus, ClassValidation},
	{ErrInvalidPrincipal, ClassValidation},
	{ErrInvalidHash, ClassValidation},
	{ErrPoolExists, ClassValidation},
	{ErrPoolNotOpen, ClassState},
	{ErrPoolLocked, ClassState},
	{ErrPoolNotLockable, ClassState},
	{ErrPoolNotEnded, ClassState},
	{ErrPoolAlreadyResolved, ClassState},
	{ErrPoolNotResolved, ClassState},
	{ErrUnauthorized, ClassAuthorization},
	{ErrOverflow, ClassArithmetic},
	{ledger.ErrBalanceOverflow, ClassArithmetic},
	{ErrAlreadyClaimed, ClassReplay},
	{ErrNotWinner, ClassReplay},
	{ErrPoolNotFound, ClassNotFound},
	{ErrEntryNotFound, ClassNotFound},
	{ErrInsufficientFunds, ClassFunds},
	{ErrConflict, ClassState},
}

// Classify maps an operation error onto its Class. Unknown errors are internal.
func Classify(err error) Class {
	if err == nil {
		return ClassInternal
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.class
		}
	}
	return ClassInternal
}

// Code is the stable snake_case identifier reported to clients for err.
func Code(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal_error"
}
