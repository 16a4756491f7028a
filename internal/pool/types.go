package pool

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FeeBps is the protocol fee charged on every stake, in basis points.
const FeeBps = 75

const (
	bpsDenominator = 10000
	maxLineBps     = 10000
	minLineBps     = -10000

	// PrincipalMaxLen matches the fixed 32-byte identity slot of the persisted records.
	PrincipalMaxLen = 32
)

type Status uint8

const (
	StatusOpen Status = iota
	StatusLocked
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusLocked:
		return "Locked"
	case StatusResolved:
		return "Resolved"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusLocked, StatusResolved:
		return true
	default:
		return false
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidStatus
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "open":
		return StatusOpen, nil
	case "locked":
		return StatusLocked, nil
	case "resolved":
		return StatusResolved, nil
	default:
		return 0, ErrInvalidStatus
	}
}

type Side uint8

const (
	SideOver Side = iota
	SideUnder
)

func (s Side) String() string {
	switch s {
	case SideOver:
		return "Over"
	case SideUnder:
		return "Under"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func (s Side) Valid() bool {
	switch s {
	case SideOver, SideUnder:
		return true
	default:
		return false
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidSide
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "over":
		return SideOver, nil
	case "under":
		return SideUnder, nil
	default:
		return 0, ErrInvalidSide
	}
}

// Winner is the resolved outcome. WinnerNone is only valid while the pool is unresolved.
type Winner uint8

const (
	WinnerNone Winner = iota
	WinnerOver
	WinnerUnder
	WinnerVoid
)

func (w Winner) String() string {
	switch w {
	case WinnerNone:
		return "None"
	case WinnerOver:
		return "Over"
	case WinnerUnder:
		return "Under"
	case WinnerVoid:
		return "Void"
	default:
		return fmt.Sprintf("Winner(%d)", uint8(w))
	}
}

func (w Winner) Valid() bool {
	switch w {
	case WinnerNone, WinnerOver, WinnerUnder, WinnerVoid:
		return true
	default:
		return false
	}
}

func (w Winner) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, ErrInvalidWinner
	}
	return []byte(w.String()), nil
}

func (w *Winner) UnmarshalText(b []byte) error {
	v, err := ParseWinner(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func ParseWinner(v string) (Winner, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "":
		return WinnerNone, nil
	case "over":
		return WinnerOver, nil
	case "under":
		return WinnerUnder, nil
	case "void":
		return WinnerVoid, nil
	default:
		return 0, ErrInvalidWinner
	}
}

// Principal identifies a caller: a pool authority or a participant.
type Principal string

func (p Principal) Validate() error {
	if len(p) == 0 || len(p) > PrincipalMaxLen || strings.ContainsRune(string(p), 0) {
		return ErrInvalidPrincipal
	}
	return nil
}

// Hash32 is a fixed-size opaque value (ai commitment, resolution proof).
type Hash32 [32]byte

func (h Hash32) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash32) IsZero() bool {
	return h == Hash32{}
}

func (h Hash32) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash32) UnmarshalText(b []byte) error {
	v, err := ParseHash32(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func ParseHash32(v string) (Hash32, error) {
	v = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(v), "0x"), "0X")
	var out Hash32
	if len(v) != 64 {
		return out, ErrInvalidHash
	}
	if _, err := hex.Decode(out[:], []byte(v)); err != nil {
		return out, ErrInvalidHash
	}
	return out, nil
}

// Pool is the per-event ledger record. Totals are net of fees.
type Pool struct {
	Authority  Principal `json:"authority"`
	PoolID     uint64    `json:"pool_id"`
	StartTS    int64     `json:"start_ts"`
	LockTS     int64     `json:"lock_ts"`
	EndTS      int64     `json:"end_ts"`
	LineBps    int16     `json:"line_bps"`
	Status     Status    `json:"status"`
	TotalOver  uint64    `json:"total_over"`
	TotalUnder uint64    `json:"total_under"`
	AICommit   Hash32    `json:"ai_commit"`
	Winner     Winner    `json:"winner"`
	ProofHash  Hash32    `json:"proof_hash"`
	Version    uint64    `json:"version"`
}

// Total returns the combined net stake of both sides.
func (p Pool) Total() (uint64, error) {
	return addChecked(p.TotalOver, p.TotalUnder)
}

func (p Pool) sideTotal(s Side) uint64 {
	switch s {
	case SideOver:
		return p.TotalOver
	case SideUnder:
		return p.TotalUnder
	default:
		panic("pool: unknown side " + s.String())
	}
}

// Entry is one participant's cumulative stake in one pool.
type Entry struct {
	PoolID  uint64    `json:"pool_id"`
	User    Principal `json:"user"`
	Side    Side      `json:"side"`
	Amount  uint64    `json:"amount"`
	FeePaid uint64    `json:"fee_paid"`
	Claimed bool      `json:"claimed"`
	Version uint64    `json:"version"`
}

// Authorizer reports whether caller may act as principal.
type Authorizer func(caller, principal Principal) bool

// SamePrincipal is the default Authorizer: identity equality.
func SamePrincipal(caller, principal Principal) bool {
	return caller != "" && caller == principal
}
