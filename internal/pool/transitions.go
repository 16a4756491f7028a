package pool

// Transitions are pure: they take records by value, check every precondition and only then
// return the updated copies. A non-nil error always comes with untouched inputs.

type CreateParams struct {
	PoolID   uint64 `json:"pool_id"`
	StartTS  int64  `json:"start_ts"`
	LockTS   int64  `json:"lock_ts"`
	EndTS    int64  `json:"end_ts"`
	LineBps  int16  `json:"line_bps"`
	AICommit Hash32 `json:"ai_commit"`
}

func (c CreateParams) Validate() error {
	if !(c.StartTS < c.LockTS && c.LockTS < c.EndTS) {
		return ErrInvalidTimestamps
	}
	if c.LineBps < minLineBps || c.LineBps > maxLineBps {
		return ErrInvalidLineBps
	}
	return nil
}

func NewPool(authority Principal, c CreateParams) (Pool, error) {
	if err := authority.Validate(); err != nil {
		return Pool{}, err
	}
	if err := c.Validate(); err != nil {
		return Pool{}, err
	}
	return Pool{
		Authority: authority,
		PoolID:    c.PoolID,
		StartTS:   c.StartTS,
		LockTS:    c.LockTS,
		EndTS:     c.EndTS,
		LineBps:   c.LineBps,
		Status:    StatusOpen,
		AICommit:  c.AICommit,
		Winner:    WinnerNone,
		Version:   1,
	}, nil
}

func lockPool(p Pool, now int64, caller Principal, authorize Authorizer) (Pool, error) {
	if p.Status != StatusOpen {
		return p, ErrPoolNotOpen
	}
	if now < p.LockTS {
		return p, ErrPoolNotLockable
	}
	if !authorize(caller, p.Authority) {
		return p, ErrUnauthorized
	}
	p.Status = StatusLocked
	p.Version++
	return p, nil
}

func resolvePool(p Pool, now int64, caller Principal, authorize Authorizer, winner Winner, proof Hash32) (Pool, error) {
	switch p.Status {
	case StatusOpen, StatusLocked:
	case StatusResolved:
		return p, ErrPoolAlreadyResolved
	default:
		return p, ErrInvalidStatus
	}
	if now < p.EndTS {
		return p, ErrPoolNotEnded
	}
	if !authorize(caller, p.Authority) {
		return p, ErrUnauthorized
	}
	switch winner {
	case WinnerOver, WinnerUnder, WinnerVoid:
	default:
		return p, ErrInvalidWinner
	}
	p.Status = StatusResolved
	p.Winner = winner
	p.ProofHash = proof
	p.Version++
	return p, nil
}

type stakeResult struct {
	pool  Pool
	entry Entry
	fee   uint64
	net   uint64
}

// applyStake credits a stake to the pool and the participant's entry. An existing entry
// keeps its original side: the side argument only matters on the first stake.
func applyStake(p Pool, e Entry, found bool, user Principal, amount uint64, side Side, now int64) (stakeResult, error) {
	if now >= p.LockTS {
		return stakeResult{}, ErrPoolLocked
	}
	if p.Status != StatusOpen {
		return stakeResult{}, ErrPoolNotOpen
	}
	if err := user.Validate(); err != nil {
		return stakeResult{}, err
	}
	if amount == 0 {
		return stakeResult{}, ErrInvalidAmount
	}
	if !side.Valid() {
		return stakeResult{}, ErrInvalidSide
	}
	fee, net, err := Fee(amount)
	if err != nil {
		return stakeResult{}, err
	}
	if !found {
		e = Entry{PoolID: p.PoolID, User: user, Side: side}
	}
	amt, err := addChecked(e.Amount, net)
	if err != nil {
		return stakeResult{}, err
	}
	paid, err := addChecked(e.FeePaid, fee)
	if err != nil {
		return stakeResult{}, err
	}
	switch e.Side {
	case SideOver:
		if p.TotalOver, err = addChecked(p.TotalOver, net); err != nil {
			return stakeResult{}, err
		}
	case SideUnder:
		if p.TotalUnder, err = addChecked(p.TotalUnder, net); err != nil {
			return stakeResult{}, err
		}
	default:
		return stakeResult{}, ErrInvalidSide
	}
	// Grand total must stay representable so payouts can be computed later.
	if _, err := p.Total(); err != nil {
		return stakeResult{}, err
	}
	e.Amount = amt
	e.FeePaid = paid
	e.Version++
	p.Version++
	return stakeResult{pool: p, entry: e, fee: fee, net: net}, nil
}

func applyClaim(p Pool, e Entry, caller Principal, authorize Authorizer) (Entry, uint64, error) {
	if p.Status != StatusResolved {
		return e, 0, ErrPoolNotResolved
	}
	if e.Claimed {
		return e, 0, ErrAlreadyClaimed
	}
	if !authorize(caller, e.User) {
		return e, 0, ErrUnauthorized
	}
	payout, err := Payout(p, e)
	if err != nil {
		return e, 0, err
	}
	e.Claimed = true
	e.Version++
	return e, payout, nil
}
