package pool

import "math/bits"

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func mulChecked(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// mulDivChecked computes a*b/d with a 64-bit intermediate product, truncating toward zero.
func mulDivChecked(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrOverflow
	}
	prod, err := mulChecked(a, b)
	if err != nil {
		return 0, err
	}
	return prod / d, nil
}

// Fee splits a gross stake into the protocol fee and the net amount credited to the pool.
// The fee is floored, so stakes below 134 pay nothing.
func Fee(amount uint64) (fee, net uint64, err error) {
	fee, err = mulDivChecked(amount, FeeBps, bpsDenominator)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount - fee, nil
}

// Payout computes what an entry receives from a resolved pool.
// Void refunds the net stake; a winning side splits the combined pool pro rata.
func Payout(p Pool, e Entry) (uint64, error) {
	if p.Status != StatusResolved {
		return 0, ErrPoolNotResolved
	}
	if !wins(e.Side, p.Winner) {
		return 0, ErrNotWinner
	}
	switch p.Winner {
	case WinnerVoid:
		return e.Amount, nil
	case WinnerOver, WinnerUnder:
		total, err := p.Total()
		if err != nil {
			return 0, err
		}
		return mulDivChecked(e.Amount, total, p.sideTotal(winningSide(p.Winner)))
	case WinnerNone:
		return 0, ErrPoolNotResolved
	default:
		return 0, ErrInvalidWinner
	}
}

func wins(s Side, w Winner) bool {
	switch w {
	case WinnerVoid:
		return true
	case WinnerOver:
		return s == SideOver
	case WinnerUnder:
		return s == SideUnder
	case WinnerNone:
		return false
	default:
		return false
	}
}

func winningSide(w Winner) Side {
	switch w {
	case WinnerOver:
		return SideOver
	case WinnerUnder:
		return SideUnder
	default:
		panic("pool: no winning side for " + w.String())
	}
}
