package pool

import (
	"errors"
	"math"
	"testing"
)

func TestFee(t *testing.T) {
	cases := []struct {
		amount  uint64
		fee     uint64
		net     uint64
		wantErr error
	}{
		{amount: 1, fee: 0, net: 1},
		{amount: 133, fee: 0, net: 133},
		{amount: 134, fee: 1, net: 133},
		{amount: 1000, fee: 7, net: 993},
		{amount: 10000, fee: 75, net: 9925},
		{amount: math.MaxUint64, wantErr: ErrOverflow},
	}
	for _, tc := range cases {
		fee, net, err := Fee(tc.amount)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("Fee(%d) err = %v, want %v", tc.amount, err, tc.wantErr)
		}
		if err != nil {
			continue
		}
		if fee != tc.fee || net != tc.net {
			t.Fatalf("Fee(%d) = (%d, %d), want (%d, %d)", tc.amount, fee, net, tc.fee, tc.net)
		}
		if fee+net != tc.amount {
			t.Fatalf("Fee(%d) does not conserve the stake", tc.amount)
		}
		again, _, _ := Fee(tc.amount)
		if again != fee {
			t.Fatalf("Fee(%d) not deterministic", tc.amount)
		}
	}
}

func TestPayout(t *testing.T) {
	resolved := func(w Winner, over, under uint64) Pool {
		return Pool{Status: StatusResolved, Winner: w, TotalOver: over, TotalUnder: under}
	}
	cases := []struct {
		name    string
		pool    Pool
		entry   Entry
		want    uint64
		wantErr error
	}{
		{"winner pro rata", resolved(WinnerOver, 1000, 500), Entry{Side: SideOver, Amount: 250}, 375, nil},
		{"sole winner takes all", resolved(WinnerUnder, 700, 300), Entry{Side: SideUnder, Amount: 300}, 1000, nil},
		{"floor rounding", resolved(WinnerOver, 3, 1), Entry{Side: SideOver, Amount: 1}, 1, nil},
		{"void refunds net stake", resolved(WinnerVoid, 1000, 500), Entry{Side: SideUnder, Amount: 500}, 500, nil},
		{"loser", resolved(WinnerOver, 1000, 500), Entry{Side: SideUnder, Amount: 500}, 0, ErrNotWinner},
		{"unresolved", Pool{Status: StatusLocked, TotalOver: 10}, Entry{Side: SideOver, Amount: 10}, 0, ErrPoolNotResolved},
		{"product overflow", resolved(WinnerOver, math.MaxUint64/2, 10), Entry{Side: SideOver, Amount: math.MaxUint64 / 2}, 0, ErrOverflow},
		{"total overflow", resolved(WinnerOver, math.MaxUint64, 1), Entry{Side: SideOver, Amount: 1}, 0, ErrOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Payout(tc.pool, tc.entry)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("payout = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPayoutsNeverExceedPool(t *testing.T) {
	p := Pool{Status: StatusResolved, Winner: WinnerOver, TotalUnder: 9_999}
	stakes := []uint64{1, 7, 333, 1_000, 4_242}
	for _, s := range stakes {
		p.TotalOver += s
	}
	total, _ := p.Total()
	var paid uint64
	for _, s := range stakes {
		got, err := Payout(p, Entry{Side: SideOver, Amount: s})
		if err != nil {
			t.Fatalf("payout: %v", err)
		}
		paid += got
	}
	if paid > total {
		t.Fatalf("paid %d out of a pool of %d", paid, total)
	}
	if total-paid >= uint64(len(stakes)) {
		t.Fatalf("rounding dust %d exceeds one unit per winner", total-paid)
	}
}
