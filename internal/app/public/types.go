package public

import "prediction-pool/internal/pool"

// PoolItem is a pool as clients see it: the stored record plus how it behaves right now.
type PoolItem struct {
	pool.Pool
	EffectiveStatus pool.Status `json:"effective_status"`
	TotalVolume     uint64      `json:"total_volume"`
}

type PoolsResponse struct {
	Items  []PoolItem `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type EntriesResponse struct {
	Items  []pool.Entry `json:"items"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// QuoteResponse previews a claim. Payout is zero whenever Claimable is false.
type QuoteResponse struct {
	PoolID    uint64         `json:"pool_id"`
	User      pool.Principal `json:"user"`
	Side      pool.Side      `json:"side"`
	Amount    uint64         `json:"amount"`
	Claimed   bool           `json:"claimed"`
	Claimable bool           `json:"claimable"`
	Payout    uint64         `json:"payout"`
	Reason    string         `json:"reason,omitempty"`
}
