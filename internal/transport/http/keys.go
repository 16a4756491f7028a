package httptransport

import (
	"prediction-pool/internal/pool"
	"prediction-pool/internal/store"
)

// KeyDirectory maps API keys to principals. Only key hashes are held in memory.
type KeyDirectory struct {
	byHash map[string]pool.Principal
}

// NewKeyDirectory skips entries whose principal is not a valid identity.
func NewKeyDirectory(keys map[string]string) *KeyDirectory {
	d := &KeyDirectory{byHash: make(map[string]pool.Principal, len(keys))}
	for key, principal := range keys {
		p := pool.Principal(principal)
		if key == "" || p.Validate() != nil {
			continue
		}
		d.byHash[store.HashAPIKey(key)] = p
	}
	return d
}

func (d *KeyDirectory) Lookup(apiKey string) (pool.Principal, bool) {
	if d == nil || apiKey == "" {
		return "", false
	}
	p, ok := d.byHash[store.HashAPIKey(apiKey)]
	return p, ok
}

func (d *KeyDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byHash)
}
