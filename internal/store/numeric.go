package store

import (
	"errors"
	"math/big"

	"prediction-pool/internal/pool"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ten       = big.NewInt(10)
	maxUint64 = new(big.Int).SetUint64(^uint64(0))
)

// uint64 columns are NUMERIC(20,0); BIGINT cannot hold the upper half of the range.
func numericParam(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func numericVal(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return 0, errors.New("numeric value is not a finite number")
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(ten, big.NewInt(int64(n.Exp)), nil))
	} else if n.Exp < 0 {
		var rem big.Int
		v.QuoRem(v, new(big.Int).Exp(ten, big.NewInt(int64(-n.Exp)), nil), &rem)
		if rem.Sign() != 0 {
			return 0, errors.New("numeric value has a fractional part")
		}
	}
	if v.Sign() < 0 || v.Cmp(maxUint64) > 0 {
		return 0, pool.ErrOverflow
	}
	return v.Uint64(), nil
}

func hashVal(b []byte) (pool.Hash32, error) {
	var h pool.Hash32
	if len(b) != len(h) {
		return h, pool.ErrInvalidHash
	}
	copy(h[:], b)
	return h, nil
}
