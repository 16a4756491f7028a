package pool

import (
	"bytes"
	"encoding/binary"
)

// Fixed-width little-endian record layouts.
const (
	PoolRecordSize  = 156
	EntryRecordSize = 66
)

var le = binary.LittleEndian

func putPrincipal(dst []byte, p Principal) {
	copy(dst[:PrincipalMaxLen], p)
}

func readPrincipal(src []byte) Principal {
	return Principal(bytes.TrimRight(src[:PrincipalMaxLen], "\x00"))
}

func (p Pool) MarshalBinary() ([]byte, error) {
	if err := p.Authority.Validate(); err != nil {
		return nil, err
	}
	if !p.Status.Valid() || !p.Winner.Valid() {
		return nil, ErrInvalidRecord
	}
	b := make([]byte, PoolRecordSize)
	putPrincipal(b[0:32], p.Authority)
	le.PutUint64(b[32:], p.PoolID)
	le.PutUint64(b[40:], uint64(p.StartTS))
	le.PutUint64(b[48:], uint64(p.LockTS))
	le.PutUint64(b[56:], uint64(p.EndTS))
	le.PutUint16(b[64:], uint16(p.LineBps))
	b[66] = byte(p.Status)
	le.PutUint64(b[67:], p.TotalOver)
	le.PutUint64(b[75:], p.TotalUnder)
	copy(b[83:115], p.AICommit[:])
	b[115] = byte(p.Winner)
	copy(b[116:148], p.ProofHash[:])
	le.PutUint64(b[148:], p.Version)
	return b, nil
}

func (p *Pool) UnmarshalBinary(b []byte) error {
	if len(b) != PoolRecordSize {
		return ErrInvalidRecord
	}
	out := Pool{
		Authority:  readPrincipal(b[0:32]),
		PoolID:     le.Uint64(b[32:]),
		StartTS:    int64(le.Uint64(b[40:])),
		LockTS:     int64(le.Uint64(b[48:])),
		EndTS:      int64(le.Uint64(b[56:])),
		LineBps:    int16(le.Uint16(b[64:])),
		Status:     Status(b[66]),
		TotalOver:  le.Uint64(b[67:]),
		TotalUnder: le.Uint64(b[75:]),
		Winner:     Winner(b[115]),
		Version:    le.Uint64(b[148:]),
	}
	copy(out.AICommit[:], b[83:115])
	copy(out.ProofHash[:], b[116:148])
	if !out.Status.Valid() || !out.Winner.Valid() {
		return ErrInvalidRecord
	}
	*p = out
	return nil
}

func (e Entry) MarshalBinary() ([]byte, error) {
	if err := e.User.Validate(); err != nil {
		return nil, err
	}
	if !e.Side.Valid() {
		return nil, ErrInvalidRecord
	}
	b := make([]byte, EntryRecordSize)
	le.PutUint64(b[0:], e.PoolID)
	putPrincipal(b[8:40], e.User)
	b[40] = byte(e.Side)
	le.PutUint64(b[41:], e.Amount)
	le.PutUint64(b[49:], e.FeePaid)
	if e.Claimed {
		b[57] = 1
	}
	le.PutUint64(b[58:], e.Version)
	return b, nil
}

func (e *Entry) UnmarshalBinary(b []byte) error {
	if len(b) != EntryRecordSize || b[57] > 1 {
		return ErrInvalidRecord
	}
	out := Entry{
		PoolID:  le.Uint64(b[0:]),
		User:    readPrincipal(b[8:40]),
		Side:    Side(b[40]),
		Amount:  le.Uint64(b[41:]),
		FeePaid: le.Uint64(b[49:]),
		Claimed: b[57] == 1,
		Version: le.Uint64(b[58:]),
	}
	if !out.Side.Valid() {
		return ErrInvalidRecord
	}
	*e = out
	return nil
}

// PoolKey is the storage key of a pool record.
func PoolKey(poolID uint64) []byte {
	k := make([]byte, 0, 12)
	k = append(k, "pool"...)
	return le.AppendUint64(k, poolID)
}

// EntryKey is the storage key of one participant's entry in a pool.
func EntryKey(poolID uint64, user Principal) []byte {
	k := make([]byte, 0, 13+PrincipalMaxLen)
	k = append(k, "entry"...)
	k = le.AppendUint64(k, poolID)
	var u [PrincipalMaxLen]byte
	copy(u[:], user)
	return append(k, u[:]...)
}
