package paychan

import (
	"encoding/binary"
	"fmt"

	"github.com/gauss-project/powerpay/pkg/identity"
)

// RecordSize is the length of an encoded Record.
const RecordSize = 1 + identity.Size + identity.Size + 8 + 8 + 8 + 2 + 8

// Record is the persisted state of one channel.
type Record struct {
	Initialized          bool              `json:"initialized"`
	Payer                identity.Identity `json:"payer"`
	Payee                identity.Identity `json:"payee"`
	TotalAmount          uint64            `json:"totalAmount"`
	PaidAmount           uint64            `json:"paidAmount"`
	AccumulatedIntent    uint64            `json:"accumulatedIntent"`
	ProbabilityThreshold uint16            `json:"probabilityThreshold"`
	ExpiryTimestamp      uint64            `json:"expiryTimestamp"`
}

// Expired reports whether the record expired at now. A zero expiry never
// expires.
func (r Record) Expired(now uint64) bool {
	return r.ExpiryTimestamp > 0 && now > r.ExpiryTimestamp
}

// Pending is the part of the total that is neither paid nor promised.
func (r Record) Pending() uint64 {
	return satSub(satSub(r.TotalAmount, r.PaidAmount), r.AccumulatedIntent)
}

func (r Record) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	if r.Initialized {
		b[0] = 1
	}
	off := 1
	off += copy(b[off:], r.Payer[:])
	off += copy(b[off:], r.Payee[:])
	binary.LittleEndian.PutUint64(b[off:], r.TotalAmount)
	off += 8
	binary.LittleEndian.PutUint64(b[off:], r.PaidAmount)
	off += 8
	binary.LittleEndian.PutUint64(b[off:], r.AccumulatedIntent)
	off += 8
	binary.LittleEndian.PutUint16(b[off:], r.ProbabilityThreshold)
	off += 2
	binary.LittleEndian.PutUint64(b[off:], r.ExpiryTimestamp)
	return b, nil
}

func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fmt.Errorf("%w: %d bytes", ErrInvalidRecord, len(b))
	}
	var v Record
	switch b[0] {
	case 0:
	case 1:
		v.Initialized = true
	default:
		return fmt.Errorf("%w: initialized flag %d", ErrInvalidRecord, b[0])
	}
	off := 1
	off += copy(v.Payer[:], b[off:])
	off += copy(v.Payee[:], b[off:])
	v.TotalAmount = binary.LittleEndian.Uint64(b[off:])
	off += 8
	v.PaidAmount = binary.LittleEndian.Uint64(b[off:])
	off += 8
	v.AccumulatedIntent = binary.LittleEndian.Uint64(b[off:])
	off += 8
	v.ProbabilityThreshold = binary.LittleEndian.Uint16(b[off:])
	off += 2
	v.ExpiryTimestamp = binary.LittleEndian.Uint64(b[off:])

	if v.ProbabilityThreshold > Basis {
		return fmt.Errorf("%w: threshold %d", ErrInvalidRecord, v.ProbabilityThreshold)
	}
	*r = v
	return nil
}
