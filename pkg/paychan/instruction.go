package paychan

import (
	"encoding/binary"
	"fmt"
)

// Tag identifies an instruction variant on the wire.
type Tag uint8

const (
	TagInitChannel Tag = iota
	TagAddMicroPaymentIntent
	TagProcessProbabilisticPayment
	TagCloseChannel
)

func (t Tag) String() string {
	switch t {
	case TagInitChannel:
		return "InitChannel"
	case TagAddMicroPaymentIntent:
		return "AddMicroPaymentIntent"
	case TagProcessProbabilisticPayment:
		return "ProcessProbabilisticPayment"
	case TagCloseChannel:
		return "CloseChannel"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Instruction is one of the four channel requests. Only the fields of the
// variant named by Tag are encoded.
type Instruction struct {
	Tag             Tag
	Amount          uint64
	ExpiryTimestamp uint64
	RandomSeed      uint64
}

func InitChannel(amount, expiry uint64) Instruction {
	return Instruction{Tag: TagInitChannel, Amount: amount, ExpiryTimestamp: expiry}
}

func AddMicroPaymentIntent(amount uint64) Instruction {
	return Instruction{Tag: TagAddMicroPaymentIntent, Amount: amount}
}

func ProcessProbabilisticPayment(seed uint64) Instruction {
	return Instruction{Tag: TagProcessProbabilisticPayment, RandomSeed: seed}
}

func CloseChannel() Instruction {
	return Instruction{Tag: TagCloseChannel}
}

func (in Instruction) payloadSize() (int, error) {
	switch in.Tag {
	case TagInitChannel:
		return 16, nil
	case TagAddMicroPaymentIntent, TagProcessProbabilisticPayment:
		return 8, nil
	case TagCloseChannel:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unknown tag %d", ErrMalformedRequest, in.Tag)
	}
}

// MarshalBinary encodes the tag byte followed by the little endian payload.
func (in Instruction) MarshalBinary() ([]byte, error) {
	n, err := in.payloadSize()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 1+n)
	b[0] = byte(in.Tag)
	switch in.Tag {
	case TagInitChannel:
		binary.LittleEndian.PutUint64(b[1:], in.Amount)
		binary.LittleEndian.PutUint64(b[9:], in.ExpiryTimestamp)
	case TagAddMicroPaymentIntent:
		binary.LittleEndian.PutUint64(b[1:], in.Amount)
	case TagProcessProbabilisticPayment:
		binary.LittleEndian.PutUint64(b[1:], in.RandomSeed)
	}
	return b, nil
}

// UnmarshalBinary decodes an instruction. Unknown tags, short payloads and
// trailing bytes fail with ErrMalformedRequest.
func (in *Instruction) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty instruction", ErrMalformedRequest)
	}
	v := Instruction{Tag: Tag(b[0])}
	n, err := v.payloadSize()
	if err != nil {
		return err
	}
	if len(b)-1 != n {
		return fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrMalformedRequest, v.Tag, len(b)-1, n)
	}
	switch v.Tag {
	case TagInitChannel:
		v.Amount = binary.LittleEndian.Uint64(b[1:])
		v.ExpiryTimestamp = binary.LittleEndian.Uint64(b[9:])
	case TagAddMicroPaymentIntent:
		v.Amount = binary.LittleEndian.Uint64(b[1:])
	case TagProcessProbabilisticPayment:
		v.RandomSeed = binary.LittleEndian.Uint64(b[1:])
	}
	*in = v
	return nil
}
