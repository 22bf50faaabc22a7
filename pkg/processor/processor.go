// Package processor verifies signed transactions and dispatches them to the
// payment channel controller.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"go.uber.org/atomic"
)

// Result is returned for a successfully processed transaction. Outcome is
// set for probabilistic payments and Settlement for closes.
type Result struct {
	Instruction string              `json:"instruction"`
	Outcome     *paychan.Outcome    `json:"outcome,omitempty"`
	Settlement  *paychan.Settlement `json:"settlement,omitempty"`
}

// Stats count processed transactions since start.
type Stats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

type Interface interface {
	Process(ctx context.Context, tx *Transaction) (Result, error)
}

var _ Interface = (*Processor)(nil)

type Processor struct {
	channels  paychan.Interface
	logger    logging.Logger
	metrics   metrics
	processed atomic.Uint64
	failed    atomic.Uint64
}

func New(channels paychan.Interface, logger logging.Logger) *Processor {
	return &Processor{
		channels: channels,
		logger:   logger,
		metrics:  newMetrics(),
	}
}

// Process decodes the instruction, recovers the signers and runs the
// matching channel operation. The operation consumes the payer nonce of tx;
// resubmitting a processed transaction fails with paychan.ErrUnauthenticated.
func (p *Processor) Process(ctx context.Context, tx *Transaction) (res Result, err error) {
	var (
		in   paychan.Instruction
		name = "transaction"
	)
	defer func() {
		p.record(name, err)
	}()

	if err = in.UnmarshalBinary(tx.Instruction); err != nil {
		return Result{}, err
	}
	name = in.Tag.String()
	res.Instruction = name

	signers, err := tx.Signers()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", paychan.ErrUnauthenticated, err)
	}

	ctx = ledger.WithNonce(ctx, tx.Accounts.Payer, tx.Nonce)
	switch in.Tag {
	case paychan.TagInitChannel:
		err = p.channels.InitChannel(ctx, signers, tx.Accounts, in.Amount, in.ExpiryTimestamp)
	case paychan.TagAddMicroPaymentIntent:
		err = p.channels.AddMicroPaymentIntent(ctx, signers, tx.Accounts, in.Amount)
	case paychan.TagProcessProbabilisticPayment:
		var o paychan.Outcome
		o, err = p.channels.ProcessProbabilisticPayment(ctx, signers, tx.Accounts, in.RandomSeed)
		res.Outcome = &o
	case paychan.TagCloseChannel:
		var s paychan.Settlement
		s, err = p.channels.CloseChannel(ctx, signers, tx.Accounts)
		res.Settlement = &s
	}
	if errors.Is(err, ledger.ErrInvalidNonce) {
		return Result{}, fmt.Errorf("%w: %v", paychan.ErrUnauthenticated, err)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (p *Processor) record(name string, err error) {
	if err != nil {
		p.failed.Inc()
		p.metrics.FailedTransactions.WithLabelValues(errorKind(err)).Inc()
		p.logger.Debugf("processor: %s failed: %v", name, err)
		return
	}
	p.processed.Inc()
	p.metrics.ProcessedTransactions.WithLabelValues(name).Inc()
}

func (p *Processor) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{paychan.ErrMalformedRequest, "malformed_request"},
	{paychan.ErrUnauthenticated, "unauthenticated"},
	{paychan.ErrRecordNotInitialized, "record_not_initialized"},
	{paychan.ErrIdentityMismatch, "identity_mismatch"},
	{paychan.ErrExpiredChannel, "expired_channel"},
	{paychan.ErrInsufficientFunds, "insufficient_funds"},
	{paychan.ErrAllocationFailed, "allocation_failed"},
	{paychan.ErrAlreadyInitialized, "already_initialized"},
	{paychan.ErrInvalidAccountOwner, "invalid_account_owner"},
	{paychan.ErrInvalidRecord, "invalid_record"},
}

func errorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
