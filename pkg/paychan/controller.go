// Package paychan implements two party payment channels with probabilistic
// settlement. The payer locks funds in an escrow account, accumulates
// payment intents and periodically asks for a draw that either pays the
// whole accumulated intent to the payee or leaves it pending.
package paychan

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/raulk/clock"
)

// ProgramID owns every channel account.
var ProgramID = identity.Identity(crypto.Keccak256Hash([]byte("powerpay/paychan")))

var _ Interface = (*Controller)(nil)

// Authenticator tells which identities signed the current request.
type Authenticator interface {
	IsAuthenticated(id identity.Identity) bool
}

// Ledger runs staged transactions against account storage.
type Ledger interface {
	Update(ctx context.Context, fn func(tx ledger.Store) error) error
	View(ctx context.Context, fn func(tx ledger.Store) error) error
}

// Accounts are the identities a request refers to. AddMicroPaymentIntent
// ignores Payee.
type Accounts struct {
	Payer   identity.Identity `json:"payer"`
	Payee   identity.Identity `json:"payee"`
	Channel identity.Identity `json:"channel"`
}

// Outcome describes one ProcessProbabilisticPayment call. Drawn is false when
// there was no intent to settle.
type Outcome struct {
	Drawn       bool   `json:"drawn"`
	RandomValue uint16 `json:"randomValue"`
	Threshold   uint16 `json:"threshold"`
	Executed    bool   `json:"executed"`
	Amount      uint64 `json:"amount"`
}

// Settlement reports where the escrow went on close.
type Settlement struct {
	ToPayee uint64 `json:"toPayee"`
	ToPayer uint64 `json:"toPayer"`
}

type Interface interface {
	InitChannel(ctx context.Context, auth Authenticator, a Accounts, amount, expiry uint64) error
	AddMicroPaymentIntent(ctx context.Context, auth Authenticator, a Accounts, amount uint64) error
	ProcessProbabilisticPayment(ctx context.Context, auth Authenticator, a Accounts, seed uint64) (Outcome, error)
	CloseChannel(ctx context.Context, auth Authenticator, a Accounts) (Settlement, error)
	// Channel returns the record stored at address and the escrow balance.
	Channel(ctx context.Context, address identity.Identity) (Record, uint64, error)
}

// Controller runs the channel lifecycle. Each operation is one ledger
// transaction: on error nothing is committed.
type Controller struct {
	ledger  Ledger
	clock   clock.Clock
	logger  logging.Logger
	metrics metrics
}

func New(l Ledger, c clock.Clock, logger logging.Logger) *Controller {
	return &Controller{
		ledger:  l,
		clock:   c,
		logger:  logger,
		metrics: newMetrics(),
	}
}

func (c *Controller) now() uint64 {
	return uint64(c.clock.Now().Unix())
}

// InitChannel creates the escrow account at a.Channel, funds it with amount
// plus the minimum reserve taken from the payer and stores a fresh record.
// The escrow can be neither the payer nor the payee of its own channel.
func (c *Controller) InitChannel(ctx context.Context, auth Authenticator, a Accounts, amount, expiry uint64) error {
	if !auth.IsAuthenticated(a.Payer) {
		return ErrUnauthenticated
	}
	if a.Channel == a.Payer || a.Channel == a.Payee {
		return fmt.Errorf("%w: channel %s is a party of itself", ErrIdentityMismatch, a.Channel)
	}

	err := c.ledger.Update(ctx, func(tx ledger.Store) error {
		if _, err := tx.Account(a.Channel); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyInitialized, a.Channel)
		} else if !errors.Is(err, ledger.ErrAccountNotFound) {
			return err
		}

		funds, carry := bits.Add64(tx.MinimumReserve(RecordSize), amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: amount %d overflows", ErrAllocationFailed, amount)
		}
		if err := tx.CreateAccount(a.Payer, a.Channel, ProgramID, RecordSize, funds); err != nil {
			return fmt.Errorf("%w: %v", ErrAllocationFailed, err)
		}

		return store(tx, a.Channel, Record{
			Initialized:          true,
			Payer:                a.Payer,
			Payee:                a.Payee,
			TotalAmount:          amount,
			ProbabilityThreshold: DefaultThreshold,
			ExpiryTimestamp:      expiry,
		})
	})
	if err != nil {
		return err
	}

	c.metrics.InitializedChannels.Inc()
	c.metrics.LockedAmount.Add(float64(amount))
	c.logger.Debugf("paychan: channel %s initialized: %d locked", a.Channel, amount)
	return nil
}

// AddMicroPaymentIntent grows the accumulated intent of a channel. No funds
// move.
func (c *Controller) AddMicroPaymentIntent(ctx context.Context, auth Authenticator, a Accounts, amount uint64) error {
	if !auth.IsAuthenticated(a.Payer) {
		return ErrUnauthenticated
	}

	var accumulated uint64
	err := c.ledger.Update(ctx, func(tx ledger.Store) error {
		r, err := load(tx, a.Channel)
		if err != nil {
			return err
		}
		if r.Payer != a.Payer {
			return fmt.Errorf("%w: %s is not the payer", ErrIdentityMismatch, a.Payer)
		}
		if r.Expired(c.now()) {
			return ErrExpiredChannel
		}

		accumulated = satAdd(r.AccumulatedIntent, amount)
		if satAdd(r.PaidAmount, accumulated) > r.TotalAmount {
			return fmt.Errorf("%w: paid %d and intent %d exceed total %d", ErrInsufficientFunds, r.PaidAmount, accumulated, r.TotalAmount)
		}
		r.AccumulatedIntent = accumulated

		return store(tx, a.Channel, r)
	})
	if err != nil {
		return err
	}

	c.metrics.Intents.Inc()
	c.metrics.IntentAmount.Add(float64(amount))
	c.logger.Debugf("paychan: channel %s intent added: %d, accumulated: %d", a.Channel, amount, accumulated)
	return nil
}

// ProcessProbabilisticPayment draws against the channel threshold and pays
// the whole accumulated intent to the payee on success.
func (c *Controller) ProcessProbabilisticPayment(ctx context.Context, auth Authenticator, a Accounts, seed uint64) (Outcome, error) {
	if !auth.IsAuthenticated(a.Payer) {
		return Outcome{}, ErrUnauthenticated
	}

	var o Outcome
	err := c.ledger.Update(ctx, func(tx ledger.Store) error {
		r, err := load(tx, a.Channel)
		if err != nil {
			return err
		}
		if err := matchParties(r, a); err != nil {
			return err
		}
		now := c.now()
		if r.Expired(now) {
			return ErrExpiredChannel
		}

		o = Outcome{Threshold: r.ProbabilityThreshold}
		if r.AccumulatedIntent == 0 {
			return nil
		}

		o.Drawn = true
		o.RandomValue = Draw(now, seed, r.AccumulatedIntent)
		if !Executes(o.RandomValue, r.ProbabilityThreshold) {
			return nil
		}

		escrow, err := tx.Balance(a.Channel)
		if err != nil {
			return err
		}
		if escrow < satAdd(tx.MinimumReserve(RecordSize), r.AccumulatedIntent) {
			return fmt.Errorf("%w: escrow holds %d", ErrInsufficientFunds, escrow)
		}
		if err := tx.Transfer(a.Channel, a.Payee, r.AccumulatedIntent); err != nil {
			return err
		}

		o.Executed = true
		o.Amount = r.AccumulatedIntent
		r.PaidAmount = satAdd(r.PaidAmount, r.AccumulatedIntent)
		r.AccumulatedIntent = 0

		return store(tx, a.Channel, r)
	})
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case !o.Drawn:
		c.logger.Debugf("paychan: channel %s: no accumulated intent to process", a.Channel)
	case o.Executed:
		c.metrics.ExecutedDraws.Inc()
		c.metrics.PaidAmount.Add(float64(o.Amount))
		c.logger.Debugf("paychan: channel %s: payment of %d executed (draw %d < %d)", a.Channel, o.Amount, o.RandomValue, o.Threshold)
	default:
		c.metrics.SkippedDraws.Inc()
		c.logger.Tracef("paychan: channel %s: payment skipped (draw %d >= %d)", a.Channel, o.RandomValue, o.Threshold)
	}
	return o, nil
}

// CloseChannel pays any accumulated intent to the payee, returns the rest of
// the escrow to the payer and removes the channel. Expiry is not checked.
func (c *Controller) CloseChannel(ctx context.Context, auth Authenticator, a Accounts) (Settlement, error) {
	if !auth.IsAuthenticated(a.Payer) {
		return Settlement{}, ErrUnauthenticated
	}

	var s Settlement
	err := c.ledger.Update(ctx, func(tx ledger.Store) error {
		r, err := load(tx, a.Channel)
		if err != nil {
			return err
		}
		if err := matchParties(r, a); err != nil {
			return err
		}

		s = Settlement{}
		if r.AccumulatedIntent > 0 {
			if err := tx.Transfer(a.Channel, a.Payee, r.AccumulatedIntent); err != nil {
				if errors.Is(err, ledger.ErrInsufficientBalance) {
					return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
				}
				return err
			}
			s.ToPayee = r.AccumulatedIntent
		}

		// paid amounts already left the escrow, whatever is left belongs
		// to the payer
		remaining, err := tx.Balance(a.Channel)
		if err != nil {
			return err
		}
		if err := tx.Transfer(a.Channel, a.Payer, remaining); err != nil {
			return err
		}
		s.ToPayer = remaining

		return tx.CloseAccount(a.Channel)
	})
	if err != nil {
		return Settlement{}, err
	}

	c.metrics.ClosedChannels.Inc()
	c.metrics.PaidAmount.Add(float64(s.ToPayee))
	c.logger.Debugf("paychan: channel %s closed: %d settled to payee, %d returned to payer", a.Channel, s.ToPayee, s.ToPayer)
	return s, nil
}

func (c *Controller) Channel(ctx context.Context, address identity.Identity) (r Record, escrow uint64, err error) {
	err = c.ledger.View(ctx, func(tx ledger.Store) error {
		if r, err = load(tx, address); err != nil {
			return err
		}
		escrow, err = tx.Balance(address)
		return err
	})
	if err != nil {
		return Record{}, 0, err
	}
	return r, escrow, nil
}

func matchParties(r Record, a Accounts) error {
	if r.Payer != a.Payer || r.Payee != a.Payee {
		return fmt.Errorf("%w: channel is between %s and %s", ErrIdentityMismatch, r.Payer, r.Payee)
	}
	return nil
}

func load(tx ledger.Store, address identity.Identity) (Record, error) {
	acc, err := tx.Account(address)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return Record{}, fmt.Errorf("%w: %s", ErrRecordNotInitialized, address)
		}
		return Record{}, err
	}
	if acc.Owner != ProgramID {
		return Record{}, fmt.Errorf("%w: %s is owned by %s", ErrInvalidAccountOwner, address, acc.Owner)
	}
	var r Record
	if err := r.UnmarshalBinary(acc.Data); err != nil {
		return Record{}, err
	}
	if !r.Initialized {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotInitialized, address)
	}
	return r, nil
}

func store(tx ledger.Store, address identity.Identity, r Record) error {
	b, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Write(address, b)
}
