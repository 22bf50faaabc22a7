// Package ledger keeps balances and program data of accounts addressed by
// 32-byte identities. All changes of one Update are staged in memory and
// committed with a single state store batch.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strings"
	"sync"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/storage"
)

const (
	// AccountStorageOverhead is added to the data size of every account
	// when computing its minimum reserve.
	AccountStorageOverhead = 128
	// DefaultRentPerByte is the rent charged per stored byte and period.
	DefaultRentPerByte = 3480
	// DefaultRentExemptionMultiplier is the number of periods an account
	// must prepay to be kept alive.
	DefaultRentExemptionMultiplier = 2

	accountKeyPrefix = "ledger_account_"
	nonceKeyPrefix   = "ledger_nonce_"
)

var (
	ErrAccountNotFound     = errors.New("ledger: account not found")
	ErrAccountExists       = errors.New("ledger: account already exists")
	ErrAccountNotEmpty     = errors.New("ledger: account balance is not zero")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInsufficientReserve = errors.New("ledger: reserve below minimum")
	ErrBalanceOverflow     = errors.New("ledger: balance overflow")
	ErrDataSize            = errors.New("ledger: data size mismatch")
	ErrReadOnly            = errors.New("ledger: read only transaction")
	ErrInvalidNonce        = errors.New("ledger: invalid nonce")
)

// Store is the view of the ledger available inside one transaction.
type Store interface {
	// CreateAccount creates address owned by owner with size bytes of zeroed
	// data, funded with reserved taken from funder.
	CreateAccount(funder, address, owner identity.Identity, size int, reserved uint64) error
	Account(address identity.Identity) (Account, error)
	Read(address identity.Identity) ([]byte, error)
	Write(address identity.Identity, data []byte) error
	Transfer(from, to identity.Identity, amount uint64) error
	Balance(address identity.Identity) (uint64, error)
	MinimumReserve(size int) uint64
	// CloseAccount removes an account whose balance is zero.
	CloseAccount(address identity.Identity) error
}

// Options configure rent. Zero values select the defaults.
type Options struct {
	RentPerByte             uint64
	RentExemptionMultiplier uint64
}

type nonceContextKey struct{}

type nonceClaim struct {
	signer identity.Identity
	nonce  uint64
}

// WithNonce returns a context under which Update consumes nonce of signer in
// the same commit as its other changes. Update fails with ErrInvalidNonce
// unless nonce is the next unused nonce of signer.
func WithNonce(ctx context.Context, signer identity.Identity, nonce uint64) context.Context {
	return context.WithValue(ctx, nonceContextKey{}, nonceClaim{signer: signer, nonce: nonce})
}

// Ledger serializes transactions over a state store.
type Ledger struct {
	mu                      sync.Mutex
	store                   storage.StateStorer
	rentPerByte             uint64
	rentExemptionMultiplier uint64
	logger                  logging.Logger
	metrics                 metrics
}

func New(store storage.StateStorer, o Options, logger logging.Logger) *Ledger {
	if o.RentPerByte == 0 {
		o.RentPerByte = DefaultRentPerByte
	}
	if o.RentExemptionMultiplier == 0 {
		o.RentExemptionMultiplier = DefaultRentExemptionMultiplier
	}
	return &Ledger{
		store:                   store,
		rentPerByte:             o.RentPerByte,
		rentExemptionMultiplier: o.RentExemptionMultiplier,
		logger:                  logger,
		metrics:                 newMetrics(),
	}
}

// MinimumReserve returns the balance an account with size bytes of data must
// hold to stay alive.
func (l *Ledger) MinimumReserve(size int) uint64 {
	return mulSat(mulSat(uint64(AccountStorageOverhead+size), l.rentPerByte), l.rentExemptionMultiplier)
}

// Update runs fn in a transaction. Changes are committed atomically if fn
// returns nil and the context is not done, otherwise they are discarded.
func (l *Ledger) Update(ctx context.Context, fn func(tx Store) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(l, false)
	if c, ok := ctx.Value(nonceContextKey{}).(nonceClaim); ok {
		if err := t.useNonce(c.signer, c.nonce); err != nil {
			l.metrics.RolledBackTransactions.Inc()
			return err
		}
	}
	if err := fn(t); err != nil {
		l.metrics.RolledBackTransactions.Inc()
		return err
	}
	if err := ctx.Err(); err != nil {
		l.metrics.RolledBackTransactions.Inc()
		return err
	}
	if err := t.commit(); err != nil {
		l.metrics.RolledBackTransactions.Inc()
		return fmt.Errorf("ledger commit: %w", err)
	}
	l.metrics.CommittedTransactions.Inc()
	l.metrics.record(t.counts)
	return nil
}

// View runs fn against a read only transaction.
func (l *Ledger) View(ctx context.Context, fn func(tx Store) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newTx(l, true))
}

// Nonce returns the next nonce signer has to use.
func (l *Ledger) Nonce(ctx context.Context, signer identity.Identity) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.nonce(signer)
}

func (l *Ledger) nonce(signer identity.Identity) (uint64, error) {
	var n uint64
	if err := l.store.Get(nonceKey(signer), &n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// Account returns the stored account at address.
func (l *Ledger) Account(ctx context.Context, address identity.Identity) (a Account, err error) {
	err = l.View(ctx, func(tx Store) error {
		a, err = tx.Account(address)
		return err
	})
	return a, err
}

// Balance returns the balance of address.
func (l *Ledger) Balance(ctx context.Context, address identity.Identity) (uint64, error) {
	a, err := l.Account(ctx, address)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Mint credits amount to address out of thin air, creating a system owned
// account if none exists. It backs the development faucet.
func (l *Ledger) Mint(ctx context.Context, address identity.Identity, amount uint64) error {
	return l.Update(ctx, func(s Store) error {
		t := s.(*tx)
		a, err := t.load(address)
		switch {
		case errors.Is(err, ErrAccountNotFound):
			a = &Account{Owner: SystemOwner}
		case err != nil:
			return err
		}
		balance, carry := bits.Add64(a.Balance, amount, 0)
		if carry != 0 {
			return ErrBalanceOverflow
		}
		a.Balance = balance
		t.stage(address, a)
		t.counts.minted += amount
		l.logger.Debugf("ledger: minted %d to %s", amount, address)
		return nil
	})
}

// IterFunc is called for every stored account.
type IterFunc func(address identity.Identity, a Account) (stop bool, err error)

// Iterate walks all committed accounts.
func (l *Ledger) Iterate(fn IterFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.Iterate(accountKeyPrefix, func(key, value []byte) (bool, error) {
		address, err := identity.Parse(strings.TrimPrefix(string(key), accountKeyPrefix))
		if err != nil {
			return true, fmt.Errorf("ledger: invalid account key %q: %w", key, err)
		}
		var a Account
		if err := a.UnmarshalBinary(value); err != nil {
			return true, err
		}
		return fn(address, a)
	})
}

func accountKey(address identity.Identity) string {
	return accountKeyPrefix + address.String()
}

func nonceKey(signer identity.Identity) string {
	return nonceKeyPrefix + signer.String()
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}
