package processor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gauss-project/powerpay/pkg/identity"
	"github.com/gauss-project/powerpay/pkg/ledger"
	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/paychan"
	"github.com/gauss-project/powerpay/pkg/processor"
	"github.com/gauss-project/powerpay/pkg/statestore/mock"
	"github.com/google/go-cmp/cmp"
	"github.com/raulk/clock"
)

type testSetup struct {
	processor *processor.Processor
	ledger    *ledger.Ledger
	payer     identity.Signer
	accounts  paychan.Accounts
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	logger := logging.New(io.Discard, 0)
	l := ledger.New(mock.NewStateStore(), ledger.Options{}, logger)
	c := clock.NewMock()
	c.Set(time.Unix(1_700_000_000, 0))

	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	payer := identity.NewSigner(key)
	payee, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	channel, err := identity.Random()
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Mint(context.Background(), payer.Identity(), 10_000_000); err != nil {
		t.Fatal(err)
	}

	return &testSetup{
		processor: processor.New(paychan.New(l, c, logger), logger),
		ledger:    l,
		payer:     payer,
		accounts: paychan.Accounts{
			Payer:   payer.Identity(),
			Payee:   payee,
			Channel: channel,
		},
	}
}

// signed builds a transaction with the next payer nonce.
func (s *testSetup) signed(t *testing.T, in paychan.Instruction, signers ...identity.Signer) *processor.Transaction {
	t.Helper()
	nonce, err := s.ledger.Nonce(context.Background(), s.accounts.Payer)
	if err != nil {
		t.Fatal(err)
	}
	tx, err := processor.NewTransaction(in, s.accounts, nonce)
	if err != nil {
		t.Fatal(err)
	}
	for _, signer := range signers {
		if err := tx.Sign(signer); err != nil {
			t.Fatal(err)
		}
	}
	return tx
}

func (s *testSetup) process(t *testing.T, tx *processor.Transaction) processor.Result {
	t.Helper()
	res, err := s.processor.Process(context.Background(), tx)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestProcessLifecycle(t *testing.T) {
	s := newTestSetup(t)

	res := s.process(t, s.signed(t, paychan.InitChannel(100_000, 0), s.payer))
	if diff := cmp.Diff(processor.Result{Instruction: "InitChannel"}, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	s.process(t, s.signed(t, paychan.AddMicroPaymentIntent(10_000), s.payer))

	// 1_700_000_000 and the intent are multiples of 10000
	res = s.process(t, s.signed(t, paychan.ProcessProbabilisticPayment(42), s.payer))
	want := processor.Result{
		Instruction: "ProcessProbabilisticPayment",
		Outcome: &paychan.Outcome{
			Drawn:       true,
			RandomValue: 42,
			Threshold:   paychan.DefaultThreshold,
			Executed:    true,
			Amount:      10_000,
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	res = s.process(t, s.signed(t, paychan.CloseChannel(), s.payer))
	if res.Settlement == nil || res.Settlement.ToPayee != 0 {
		t.Fatalf("unexpected settlement %+v", res.Settlement)
	}

	payee, err := s.ledger.Balance(context.Background(), s.accounts.Payee)
	if err != nil {
		t.Fatal(err)
	}
	if payee != 10_000 {
		t.Fatalf("got payee balance %d, want 10000", payee)
	}
	if got := s.processor.Stats(); got != (processor.Stats{Processed: 4}) {
		t.Fatalf("got stats %+v", got)
	}
}

func TestProcessAuthentication(t *testing.T) {
	s := newTestSetup(t)

	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	other := identity.NewSigner(key)

	tampered := s.signed(t, paychan.InitChannel(1, 0), s.payer)
	tampered.Instruction = append([]byte(nil), tampered.Instruction...)
	tampered.Instruction[1] = 2

	invalid := s.signed(t, paychan.InitChannel(1, 0))
	invalid.Signatures = append(invalid.Signatures, []byte{1, 2, 3})

	for _, tc := range []struct {
		name string
		tx   *processor.Transaction
	}{
		{name: "unsigned", tx: s.signed(t, paychan.InitChannel(1, 0))},
		{name: "signed by another key", tx: s.signed(t, paychan.InitChannel(1, 0), other)},
		{name: "tampered instruction", tx: tampered},
		{name: "invalid signature", tx: invalid},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.processor.Process(context.Background(), tc.tx); !errors.Is(err, paychan.ErrUnauthenticated) {
				t.Fatalf("got error %v, want %v", err, paychan.ErrUnauthenticated)
			}
		})
	}

	// extra signatures do not hurt
	s.process(t, s.signed(t, paychan.InitChannel(1, 0), other, s.payer))
}

func TestProcessMalformed(t *testing.T) {
	s := newTestSetup(t)

	tx := s.signed(t, paychan.CloseChannel(), s.payer)
	tx.Instruction = append(tx.Instruction, 0)

	if _, err := s.processor.Process(context.Background(), tx); !errors.Is(err, paychan.ErrMalformedRequest) {
		t.Fatalf("got error %v, want %v", err, paychan.ErrMalformedRequest)
	}
	if got := s.processor.Stats(); got != (processor.Stats{Failed: 1}) {
		t.Fatalf("got stats %+v", got)
	}
}

func TestTransactionJSON(t *testing.T) {
	s := newTestSetup(t)
	tx := s.signed(t, paychan.AddMicroPaymentIntent(5), s.payer)

	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	var got processor.Transaction
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	signers, err := got.Signers()
	if err != nil {
		t.Fatal(err)
	}
	if !signers.IsAuthenticated(s.payer.Identity()) {
		t.Fatal("payer signature lost in encoding")
	}
}

func TestProcessResubmitted(t *testing.T) {
	s := newTestSetup(t)
	s.process(t, s.signed(t, paychan.InitChannel(100_000, 0), s.payer))

	tx := s.signed(t, paychan.AddMicroPaymentIntent(1000), s.payer)
	s.process(t, tx)
	for i := 0; i < 4; i++ {
		if _, err := s.processor.Process(context.Background(), tx); !errors.Is(err, paychan.ErrUnauthenticated) {
			t.Fatalf("submission %d: got error %v, want %v", i+2, err, paychan.ErrUnauthenticated)
		}
	}

	r, _, err := paychan.New(s.ledger, clock.NewMock(), logging.New(io.Discard, 0)).Channel(context.Background(), s.accounts.Channel)
	if err != nil {
		t.Fatal(err)
	}
	if r.AccumulatedIntent != 1000 {
		t.Fatalf("got accumulated intent %d, want 1000", r.AccumulatedIntent)
	}

	// a close signed for the current nonce cannot be replayed once the
	// channel address is initialized again
	closeTx := s.signed(t, paychan.CloseChannel(), s.payer)
	s.process(t, closeTx)
	s.process(t, s.signed(t, paychan.InitChannel(100_000, 0), s.payer))
	s.process(t, s.signed(t, paychan.AddMicroPaymentIntent(500), s.payer))
	if _, err := s.processor.Process(context.Background(), closeTx); !errors.Is(err, paychan.ErrUnauthenticated) {
		t.Fatalf("got error %v, want %v", err, paychan.ErrUnauthenticated)
	}
}

func TestProcessNonce(t *testing.T) {
	s := newTestSetup(t)

	// the nonce is signed
	tx := s.signed(t, paychan.InitChannel(1, 0), s.payer)
	tx.Nonce++
	if _, err := s.processor.Process(context.Background(), tx); !errors.Is(err, paychan.ErrUnauthenticated) {
		t.Fatalf("got error %v, want %v", err, paychan.ErrUnauthenticated)
	}

	// a future nonce is rejected until its turn
	next, err := processor.NewTransaction(paychan.AddMicroPaymentIntent(1), s.accounts, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := next.Sign(s.payer); err != nil {
		t.Fatal(err)
	}
	if _, err := s.processor.Process(context.Background(), next); !errors.Is(err, paychan.ErrUnauthenticated) {
		t.Fatalf("got error %v, want %v", err, paychan.ErrUnauthenticated)
	}

	// a failed operation leaves the nonce unused
	if _, err := s.processor.Process(context.Background(), s.signed(t, paychan.InitChannel(^uint64(0), 0), s.payer)); !errors.Is(err, paychan.ErrAllocationFailed) {
		t.Fatalf("got error %v, want %v", err, paychan.ErrAllocationFailed)
	}
	s.process(t, s.signed(t, paychan.InitChannel(1, 0), s.payer))
	s.process(t, next)
}
