package payment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/irsalhamdi/chainacademy/random"
)

var ErrPayoutUnsupported = errors.New("processor does not support payouts")

// Charge describes what the buyer is asked to pay.
type Charge struct {
	PaymentID   string
	Amount      int
	Currency    string
	Title       string
	Description string
}

type ChargeResult struct {
	ProviderID string
	// RedirectURL is where the buyer approves the payment, when the provider
	// needs it.
	RedirectURL string
	// Paid is set when the money was collected synchronously.
	Paid bool
}

// Transfer describes money sent to an instructor.
type Transfer struct {
	PayoutID string
	Amount   int
	Currency string
	Email    string
	Note     string
}

type TransferResult struct {
	ProviderID string
	Done       bool
}

// Processor talks to a payment provider.
type Processor interface {
	Name() string
	Currency() string
	Charge(ctx context.Context, ch Charge) (ChargeResult, error)
	Payout(ctx context.Context, tr Transfer) (TransferResult, error)
}

// Processors indexes the configured processors by name.
type Processors map[string]Processor

func NewProcessors(ps ...Processor) Processors {
	m := make(Processors, len(ps))
	for _, p := range ps {
		m[p.Name()] = p
	}
	return m
}

// Names lists the enabled processors alphabetically.
func (ps Processors) Names() []string {
	names := make([]string, 0, len(ps))
	for n := range ps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Mock accepts every charge and payout after an optional delay.
type Mock struct {
	currency string
	delay    time.Duration
	fail     error
}

func NewMock(currency string, delay time.Duration) *Mock {
	return &Mock{currency: currency, delay: delay}
}

// Failing makes every later call return err.
func (m *Mock) Failing(err error) *Mock {
	m.fail = err
	return m
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Currency() string { return m.currency }

func (m *Mock) wait(ctx context.Context) error {
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return m.fail
}

func (m *Mock) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	if err := m.wait(ctx); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{ProviderID: "mock_" + random.String(16), Paid: true}, nil
}

func (m *Mock) Payout(ctx context.Context, tr Transfer) (TransferResult, error) {
	if err := m.wait(ctx); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{ProviderID: "mock_po_" + random.String(16), Done: true}, nil
}
