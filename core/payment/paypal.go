package payment

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/chainacademy/config"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/plutov/paypal/v4"
)

const (
	paypalIntentCapture = "CAPTURE"
	paypalCompleted     = "COMPLETED"
	paypalRecipient     = "EMAIL"
)

// Paypal charges through orders the buyer approves, and pays instructors
// with batch payouts.
type Paypal struct {
	client   *paypal.Client
	cfg      config.Paypal
	currency string
}

func NewPaypal(client *paypal.Client, cfg config.Paypal, currency string) *Paypal {
	return &Paypal{client: client, cfg: cfg, currency: currency}
}

func (p *Paypal) Name() string { return "paypal" }

func (p *Paypal) Currency() string { return p.currency }

func (p *Paypal) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	value := money.String(ch.Amount)

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: ch.PaymentID,
		Items: []paypal.Item{{
			Quantity:    "1",
			Name:        ch.Title,
			Description: ch.Description,

			UnitAmount: &paypal.Money{
				Currency: ch.Currency,
				Value:    value,
			},
		}},

		Amount: &paypal.PurchaseUnitAmount{
			Currency: ch.Currency,
			Value:    value,

			Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
				Currency: ch.Currency,
				Value:    value,
			}},
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: p.cfg.ReturnURL,
		CancelURL: p.cfg.CancelURL,
	}

	ord, err := p.client.CreateOrder(ctx, paypalIntentCapture, units, nil, app)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("creating paypal order: %w", err)
	}

	res := ChargeResult{ProviderID: ord.ID}
	for _, l := range ord.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			res.RedirectURL = l.Href
			break
		}
	}
	return res, nil
}

// Capture collects an approved order.
func (p *Paypal) Capture(ctx context.Context, orderID string) error {
	resp, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return fmt.Errorf("capturing paypal order[%s]: %w", orderID, err)
	}

	if resp.Status != paypalCompleted {
		return fmt.Errorf("captured order[%s] with status[%s] different from '%s'", orderID, resp.Status, paypalCompleted)
	}
	return nil
}

func (p *Paypal) Payout(ctx context.Context, tr Transfer) (TransferResult, error) {
	po := paypal.Payout{
		SenderBatchHeader: &paypal.SenderBatchHeader{
			SenderBatchID: tr.PayoutID,
			EmailSubject:  "You have a payout from Chain Academy",
		},
		Items: []paypal.PayoutItem{{
			RecipientType: paypalRecipient,
			Receiver:      tr.Email,
			Note:          tr.Note,
			SenderItemID:  tr.PayoutID,

			Amount: &paypal.AmountPayout{
				Currency: tr.Currency,
				Value:    money.String(tr.Amount),
			},
		}},
	}

	resp, err := p.client.CreatePayout(ctx, po)
	if err != nil {
		return TransferResult{}, fmt.Errorf("creating paypal payout: %w", err)
	}
	if resp.BatchHeader == nil {
		return TransferResult{}, fmt.Errorf("paypal payout[%s] returned no batch header", tr.PayoutID)
	}

	h := resp.BatchHeader
	return TransferResult{ProviderID: h.PayoutBatchID, Done: h.BatchStatus == "SUCCESS"}, nil
}
