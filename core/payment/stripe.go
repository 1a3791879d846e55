package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/irsalhamdi/chainacademy/config"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

var ErrUnsignedEvent = errors.New("received stripe event is not signed")

// Stripe charges through hosted checkout sessions. Payments complete when
// the checkout.session.completed webhook arrives.
type Stripe struct {
	api      *stripecl.API
	cfg      config.Stripe
	currency string
}

func NewStripe(api *stripecl.API, cfg config.Stripe, currency string) *Stripe {
	return &Stripe{api: api, cfg: cfg, currency: currency}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) Currency() string { return s.currency }

func (s *Stripe) Charge(ctx context.Context, ch Charge) (ChargeResult, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(ch.Title),
	}
	if ch.Description != "" {
		product.Description = stripe.String(ch.Description)
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(ch.PaymentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(ch.Currency)),
				TaxBehavior: stripe.String("inclusive"),
				UnitAmount:  stripe.Int64(int64(ch.Amount)),
				ProductData: product,
			},
		}},
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("creating stripe session: %w", err)
	}

	return ChargeResult{ProviderID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *Stripe) Payout(ctx context.Context, tr Transfer) (TransferResult, error) {
	return TransferResult{}, ErrPayoutUnsupported
}

// CompletedSession verifies a webhook payload and returns the id of the
// paid checkout session. ok is false for events that need no action.
func (s *Stripe) CompletedSession(payload []byte, signature string) (id string, ok bool, err error) {
	if signature == "" {
		return "", false, ErrUnsignedEvent
	}

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return "", false, fmt.Errorf("cannot construct stripe event: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return "", false, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", false, fmt.Errorf("unable to decode stripe event: %w", err)
	}

	if session.Mode != stripe.CheckoutSessionModePayment {
		return "", false, nil
	}

	return session.ID, true, nil
}
