package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const maxWebhookBytes = 64 << 10

// Checkout groups what the payment handlers need.
type Checkout struct {
	DB         *sqlx.DB
	Processors Processors
	Default    string
	Payouts    Processor
	Stripe     *Stripe
	Paypal     *Paypal
	Background *background.Background
	Mailer     email.Mailer
	Log        logrus.FieldLogger
}

// SendReceipt mails a receipt for a successful payment in the background.
func (co Checkout) SendReceipt(ctx context.Context, p Payment) {
	if p.Status != Success {
		return
	}
	if err := Receipt(ctx, co.DB, co.Background, co.Mailer, p); err != nil {
		co.Log.WithError(err).WithField("payment", p.ID).Warn("payment receipt not sent")
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, validate.ErrInvalid), errors.Is(err, ErrAmountMismatch), errors.Is(err, ErrInvalidAmount):
		return weberr.Invalid(err)
	case errors.Is(err, ErrAlreadyEnrolled):
		return weberr.Conflict(err)
	case errors.Is(err, database.ErrDBNotFound):
		return weberr.NotFound(err)
	}
	return err
}

func (co Checkout) HandleProcess() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var pn PaymentNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.Check(pn); err != nil {
			return weberr.Invalid(err)
		}

		name := pn.Provider
		if name == "" {
			name = co.Default
		}
		proc, ok := co.Processors[name]
		if !ok {
			return weberr.BadRequest(fmt.Errorf("payment provider %q is not enabled", name))
		}

		p, err := Process(ctx, co.DB, proc, pn.Amount, pn.CourseID, clm.UserID)
		if err != nil {
			return mapError(err)
		}
		co.SendReceipt(ctx, p)

		status := http.StatusCreated
		if p.Status == Pending {
			status = http.StatusAccepted
		}
		return web.Respond(ctx, w, p, status)
	}
}

func (co Checkout) HandleList() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ps, err := ListByUser(ctx, co.DB, clm.UserID)
		if err != nil {
			return err
		}
		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

func (co Checkout) HandlePaypalCapture() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if co.Paypal == nil {
			return weberr.NotFound(errors.New("paypal is not enabled"))
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		providerID := web.Param(r, "id")
		p, err := FetchByProviderID(ctx, co.DB, providerID)
		if err != nil || p.UserID != clm.UserID {
			return weberr.NotFound(fmt.Errorf("payment bound to order[%s] not found", providerID))
		}

		if err := co.Paypal.Capture(ctx, providerID); err != nil {
			return err
		}

		p, err = Fulfill(ctx, co.DB, providerID)
		if err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}
		co.SendReceipt(ctx, p)

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func (co Checkout) HandleStripeWebhook() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if co.Stripe == nil {
			return weberr.NotFound(errors.New("stripe is not enabled"))
		}

		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		id, ok, err := co.Stripe.CompletedSession(b, r.Header.Get("Stripe-Signature"))
		if err != nil {
			return weberr.BadRequest(err)
		}
		if !ok {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		p, err := Fulfill(ctx, co.DB, id)
		if err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}
		co.SendReceipt(ctx, p)

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// PayoutRequest asks for a payout. InstructorID defaults to the caller's
// own profile; only admins may name another instructor.
type PayoutRequest struct {
	Amount       int    `json:"amount" validate:"gt=0"`
	InstructorID string `json:"instructorId" validate:"omitempty,uuid4"`
}

func (co Checkout) HandlePayout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req PayoutRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.Check(req); err != nil {
			return weberr.Invalid(err)
		}

		id := req.InstructorID
		if id == "" || !claims.IsAdmin(ctx) {
			in, err := instructor.FetchByUser(ctx, co.DB, clm.UserID)
			if err != nil {
				if errors.Is(err, database.ErrDBNotFound) {
					return weberr.Forbidden(errors.New("only instructors can request payouts"))
				}
				return err
			}
			if id != "" && id != in.ID {
				return weberr.Forbidden(errors.New("cannot request payouts for another instructor"))
			}
			id = in.ID
		}

		po, err := RequestPayout(ctx, co.DB, co.Payouts, req.Amount, id)
		if err != nil {
			return mapError(err)
		}

		if err := PayoutNotice(ctx, co.DB, co.Background, co.Mailer, po); err != nil {
			co.Log.WithError(err).WithField("payout", po.ID).Warn("payout notice not sent")
		}

		return web.Respond(ctx, w, po, http.StatusCreated)
	}
}
