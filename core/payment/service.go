package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/irsalhamdi/chainacademy/validate"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	ErrAmountMismatch  = errors.New("amount does not match the course price")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// Process charges the user for the course. Synchronous processors and free
// courses enroll the user right away; the others return a pending payment
// whose RedirectURL leads to the provider.
func Process(ctx context.Context, db *sqlx.DB, proc Processor, amount int, courseID string, userID string) (Payment, error) {
	c, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		return Payment{}, err
	}

	if amount != c.Price {
		return Payment{}, ErrAmountMismatch
	}

	enrolled, err := enrollment.Check(ctx, db, userID, courseID)
	if err != nil {
		return Payment{}, err
	}
	if enrolled {
		return Payment{}, ErrAlreadyEnrolled
	}

	now := time.Now().UTC()
	p := Payment{
		ID:        validate.GenerateID(),
		UserID:    userID,
		CourseID:  courseID,
		Amount:    amount,
		Currency:  proc.Currency(),
		Provider:  proc.Name(),
		Status:    Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if amount == 0 {
		p.Provider = ProviderFree
		p.ProviderID = ProviderFree + "_" + p.ID
	}

	if err := Create(ctx, db, p); err != nil {
		return Payment{}, err
	}

	if amount == 0 {
		return Fulfill(ctx, db, p.ProviderID)
	}

	res, err := proc.Charge(ctx, Charge{
		PaymentID:   p.ID,
		Amount:      amount,
		Currency:    p.Currency,
		Title:       c.Title,
		Description: c.Description,
	})
	if err != nil {
		up := StatusUp{ID: p.ID, Status: Failed, UpdatedAt: time.Now().UTC()}
		if uerr := UpdateStatus(ctx, db, up); uerr != nil {
			return Payment{}, fmt.Errorf("charging: %v: %w", err, uerr)
		}
		return Payment{}, fmt.Errorf("charging payment[%s] with %s: %w", p.ID, proc.Name(), err)
	}

	up := StatusUp{
		ID:          p.ID,
		ProviderID:  res.ProviderID,
		Status:      Pending,
		RedirectURL: res.RedirectURL,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := UpdateStatus(ctx, db, up); err != nil {
		return Payment{}, err
	}

	if res.Paid {
		return Fulfill(ctx, db, res.ProviderID)
	}

	return Fetch(ctx, db, p.ID)
}

// Fulfill marks the payment bound to providerID as paid and enrolls the
// buyer. Repeated calls are no-ops.
func Fulfill(ctx context.Context, db *sqlx.DB, providerID string) (Payment, error) {
	p, err := FetchByProviderID(ctx, db, providerID)
	if err != nil {
		return Payment{}, fmt.Errorf("fetching the payment bound to [%s]: %w", providerID, err)
	}
	if p.Status == Success {
		return p, nil
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		up := StatusUp{
			ID:          p.ID,
			ProviderID:  p.ProviderID,
			Status:      Success,
			RedirectURL: p.RedirectURL,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := UpdateStatus(ctx, tx, up); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		if _, err := enrollment.Enroll(ctx, tx, p.UserID, p.CourseID); err != nil {
			return fmt.Errorf("enrolling: %w", err)
		}
		return nil
	})
	if err != nil {
		return Payment{}, fmt.Errorf("fulfilling payment[%s] bound to [%s]: %w", p.ID, providerID, err)
	}

	return Fetch(ctx, db, p.ID)
}

// RequestPayout sends amount to the instructor through the processor.
func RequestPayout(ctx context.Context, db *sqlx.DB, proc Processor, amount int, instructorID string) (Payout, error) {
	if amount <= 0 {
		return Payout{}, ErrInvalidAmount
	}

	in, err := instructor.Fetch(ctx, db, instructorID)
	if err != nil {
		return Payout{}, err
	}

	now := time.Now().UTC()
	po := Payout{
		ID:           validate.GenerateID(),
		InstructorID: in.ID,
		Amount:       amount,
		Currency:     proc.Currency(),
		Provider:     proc.Name(),
		Status:       Pending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := CreatePayout(ctx, db, po); err != nil {
		return Payout{}, err
	}

	res, err := proc.Payout(ctx, Transfer{
		PayoutID: po.ID,
		Amount:   amount,
		Currency: po.Currency,
		Email:    in.PayoutEmail,
		Note:     "Chain Academy course earnings",
	})

	po.UpdatedAt = time.Now().UTC()
	switch {
	case err != nil:
		po.Status = Failed
	case res.Done:
		po.ProviderID, po.Status = res.ProviderID, Success
	default:
		po.ProviderID = res.ProviderID
	}

	if uerr := updatePayout(ctx, db, po); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return Payout{}, fmt.Errorf("paying out [%s] to instructor[%s]: %w", po.ID, in.ID, err)
	}

	return po, nil
}

// ExpireStale expires pending payments older than olderThan.
func ExpireStale(ctx context.Context, db sqlx.ExtContext, olderThan time.Duration) (int, error) {
	return expirePending(ctx, db, time.Now().UTC().Add(-olderThan))
}

// ScheduleExpiry registers ExpireStale on the cron scheduler.
func ScheduleExpiry(c *cron.Cron, schedule string, db *sqlx.DB, olderThan time.Duration, log logrus.FieldLogger) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := ExpireStale(ctx, db, olderThan)
		if err != nil {
			log.WithError(err).Error("expiring stale payments")
			return
		}
		if n > 0 {
			log.WithField("count", n).Info("expired stale payments")
		}
	})
}

// Receipt mails the buyer of a successful payment without blocking.
func Receipt(ctx context.Context, db sqlx.ExtContext, bg *background.Background, m email.Mailer, p Payment) error {
	u, err := user.Fetch(ctx, db, p.UserID)
	if err != nil {
		return err
	}
	c, err := course.Fetch(ctx, db, p.CourseID)
	if err != nil {
		return err
	}

	msg := email.PaymentReceipt(u.Name, u.Email, c.Title, money.Format(p.Amount))
	return bg.Go("payment-receipt", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return m.Send(ctx, msg)
	})
}

// PayoutNotice mails the instructor about a payout without blocking.
func PayoutNotice(ctx context.Context, db sqlx.ExtContext, bg *background.Background, m email.Mailer, po Payout) error {
	in, err := instructor.Fetch(ctx, db, po.InstructorID)
	if err != nil {
		return err
	}

	msg := email.PayoutRequested(in.Name, in.PayoutEmail, money.Format(po.Amount))
	return bg.Go("payout-notice", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return m.Send(ctx, msg)
	})
}
