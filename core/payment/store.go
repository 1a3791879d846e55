package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/chainacademy/database"
	"github.com/jmoiron/sqlx"
)

const selectPayment = `
	SELECT payment_id, user_id, course_id, amount, currency, provider, provider_id,
		status, redirect_url, created_at, updated_at
	FROM payments`

func Create(ctx context.Context, db sqlx.ExtContext, p Payment) error {
	const q = `
	INSERT INTO payments
		(payment_id, user_id, course_id, amount, currency, provider, provider_id,
		status, redirect_url, created_at, updated_at)
	VALUES
		(:payment_id, :user_id, :course_id, :amount, :currency, :provider, :provider_id,
		:status, :redirect_url, :created_at, :updated_at)`

	if err := database.NamedExec(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Payment, error) {
	var p Payment
	if err := database.Get(ctx, db, &p, selectPayment+` WHERE payment_id = ?`, id); err != nil {
		return Payment{}, fmt.Errorf("selecting payment[%s]: %w", id, err)
	}
	return p, nil
}

func FetchByProviderID(ctx context.Context, db sqlx.ExtContext, providerID string) (Payment, error) {
	var p Payment
	if err := database.Get(ctx, db, &p, selectPayment+` WHERE provider_id = ?`, providerID); err != nil {
		return Payment{}, fmt.Errorf("selecting payment by provider id[%s]: %w", providerID, err)
	}
	return p, nil
}

func ListByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Payment, error) {
	ps := []Payment{}
	q := selectPayment + ` WHERE user_id = ? ORDER BY created_at DESC`
	if err := database.Select(ctx, db, &ps, q, userID); err != nil {
		return nil, fmt.Errorf("selecting payments of user[%s]: %w", userID, err)
	}
	return ps, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `
	UPDATE payments SET
		provider_id = :provider_id,
		status = :status,
		redirect_url = :redirect_url,
		updated_at = :updated_at
	WHERE payment_id = :payment_id`

	if err := database.NamedExec(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating payment[%s]: %w", up.ID, err)
	}
	return nil
}

// expirePending flags pending payments created before cutoff as expired.
func expirePending(ctx context.Context, db sqlx.ExtContext, cutoff time.Time) (int, error) {
	const q = `
	UPDATE payments SET status = ?, updated_at = ?
	WHERE status = ? AND created_at < ?`

	n, err := database.Exec(ctx, db, q, Expired, time.Now().UTC(), Pending, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expiring payments: %w", err)
	}
	return int(n), nil
}

func CreatePayout(ctx context.Context, db sqlx.ExtContext, p Payout) error {
	const q = `
	INSERT INTO payouts
		(payout_id, instructor_id, amount, currency, provider, provider_id, status, created_at, updated_at)
	VALUES
		(:payout_id, :instructor_id, :amount, :currency, :provider, :provider_id, :status, :created_at, :updated_at)`

	if err := database.NamedExec(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting payout: %w", err)
	}
	return nil
}

func updatePayout(ctx context.Context, db sqlx.ExtContext, p Payout) error {
	const q = `
	UPDATE payouts SET provider_id = :provider_id, status = :status, updated_at = :updated_at
	WHERE payout_id = :payout_id`

	if err := database.NamedExec(ctx, db, q, p); err != nil {
		return fmt.Errorf("updating payout[%s]: %w", p.ID, err)
	}
	return nil
}

func ListPayouts(ctx context.Context, db sqlx.ExtContext, instructorID string) ([]Payout, error) {
	ps := []Payout{}
	const q = `
	SELECT payout_id, instructor_id, amount, currency, provider, provider_id, status, created_at, updated_at
	FROM payouts WHERE instructor_id = ? ORDER BY created_at DESC`
	if err := database.Select(ctx, db, &ps, q, instructorID); err != nil {
		return nil, fmt.Errorf("selecting payouts of instructor[%s]: %w", instructorID, err)
	}
	return ps, nil
}
