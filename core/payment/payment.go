package payment

import "time"

type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Expired Status = "expired"
	Failed  Status = "failed"
)

// ProviderFree marks payments for courses that cost nothing.
const ProviderFree = "free"

type Payment struct {
	ID          string    `json:"id" db:"payment_id"`
	UserID      string    `json:"userId" db:"user_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Amount      int       `json:"amount" db:"amount"`
	Currency    string    `json:"currency" db:"currency"`
	Provider    string    `json:"provider" db:"provider"`
	ProviderID  string    `json:"providerId" db:"provider_id"`
	Status      Status    `json:"status" db:"status"`
	RedirectURL string    `json:"redirectUrl,omitempty" db:"redirect_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type PaymentNew struct {
	CourseID string `json:"courseId" validate:"required,uuid4"`
	Amount   int    `json:"amount" validate:"gte=0"`
	Provider string `json:"provider" validate:"omitempty,oneof=mock stripe paypal"`
}

type Payout struct {
	ID           string    `json:"id" db:"payout_id"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	Amount       int       `json:"amount" db:"amount"`
	Currency     string    `json:"currency" db:"currency"`
	Provider     string    `json:"provider" db:"provider"`
	ProviderID   string    `json:"providerId" db:"provider_id"`
	Status       Status    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type PayoutNew struct {
	Amount int `json:"amount" validate:"gt=0"`
}

type StatusUp struct {
	ID          string    `db:"payment_id"`
	ProviderID  string    `db:"provider_id"`
	Status      Status    `db:"status"`
	RedirectURL string    `db:"redirect_url"`
	UpdatedAt   time.Time `db:"updated_at"`
}
