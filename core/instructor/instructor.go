package instructor

import "time"

type Instructor struct {
	ID            string    `json:"id" db:"instructor_id"`
	UserID        string    `json:"-" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Avatar        string    `json:"avatar" db:"avatar"`
	Bio           string    `json:"bio" db:"bio"`
	Expertise     string    `json:"expertise" db:"expertise"`
	PayoutEmail   string    `json:"-" db:"payout_email"`
	WalletAddress string    `json:"walletAddress,omitempty" db:"wallet_address"`
	CourseCount   int       `json:"courseCount" db:"course_count"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Application is what a user submits to become an educator.
type Application struct {
	Name          string `json:"name" validate:"required,max=80"`
	Bio           string `json:"bio" validate:"required,min=20,max=2000"`
	Expertise     string `json:"expertise" validate:"required,max=200"`
	Avatar        string `json:"avatar" validate:"omitempty,url"`
	PayoutEmail   string `json:"payoutEmail" validate:"required,email"`
	WalletAddress string `json:"walletAddress" validate:"omitempty,ethaddr"`
}
