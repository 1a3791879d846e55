package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web     Web
	Cors    Cors
	DB      DB
	Session Session
	Catalog Catalog
	Auth    Auth
	Wallet  Wallet
	Payment Payment
	Stripe  Stripe
	Paypal  Paypal
	Rates   Rates
	Email   Email
	Oauth   Oauth
	Rate    Rate
}

type Web struct {
	Address          string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout      time.Duration `conf:"default:5s"`
	WriteTimeout     time.Duration `conf:"default:10s"`
	IdleTimeout      time.Duration `conf:"default:120s"`
	ShutdownTimeout  time.Duration `conf:"default:20s"`
	SimulatedLatency time.Duration `conf:"default:0s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	Driver       string `conf:"default:sqlite3"`
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:academy"`
	Path         string `conf:"default:academy.db"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
	Seed         bool   `conf:"default:true"`
}

type Session struct {
	Lifetime   time.Duration `conf:"default:24h"`
	CookieName string        `conf:"default:academy_session"`
	Secure     bool          `conf:"default:false"`
}

type Catalog struct {
	PageSize      int `conf:"default:6"`
	FeaturedCount int `conf:"default:3"`
}

type Auth struct {
	BcryptCost int           `conf:"default:12"`
	JWTSecret  string        `conf:"mask,help:HMAC key for API tokens; required"`
	JWTIssuer  string        `conf:"default:chainacademy"`
	TokenTTL   time.Duration `conf:"default:1h"`
}

type Wallet struct {
	Provider    string        `conf:"default:mock"`
	ChainID     int64         `conf:"default:1"`
	RPCURL      string        `conf:"help:optional JSON-RPC endpoint used to confirm the chain id"`
	NonceTTL    time.Duration `conf:"default:5m"`
	MockLatency time.Duration `conf:"default:0s"`
}

type Payment struct {
	Provider       string        `conf:"default:mock"`
	EnableMock     bool          `conf:"default:false,help:keep the mock processor next to stripe or paypal"`
	Currency       string        `conf:"default:USD"`
	ExpireAfter    time.Duration `conf:"default:1h"`
	ExpireSchedule string        `conf:"default:@every 10m"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:8000/dashboard"`
	CancelURL     string `conf:"default:http://localhost:8000/courses"`
}

type Paypal struct {
	ClientID  string
	Secret    string `conf:"mask"`
	URL       string `conf:"default:https://api-m.sandbox.paypal.com"`
	ReturnURL string `conf:"default:http://localhost:8000/dashboard"`
	CancelURL string `conf:"default:http://localhost:8000/courses"`
}

type Rates struct {
	URL      string        `conf:"help:base URL of a coinbase compatible spot price API"`
	CacheTTL time.Duration `conf:"default:1m"`
	Timeout  time.Duration `conf:"default:5s"`
}

type Email struct {
	Provider string `conf:"default:log"`
	APIKey   string `conf:"mask"`
	Host     string `conf:"help:override of the SendGrid API host"`
	From     string `conf:"default:no-reply@chainacademy.dev"`
	FromName string `conf:"default:Chain Academy"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:/dashboard"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Rate struct {
	Burst    int           `conf:"default:5"`
	Interval time.Duration `conf:"default:1s"`
	Expiry   time.Duration `conf:"default:3m"`
}
