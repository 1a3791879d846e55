package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/chainacademy/api"
	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/config"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/wallet"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/rate"
	"github.com/irsalhamdi/chainacademy/rates"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/plutov/paypal/v4"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func checkSecrets(cfg config.Config) error {
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("ACADEMY_AUTH_JWT_SECRET must be set to at least 16 characters")
	}
	return nil
}

func Run(logger *logrus.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	const prefix = "ACADEMY"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "Chain Academy web3 course marketplace",
		},
	}
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}
	if err := checkSecrets(cfg); err != nil {
		return err
	}

	logger.WithField("build", build).Info("starting server")
	defer logger.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	logger.Infof("config:\n%s", out)

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}

	if cfg.DB.Seed {
		seeded, err := course.Seed(context.Background(), db)
		if err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
		if seeded {
			logger.Info("catalog seeded")
		}
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Cookie.Name = cfg.Session.CookieName
	sessionManager.Cookie.Secure = cfg.Session.Secure
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	var mail email.Mailer = email.NewLog(logger)
	if cfg.Email.Provider == "sendgrid" {
		mail = email.NewSendGrid(cfg.Email.APIKey, cfg.Email.Host, cfg.Email.From, cfg.Email.FromName)
	}

	bg := background.New(logger)

	checkout, err := makeCheckout(cfg, db, bg, mail, logger)
	if err != nil {
		return err
	}

	wp, closeWallet, err := makeWalletProvider(cfg.Wallet)
	if err != nil {
		return err
	}
	defer closeWallet()

	var quotes *rates.Client
	if cfg.Rates.URL != "" {
		quotes = rates.New(cfg.Rates.URL, cfg.Rates.Timeout, cfg.Rates.CacheTTL)
	}

	posts, err := blog.Load()
	if err != nil {
		return err
	}

	renderer, err := ui.New()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Expiry, rate.Every(cfg.Rate.Interval))
	defer limiter.Stop()

	jobs := cron.New()
	if _, err := payment.ScheduleExpiry(jobs, cfg.Payment.ExpireSchedule, db, cfg.Payment.ExpireAfter, logger); err != nil {
		return fmt.Errorf("scheduling payment expiry: %w", err)
	}
	jobs.Start()
	defer func() { <-jobs.Stop().Done() }()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Tokens:           auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL),
		Mailer:           mail,
		Background:       bg,
		Checkout:         checkout,
		Wallet:           wallet.NewManager(sessionManager, wp, logger, cfg.Wallet.NonceTTL),
		Blog:             posts,
		Rates:            quotes,
		Renderer:         renderer,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		Limiter:          limiter,
		Latency:          cfg.Web.SimulatedLatency,
		BcryptCost:       cfg.Auth.BcryptCost,
		PageSize:         cfg.Catalog.PageSize,
		FeaturedCount:    cfg.Catalog.FeaturedCount,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

// makeCheckout enables every provider that has credentials configured. The
// mock processor settles without charging, so it only runs when no real
// provider is set up or when Payment.EnableMock asks for it.
func makeCheckout(cfg config.Config, db *sqlx.DB, bg *background.Background, mail email.Mailer, logger *logrus.Logger) (payment.Checkout, error) {
	currency := cfg.Payment.Currency

	co := payment.Checkout{
		DB:         db,
		Default:    cfg.Payment.Provider,
		Background: bg,
		Mailer:     mail,
		Log:        logger,
	}
	var procs []payment.Processor

	if cfg.Stripe.APISecret != "" {
		strp := &stripecl.API{}
		strp.Init(cfg.Stripe.APISecret, nil)
		co.Stripe = payment.NewStripe(strp, cfg.Stripe, currency)
		procs = append(procs, co.Stripe)
	}

	if cfg.Paypal.ClientID != "" {
		pp, err := paypal.NewClient(cfg.Paypal.ClientID, cfg.Paypal.Secret, cfg.Paypal.URL)
		if err != nil {
			return co, fmt.Errorf("failed to build the paypal client: %w", err)
		}
		if _, err = pp.GetAccessToken(context.TODO()); err != nil {
			return co, fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
		co.Paypal = payment.NewPaypal(pp, cfg.Paypal, currency)
		procs = append(procs, co.Paypal)
	}

	var mock *payment.Mock
	if len(procs) == 0 || cfg.Payment.EnableMock {
		mock = payment.NewMock(currency, 0)
		procs = append(procs, mock)
		logger.Warn("mock payment processor enabled, purchases are not charged")
	}

	switch {
	case co.Paypal != nil:
		co.Payouts = co.Paypal
	case mock != nil:
		co.Payouts = mock
	default:
		co.Payouts = co.Stripe
	}

	co.Processors = payment.NewProcessors(procs...)
	if _, ok := co.Processors[co.Default]; !ok {
		return co, fmt.Errorf("default payment provider %q is not configured", co.Default)
	}
	return co, nil
}

func makeWalletProvider(cfg config.Wallet) (wallet.Provider, func(), error) {
	switch cfg.Provider {
	case "mock":
		return wallet.NewMockProvider("", cfg.ChainID, cfg.MockLatency), func() {}, nil
	case "ethereum":
		p, err := wallet.NewEthProvider(context.Background(), cfg.ChainID, cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to the ethereum node: %w", err)
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown wallet provider %q", cfg.Provider)
}
