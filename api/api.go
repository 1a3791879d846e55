package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/api/middleware"
	"github.com/irsalhamdi/chainacademy/api/pages"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/core/wallet"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/rate"
	"github.com/irsalhamdi/chainacademy/rates"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Tokens           *auth.Tokens
	Mailer           email.Mailer
	Background       *background.Background
	Checkout         payment.Checkout
	Wallet           *wallet.Manager
	Blog             *blog.Store
	Rates            *rates.Client
	Renderer         *ui.Renderer
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
	Latency          time.Duration
	BcryptCost       int
	PageSize         int
	FeaturedCount    int
}

type api struct {
	*mux.Router
	mw    []web.Middleware
	apiMW []web.Middleware
	log   logrus.FieldLogger
}

// APIMux wires the JSON API under /api and the rendered pages around it.
// The whole tree runs inside the session middleware.
func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	if cfg.Limiter != nil {
		a.apiMW = append(a.apiMW, middleware.RateLimit(cfg.Limiter))
	}
	a.apiMW = append(a.apiMW, middleware.Latency(cfg.Latency))

	db, sm := cfg.DB, cfg.Session
	co := cfg.Checkout

	authen := auth.Authenticate(sm, cfg.Tokens)
	admin := auth.Admin(sm, cfg.Tokens)
	educator := auth.Instructor(sm, cfg.Tokens)

	a.JSON(http.MethodGet, "/health", handleHealth(db))

	a.JSON(http.MethodPost, "/auth/signup", auth.HandleSignup(db, sm, cfg.BcryptCost))
	a.JSON(http.MethodPost, "/auth/login", auth.HandleLogin(db, sm))
	a.JSON(http.MethodPost, "/auth/logout", auth.HandleLogout(sm))
	a.JSON(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(sm, cfg.Providers))
	a.JSON(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(db, sm, cfg.Providers, cfg.LoginRedirectURL))
	a.JSON(http.MethodPost, "/tokens", auth.HandleToken(db, cfg.Tokens))

	a.JSON(http.MethodGet, "/users/current", user.HandleShowCurrent(db), authen)

	a.JSON(http.MethodGet, "/courses/featured", course.HandleFeatured(db, cfg.FeaturedCount))
	a.JSON(http.MethodPost, "/courses/free", course.HandleMakeAllFree(db), admin)
	a.JSON(http.MethodGet, "/courses/{slug}", course.HandleShow(db))
	a.JSON(http.MethodGet, "/courses", course.HandleList(db, cfg.PageSize))
	a.JSON(http.MethodPost, "/courses", course.HandleCreate(db), educator)

	a.JSON(http.MethodGet, "/enrollments", enrollment.HandleList(db), authen)
	a.JSON(http.MethodGet, "/enrollments/{course_id}", enrollment.HandleCheck(db), authen)
	a.JSON(http.MethodPut, "/enrollments/{course_id}/progress", enrollment.HandleUpdateProgress(db), authen)

	a.JSON(http.MethodGet, "/instructors/status", instructor.HandleStatus(db), authen)
	a.JSON(http.MethodPost, "/instructors", instructor.HandleApply(db, sm, cfg.Background, cfg.Mailer, cfg.Log), authen)
	a.JSON(http.MethodGet, "/instructors/{id}", instructor.HandleShow(db))

	a.JSON(http.MethodGet, "/payments", co.HandleList(), authen)
	a.JSON(http.MethodPost, "/payments", co.HandleProcess(), authen)
	a.JSON(http.MethodPost, "/payments/paypal/{id}/capture", co.HandlePaypalCapture(), authen)
	a.JSON(http.MethodPost, "/payments/stripe/webhook", co.HandleStripeWebhook())
	a.JSON(http.MethodPost, "/payouts", co.HandlePayout(), educator)

	a.JSON(http.MethodGet, "/wallet", cfg.Wallet.HandleShow())

	a.JSON(http.MethodGet, "/blog", blog.HandleList(cfg.Blog))
	a.JSON(http.MethodGet, "/blog/{slug}", blog.HandleShow(cfg.Blog))

	pg := &pages.Pages{
		DB:         db,
		Session:    sm,
		Render:     cfg.Renderer,
		Wallet:     cfg.Wallet,
		Blog:       cfg.Blog,
		Rates:      cfg.Rates,
		Checkout:   co,
		Log:        cfg.Log,
		BcryptCost: cfg.BcryptCost,
		PageSize:   cfg.PageSize,
		Featured:   cfg.FeaturedCount,
	}
	visitor := auth.Optional(sm, nil)

	a.Handle(http.MethodGet, "/", pg.HandleHome(), visitor)
	a.Handle(http.MethodGet, "/courses", pg.HandleCourses(), visitor)
	a.Handle(http.MethodGet, "/courses/{slug}", pg.HandleCourse(), visitor)
	a.Handle(http.MethodPost, "/courses/{slug}/enroll", pg.HandleEnroll(), visitor)
	a.Handle(http.MethodGet, "/courses/{slug}/learn", pg.HandleLearn(), visitor)
	a.Handle(http.MethodGet, "/courses/{slug}/learn/{lesson_id}", pg.HandleLearn(), visitor)
	a.Handle(http.MethodPost, "/courses/{slug}/learn/{lesson_id}/complete", pg.HandleComplete(), visitor)
	a.Handle(http.MethodGet, "/become-educator", pg.HandleBecomeEducator(), visitor)
	a.Handle(http.MethodPost, "/become-educator", pg.HandleBecomeEducator(), visitor)
	a.Handle(http.MethodGet, "/teach/courses/new", pg.HandleNewCourse(), visitor)
	a.Handle(http.MethodPost, "/teach/courses/new", pg.HandleNewCourse(), visitor)
	a.Handle(http.MethodPost, "/teach/payouts", pg.HandlePayout(), visitor)
	a.Handle(http.MethodGet, "/dashboard", pg.HandleDashboard(), visitor)
	a.Handle(http.MethodGet, "/signin", pg.HandleSignin(), visitor)
	a.Handle(http.MethodPost, "/signin", pg.HandleSignin(), visitor)
	a.Handle(http.MethodGet, "/signup", pg.HandleSignup(), visitor)
	a.Handle(http.MethodPost, "/signup", pg.HandleSignup(), visitor)
	a.Handle(http.MethodPost, "/signout", pg.HandleSignout(), visitor)
	a.Handle(http.MethodGet, "/blog", pg.HandleBlog(), visitor)
	a.Handle(http.MethodGet, "/blog/{slug}", pg.HandlePost(), visitor)

	a.Handle(http.MethodGet, "/wallet/nonce", cfg.Wallet.HandleNonce())
	a.Handle(http.MethodPost, "/wallet/connect", cfg.Wallet.HandleConnect())
	a.Handle(http.MethodPost, "/wallet/disconnect", cfg.Wallet.HandleDisconnect())

	a.Router.PathPrefix("/static/").Handler(ui.Static())
	a.Router.NotFoundHandler = a.wrap(pg.HandleNotFound(), visitor)

	return sm.LoadAndSave(a.Router)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.NewError(err, "database not ready", http.StatusServiceUnavailable)
		}

		resp := struct {
			Status string `json:"status"`
		}{"ok"}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// JSON registers an /api route behind the rate limiter and the simulated
// latency.
func (a *api) JSON(method string, path string, handler web.Handler, mw ...web.Middleware) {
	all := make([]web.Middleware, 0, len(a.apiMW)+len(mw))
	all = append(all, a.apiMW...)
	all = append(all, mw...)
	a.Handle(method, "/api"+path, handler, all...)
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {
	a.Router.Handle(path, a.wrap(handler, mw...)).Methods(method)
}

func (a *api) wrap(handler web.Handler, mw ...web.Middleware) http.Handler {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})
}
