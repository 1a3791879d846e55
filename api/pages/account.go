package pages

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/enrollment"
	"github.com/irsalhamdi/chainacademy/core/instructor"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database"
	"github.com/irsalhamdi/chainacademy/money"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/irsalhamdi/chainacademy/validate"
)

// anonymous is the guard of the sign in and sign up pages.
func anonymous(ctx context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	if _, ok := signedIn(ctx); ok {
		return false, web.Redirect(w, r, "/dashboard")
	}
	return true, nil
}

func (p *Pages) HandleSignin() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if ok, err := anonymous(ctx, w, r); !ok {
			return err
		}

		form := ui.Form{Next: r.URL.Query().Get("next")}
		if r.Method == http.MethodGet {
			return p.render(ctx, w, http.StatusOK, "signin", ui.Page{Title: "Sign in", Data: form})
		}

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}
		form.Values = formValues(r, "email")
		form.Next = r.PostForm.Get("next")

		u, err := auth.Verify(ctx, p.DB, auth.Credentials{
			Email:    form.Get("email"),
			Password: r.PostForm.Get("password"),
		})
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return p.render(ctx, w, http.StatusUnauthorized, "signin", ui.Page{Title: "Sign in", Error: "Invalid email or password.", Data: form})
			}
			return err
		}

		if err := auth.Login(ctx, p.Session, u); err != nil {
			return err
		}
		return web.Redirect(w, r, safeNext(form.Next))
	}
}

func (p *Pages) HandleSignup() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if ok, err := anonymous(ctx, w, r); !ok {
			return err
		}

		form := ui.Form{Next: r.URL.Query().Get("next")}
		if r.Method == http.MethodGet {
			return p.render(ctx, w, http.StatusOK, "signup", ui.Page{Title: "Sign up", Data: form})
		}

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}
		form.Values = formValues(r, "name", "email")
		form.Next = r.PostForm.Get("next")

		u, err := auth.Register(ctx, p.DB, user.UserNew{
			Name:            form.Get("name"),
			Email:           form.Get("email"),
			Password:        r.PostForm.Get("password"),
			PasswordConfirm: r.PostForm.Get("passwordConfirm"),
		}, p.BcryptCost)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrEmailTaken):
				return p.render(ctx, w, http.StatusConflict, "signup", ui.Page{Title: "Sign up", Error: "That email is already registered.", Data: form})
			case errors.Is(err, validate.ErrInvalid):
				return p.render(ctx, w, http.StatusUnprocessableEntity, "signup", ui.Page{Title: "Sign up", Error: err.Error(), Data: form})
			}
			return err
		}

		if err := auth.Login(ctx, p.Session, u); err != nil {
			return err
		}
		return web.Redirect(w, r, safeNext(form.Next))
	}
}

func (p *Pages) HandleSignout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := auth.Logout(ctx, p.Session); err != nil {
			return err
		}
		return web.Redirect(w, r, "/")
	}
}

func (p *Pages) dashboard(ctx context.Context, userID string) (ui.Dashboard, error) {
	var d ui.Dashboard

	recs, err := enrollment.ListByUser(ctx, p.DB, userID)
	if err != nil {
		return d, fmt.Errorf("listing enrollments: %w", err)
	}
	d.Enrollments = recs

	in, err := instructor.FetchByUser(ctx, p.DB, userID)
	switch {
	case errors.Is(err, database.ErrDBNotFound):
		return d, nil
	case err != nil:
		return d, err
	}
	d.Instructor = &in

	if d.Teaching, err = course.ListByInstructor(ctx, p.DB, in.ID); err != nil {
		return d, err
	}
	if d.Payouts, err = payment.ListPayouts(ctx, p.DB, in.ID); err != nil {
		return d, err
	}
	return d, nil
}

func (p *Pages) HandleDashboard() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, ok := signedIn(ctx)
		if !ok {
			return toSignin(w, r, "/dashboard")
		}

		d, err := p.dashboard(ctx, clm.UserID)
		if err != nil {
			return err
		}
		return p.render(ctx, w, http.StatusOK, "dashboard", ui.Page{Title: "Dashboard", Data: d})
	}
}

// HandlePayout requests a payout of the posted amount for the signed in
// instructor.
func (p *Pages) HandlePayout() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, ok := signedIn(ctx)
		if !ok {
			return toSignin(w, r, "/dashboard")
		}

		in, err := instructor.FetchByUser(ctx, p.DB, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return web.Redirect(w, r, "/become-educator")
			}
			return err
		}

		if err := parseForm(w, r); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to parse form: %w", err))
		}

		fail := func(status int, msg string) error {
			d, err := p.dashboard(ctx, clm.UserID)
			if err != nil {
				return err
			}
			return p.render(ctx, w, status, "dashboard", ui.Page{Title: "Dashboard", Error: msg, Data: d})
		}

		amount, err := money.Cents(r.PostForm.Get("amount"))
		if err != nil || amount <= 0 {
			return fail(http.StatusUnprocessableEntity, "Enter a positive amount such as 100.00.")
		}

		po, err := payment.RequestPayout(ctx, p.DB, p.Checkout.Payouts, amount, in.ID)
		if err != nil {
			p.Log.WithError(err).WithField("instructor", in.ID).Warn("payout failed")
			return fail(http.StatusBadGateway, "The payout could not be sent. Please try again later.")
		}

		if err := payment.PayoutNotice(ctx, p.DB, p.Checkout.Background, p.Checkout.Mailer, po); err != nil {
			p.Log.WithError(err).WithField("payout", po.ID).Warn("payout notice not sent")
		}
		return web.Redirect(w, r, "/dashboard")
	}
}
