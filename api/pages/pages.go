// Package pages serves the server rendered site. Every handler loads what the
// page needs, applies its guard and either renders or redirects.
package pages

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/core/wallet"
	"github.com/irsalhamdi/chainacademy/rates"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const maxFormBytes = 1 << 20

type Pages struct {
	DB         *sqlx.DB
	Session    *scs.SessionManager
	Render     *ui.Renderer
	Wallet     *wallet.Manager
	Blog       *blog.Store
	Rates      *rates.Client
	Checkout   payment.Checkout
	Log        logrus.FieldLogger
	BcryptCost int
	PageSize   int
	Featured   int
}

func (p *Pages) header(ctx context.Context) ui.Header {
	h := ui.Header{Wallet: p.Wallet.Current(ctx)}

	clm, err := claims.Get(ctx)
	if err != nil {
		return h
	}

	h.SignedIn = true
	h.Admin = claims.IsAdmin(ctx)
	h.Instructor = claims.IsInstructor(ctx)
	if u, err := user.Fetch(ctx, p.DB, clm.UserID); err == nil {
		h.UserName = u.Name
	}
	return h
}

// render buffers the page so a template error never leaves a half written
// response behind.
func (p *Pages) render(ctx context.Context, w http.ResponseWriter, status int, name string, pg ui.Page) error {
	pg.Header = p.header(ctx)

	var buf bytes.Buffer
	if err := p.Render.Page(&buf, name, pg); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func signedIn(ctx context.Context) (claims.Claims, bool) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return claims.Claims{}, false
	}
	return clm, true
}

// toSignin sends the visitor to the sign in page, coming back to next
// afterwards.
func toSignin(w http.ResponseWriter, r *http.Request, next string) error {
	return web.Redirect(w, r, "/signin?next="+url.QueryEscape(next))
}

// safeNext keeps post sign in redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// formValues copies the named fields so a failed submission can be shown
// again.
func formValues(r *http.Request, keys ...string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k] = strings.TrimSpace(r.PostForm.Get(k))
	}
	return m
}

// HandleNotFound renders the 404 page for unknown routes.
func (p *Pages) HandleNotFound() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return p.render(ctx, w, http.StatusNotFound, "notfound", ui.Page{Title: "Not found"})
	}
}
