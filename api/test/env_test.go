package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/api"
	"github.com/irsalhamdi/chainacademy/api/background"
	"github.com/irsalhamdi/chainacademy/core/auth"
	"github.com/irsalhamdi/chainacademy/core/blog"
	"github.com/irsalhamdi/chainacademy/core/course"
	"github.com/irsalhamdi/chainacademy/core/payment"
	"github.com/irsalhamdi/chainacademy/core/wallet"
	"github.com/irsalhamdi/chainacademy/database/dbtest"
	"github.com/irsalhamdi/chainacademy/email"
	"github.com/irsalhamdi/chainacademy/ui"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const userPass = "correct-horse"

// TestEnv runs the whole router against a seeded in-memory database.
type TestEnv struct {
	*httptest.Server
	DB *sqlx.DB
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	db := dbtest.New(t)
	if _, err := course.Seed(context.Background(), db); err != nil {
		t.Fatalf("seeding catalog: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	sm := scs.New()
	bg := background.New(log)
	mail := email.NewLog(log)
	mock := payment.NewMock("USD", 0)

	posts, err := blog.Load()
	if err != nil {
		t.Fatal(err)
	}
	renderer, err := ui.New()
	if err != nil {
		t.Fatal(err)
	}

	h := api.APIMux(api.APIConfig{
		Log:     log,
		DB:      db,
		Session: sm,
		Tokens:  auth.NewTokens("test-secret", "chainacademy-test", time.Hour),
		Mailer:  mail,
		Checkout: payment.Checkout{
			DB:         db,
			Processors: payment.NewProcessors(mock),
			Default:    mock.Name(),
			Payouts:    mock,
			Background: bg,
			Mailer:     mail,
			Log:        log,
		},
		Background:    bg,
		Wallet:        wallet.NewManager(sm, wallet.NewMockProvider("", 1, 0), log, time.Minute),
		Blog:          posts,
		Renderer:      renderer,
		BcryptCost:    bcrypt.MinCost,
		PageSize:      6,
		FeaturedCount: 3,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bg.Shutdown(ctx)
	})

	return &TestEnv{Server: srv, DB: db}
}

// Browser is a cookie keeping client that does not follow redirects, so
// tests can assert where a page sends the visitor.
type Browser struct {
	t   *testing.T
	env *TestEnv
	c   *http.Client
}

func (env *TestEnv) Browser(t *testing.T) *Browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Browser{t: t, env: env, c: c}
}

func (b *Browser) do(r *http.Request) (int, http.Header, string) {
	b.t.Helper()

	res, err := b.c.Do(r)
	if err != nil {
		b.t.Fatalf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		b.t.Fatal(err)
	}
	return res.StatusCode, res.Header, string(body)
}

func (b *Browser) Get(path string) (int, http.Header, string) {
	b.t.Helper()

	r, err := http.NewRequest(http.MethodGet, b.env.URL+path, nil)
	if err != nil {
		b.t.Fatal(err)
	}
	r.Header.Set("Accept", "text/html")
	return b.do(r)
}

func (b *Browser) Post(path string, form url.Values) (int, http.Header, string) {
	b.t.Helper()

	r, err := http.NewRequest(http.MethodPost, b.env.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Accept", "text/html")
	return b.do(r)
}

// JSON sends in as the request body and decodes the response into out when
// out is not nil.
func (b *Browser) JSON(method string, path string, in any, out any, header ...string) int {
	b.t.Helper()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			b.t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, b.env.URL+path, body)
	if err != nil {
		b.t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}

	status, _, resp := b.do(r)
	if out != nil && resp != "" {
		if err := json.Unmarshal([]byte(resp), out); err != nil {
			b.t.Fatalf("decoding %s %s response %q: %v", method, path, resp, err)
		}
	}
	return status
}

// Signup registers a fresh account through the sign up form.
func (b *Browser) Signup(name string, mail string) {
	b.t.Helper()

	status, h, _ := b.Post("/signup", url.Values{
		"name":            {name},
		"email":           {mail},
		"password":        {userPass},
		"passwordConfirm": {userPass},
	})
	if status != http.StatusSeeOther || h.Get("Location") != "/dashboard" {
		b.t.Fatalf("signing up: status %d location %q", status, h.Get("Location"))
	}
}

// expectRedirect asserts that GET path sends the visitor to want.
func (b *Browser) expectRedirect(path string, want string) {
	b.t.Helper()

	status, h, _ := b.Get(path)
	if status != http.StatusSeeOther {
		b.t.Fatalf("GET %s: status %d, want a redirect to %s", path, status, want)
	}
	if got := h.Get("Location"); got != want {
		b.t.Fatalf("GET %s: redirected to %q, want %q", path, got, want)
	}
}

func (env *TestEnv) course(t *testing.T, slug string) course.Course {
	t.Helper()

	c, err := course.FetchBySlug(context.Background(), env.DB, slug)
	if err != nil {
		t.Fatalf("fetching %s: %v", slug, err)
	}
	return c
}
