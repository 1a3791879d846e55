package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/user"
	"github.com/irsalhamdi/chainacademy/database/dbtest"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterAndVerify(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	un := user.UserNew{Name: "Ada", Email: "Ada@Test.com", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}
	u, err := Register(ctx, db, un, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("registering: %v", err)
	}
	if u.Role != claims.RoleUser {
		t.Fatalf("unexpected role %s", u.Role)
	}

	if _, err := Register(ctx, db, un, bcrypt.MinCost); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	bad := un
	bad.PasswordConfirm = "other"
	if _, err := Register(ctx, db, bad, bcrypt.MinCost); err == nil {
		t.Fatal("expected password confirmation mismatch")
	}

	got, err := Verify(ctx, db, Credentials{Email: "ada@test.com", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("verifying: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("verified wrong user %s", got.ID)
	}

	for _, cred := range []Credentials{
		{Email: "ada@test.com", Password: "wrong"},
		{Email: "nobody@test.com", Password: "s3cretpass"},
		{},
	} {
		if _, err := Verify(ctx, db, cred); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%+v: expected ErrInvalidCredentials, got %v", cred, err)
		}
	}
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", "academy", time.Minute)

	raw, exp, err := tokens.Issue("u1", claims.RoleInstructor)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("token already expired")
	}

	c, err := tokens.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != "u1" || c.Role != claims.RoleInstructor {
		t.Fatalf("unexpected claims %+v", c)
	}

	other := NewTokens("another", "academy", time.Minute)
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	expired := NewTokens("secret", "academy", -time.Minute)
	old, _, err := expired.Issue("u1", claims.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

// serve mounts h on a mux route behind the session manager.
func serve(sm *scs.SessionManager, path string, h web.Handler) *httptest.Server {
	r := mux.NewRouter()
	r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(r.Context(), w, r); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	return httptest.NewServer(sm.LoadAndSave(r))
}

func TestSessionLoginThenAuthenticate(t *testing.T) {
	sm := scs.New()
	tokens := NewTokens("secret", "academy", time.Minute)

	login := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return Login(ctx, sm, user.User{ID: "u1", Role: claims.RoleUser})
	}
	whoami := Authenticate(sm, tokens)(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, _ := claims.Get(ctx)
		return web.Respond(ctx, w, c, http.StatusOK)
	})
	instructorOnly := Instructor(sm, tokens)(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	})

	r := mux.NewRouter()
	for path, h := range map[string]web.Handler{"/login": login, "/whoami": whoami, "/teach": instructorOnly} {
		h := h
		r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := h(r.Context(), w, r); err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
			}
		}))
	}
	srv := httptest.NewServer(sm.LoadAndSave(r))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(srv.URL + "/whoami")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous whoami: unexpected status %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/login")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/whoami")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var c claims.Claims
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	if c.UserID != "u1" {
		t.Fatalf("unexpected claims %+v", c)
	}

	resp, err = client.Get(srv.URL + "/teach")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		t.Fatal("plain users must not pass the instructor guard")
	}

	tok, _, _ := tokens.Issue("u9", claims.RoleInstructor)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/teach", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("bearer instructor: unexpected status %d", resp.StatusCode)
	}
}

func TestOauthLoginRedirectsToProvider(t *testing.T) {
	var issuer string
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"issuer": %q,
			"authorization_endpoint": %q,
			"token_endpoint": %q,
			"jwks_uri": %q,
			"id_token_signing_alg_values_supported": ["RS256"]
		}`, issuer, issuer+"/authorize", issuer+"/token", issuer+"/keys")
	}))
	defer idp.Close()
	issuer = idp.URL

	provs, err := MakeProviders(context.Background(), []ProviderConfig{
		{Name: "google", Client: "client-id", Secret: "s", URL: idp.URL, RedirectURL: "http://academy.test/auth/oauth-callback/google"},
		{Name: "disabled"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(provs) != 1 {
		t.Fatalf("expected only the configured provider, got %d", len(provs))
	}

	sm := scs.New()
	srv := serve(sm, "/auth/oauth-login/{provider}", HandleOauthLogin(sm, provs))
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(srv.URL + "/auth/oauth-login/google")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(loc.String(), idp.URL+"/authorize") {
		t.Fatalf("unexpected redirect %s", loc)
	}
	if loc.Query().Get("client_id") != "client-id" || loc.Query().Get("state") == "" {
		t.Fatalf("missing oauth parameters in %s", loc)
	}
}
