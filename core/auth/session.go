package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/irsalhamdi/chainacademy/core/claims"
	"github.com/irsalhamdi/chainacademy/core/user"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// Login binds u to the session, renewing the token to avoid fixation.
func Login(ctx context.Context, sm *scs.SessionManager, u user.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	sm.Put(ctx, userIDKey, u.ID)
	sm.Put(ctx, roleKey, u.Role)
	return nil
}

func Logout(ctx context.Context, sm *scs.SessionManager) error {
	if err := sm.Destroy(ctx); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// SetRole updates the role cached in the session after a promotion.
func SetRole(ctx context.Context, sm *scs.SessionManager, role string) {
	sm.Put(ctx, roleKey, role)
}

// Identify reads the caller from the bearer token or, failing that, from the
// session.
func Identify(ctx context.Context, sm *scs.SessionManager, tokens *Tokens, r *http.Request) (claims.Claims, bool) {
	if tokens != nil {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			c, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				return claims.Claims{}, false
			}
			return c, true
		}
	}

	id := sm.GetString(ctx, userIDKey)
	if id == "" {
		return claims.Claims{}, false
	}

	return claims.Claims{UserID: id, Role: sm.GetString(ctx, roleKey)}, true
}

// Optional loads the caller claims when present and never rejects.
func Optional(sm *scs.SessionManager, tokens *Tokens) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if c, ok := Identify(ctx, sm, tokens, r); ok {
				ctx = claims.Set(ctx, c)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Authenticate(sm *scs.SessionManager, tokens *Tokens) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			c, ok := Identify(ctx, sm, tokens, r)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			return handler(claims.Set(ctx, c), w, r)
		}
		return h
	}
	return m
}

func Admin(sm *scs.SessionManager, tokens *Tokens) web.Middleware {
	return requireRole(sm, tokens, claims.IsAdmin)
}

func Instructor(sm *scs.SessionManager, tokens *Tokens) web.Middleware {
	return requireRole(sm, tokens, claims.IsInstructor)
}

func requireRole(sm *scs.SessionManager, tokens *Tokens, allowed func(context.Context) bool) web.Middleware {
	authen := Authenticate(sm, tokens)
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !allowed(ctx) {
				return weberr.Forbidden(errors.New("role not allowed"))
			}
			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}
