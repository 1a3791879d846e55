package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWrapMiddlewareOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				calls = append(calls, name)
				return next(ctx, w, r)
			}
		}
	}

	h := WrapMiddleware([]Middleware{mw("a"), nil, mw("b")}, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		calls = append(calls, "handler")
		return nil
	})

	if err := h(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(calls, ","); got != "a,b,handler" {
		t.Fatalf("unexpected call order %s", got)
	}
}

func TestRespond(t *testing.T) {
	w := httptest.NewRecorder()
	if err := Respond(context.Background(), w, map[string]int{"totalPages": 2}, http.StatusOK); err != nil {
		t.Fatal(err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if body := w.Body.String(); body != `{"totalPages":2}` {
		t.Fatalf("unexpected body %s", body)
	}

	w = httptest.NewRecorder()
	if err := Respond(context.Background(), w, nil, http.StatusNoContent); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("unexpected no content response %d %q", w.Code, w.Body.String())
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var v struct {
		Amount int `json:"amount"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":1,"other":2}`))
	if err := Decode(httptest.NewRecorder(), r, &v); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/courses?page=3&bad=x", nil)
	if got := QueryInt(r, "page", 1); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := QueryInt(r, "bad", 1); got != 1 {
		t.Fatalf("expected default, got %d", got)
	}
}
