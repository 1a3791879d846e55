package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
)

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// back returns the same-host page the form was posted from.
func back(r *http.Request) string {
	u, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || u.Path == "" || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	return u.RequestURI()
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrBusy):
		return weberr.Conflict(err)
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrNonceExpired):
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrWrongChain):
		return weberr.NewError(err, err.Error(), http.StatusUnauthorized)
	}
	return err
}

// HandleNonce starts a connect and returns the message to sign.
func (m *Manager) HandleNonce() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := m.Begin(ctx)
		if err != nil {
			return mapError(err)
		}

		resp := struct {
			Nonce   string `json:"nonce"`
			Message string `json:"message"`
			Status  Status `json:"status"`
		}{s.Nonce, Message(s.Nonce), s.Status}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func decodeConnect(w http.ResponseWriter, r *http.Request) (ConnectRequest, error) {
	var req ConnectRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := web.Decode(w, r, &req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Address = r.PostForm.Get("address")
	req.Signature = r.PostForm.Get("signature")
	if v := r.PostForm.Get("chainId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("chainId: %w", err)
		}
		req.ChainID = id
	}
	return req, nil
}

func (m *Manager) HandleConnect() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		req, err := decodeConnect(w, r)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		s, err := m.Connect(ctx, req)
		if err != nil {
			return mapError(err)
		}

		if !wantsJSON(r) {
			return web.Redirect(w, r, back(r))
		}
		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

func (m *Manager) HandleDisconnect() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := m.Disconnect(ctx)
		if err != nil {
			return mapError(err)
		}

		if !wantsJSON(r) {
			return web.Redirect(w, r, back(r))
		}
		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

func (m *Manager) HandleShow() web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, m.Current(ctx), http.StatusOK)
	}
}
