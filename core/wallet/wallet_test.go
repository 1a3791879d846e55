package wallet

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/sirupsen/logrus"
)

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestMockTransitions(t *testing.T) {
	ctx := context.Background()
	wc := NewContext(Session{}, NewMockProvider("", 1, 0), quietLog(), time.Minute)

	if got := wc.Session().Status; got != Disconnected {
		t.Fatalf("initial status %s", got)
	}
	if _, err := wc.Disconnect(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("disconnecting while disconnected: %v", err)
	}

	s, err := wc.Connect(ctx, ConnectRequest{})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	if !s.Connected() || s.Address != DefaultMockAddress || s.ChainID != 1 {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Short() != "0x71C7...976F" {
		t.Fatalf("unexpected short address %s", s.Short())
	}

	again, err := wc.Connect(ctx, ConnectRequest{})
	if err != nil || again != s {
		t.Fatalf("second connect changed the session: %+v %v", again, err)
	}
	if _, err := wc.Begin("abc"); !errors.Is(err, ErrBusy) {
		t.Fatalf("begin while connected: %v", err)
	}

	s, err = wc.Disconnect(ctx)
	if err != nil {
		t.Fatalf("disconnecting: %v", err)
	}
	if s.Status != Disconnected || s.Address != "" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestFailedTransitionsKeepState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("user rejected the request")

	wc := NewContext(Session{}, NewMockProvider("", 1, 0).Failing(boom), quietLog(), time.Minute)
	s, err := wc.Connect(ctx, ConnectRequest{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if s.Status != Disconnected || wc.Session().Status != Disconnected {
		t.Fatalf("failed connect left %+v", s)
	}

	connected := Session{Status: Connected, Address: DefaultMockAddress, ChainID: 1}
	wc = NewContext(connected, NewMockProvider("", 1, 0).Failing(boom), quietLog(), time.Minute)
	if _, err := wc.Disconnect(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := wc.Session(); got != connected {
		t.Fatalf("failed disconnect left %+v", got)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wc := NewContext(Session{}, NewMockProvider("", 1, time.Hour), quietLog(), time.Minute)
	if _, err := wc.Connect(ctx, ConnectRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if wc.Session().Status != Disconnected {
		t.Fatal("cancelled connect did not restore the session")
	}
}

func TestBegin(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	wc := NewContext(Session{}, NewMockProvider("", 1, 0), quietLog(), time.Minute)
	wc.now = func() time.Time { return now }

	s, err := wc.Begin("n1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != Connecting || s.Nonce != "n1" {
		t.Fatalf("unexpected session %+v", s)
	}

	if s, _ = wc.Begin("n2"); s.Nonce != "n1" {
		t.Fatalf("fresh challenge replaced: %s", s.Nonce)
	}

	now = now.Add(2 * time.Minute)
	if s, _ = wc.Begin("n3"); s.Nonce != "n3" {
		t.Fatalf("expired challenge kept: %s", s.Nonce)
	}

	now = now.Add(2 * time.Minute)
	s, err = wc.Connect(context.Background(), ConnectRequest{})
	if !errors.Is(err, ErrNonceExpired) || s.Status != Disconnected {
		t.Fatalf("expired connect: %+v %v", s, err)
	}
}

func sign(t *testing.T, key *ecdsa.PrivateKey, msg string) string {
	t.Helper()

	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		t.Fatal(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func TestEthProvider(t *testing.T) {
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	p, err := NewEthProvider(ctx, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	begin := func() *Context {
		wc := NewContext(Session{}, p, quietLog(), time.Minute)
		if _, err := wc.Begin("0xfeed"); err != nil {
			t.Fatal(err)
		}
		return wc
	}

	tests := map[string]struct {
		req  ConnectRequest
		want error
	}{
		"other key":       {ConnectRequest{Address: addr.Hex(), Signature: sign(t, other, Message("0xfeed")), ChainID: 1}, ErrInvalidSignature},
		"other nonce":     {ConnectRequest{Address: addr.Hex(), Signature: sign(t, key, Message("0xbeef")), ChainID: 1}, ErrInvalidSignature},
		"garbage":         {ConnectRequest{Address: addr.Hex(), Signature: "0x1234", ChainID: 1}, ErrInvalidSignature},
		"bad address":     {ConnectRequest{Address: "nope", Signature: sign(t, key, Message("0xfeed")), ChainID: 1}, ErrInvalidSignature},
		"wrong chain":     {ConnectRequest{Address: addr.Hex(), Signature: sign(t, key, Message("0xfeed")), ChainID: 5}, ErrWrongChain},
		"lowercase match": {ConnectRequest{Address: hexutil.Encode(addr.Bytes()), Signature: sign(t, key, Message("0xfeed")), ChainID: 1}, nil},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			wc := begin()
			s, err := wc.Connect(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want != nil && s.Status != Disconnected {
				t.Fatalf("failed connect left %+v", s)
			}
			if tt.want == nil && (s.Status != Connected || s.Address != addr.Hex()) {
				t.Fatalf("unexpected session %+v", s)
			}
		})
	}

	wc := NewContext(Session{}, p, quietLog(), time.Minute)
	req := ConnectRequest{Address: addr.Hex(), Signature: sign(t, key, Message("")), ChainID: 1}
	if _, err := wc.Connect(ctx, req); !errors.Is(err, ErrNonceExpired) {
		t.Fatalf("connect without challenge: %v", err)
	}
}

func rpcServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "eth_chainId" {
			http.Error(w, "unsupported", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": chainID})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEthProviderChecksNode(t *testing.T) {
	ctx := context.Background()

	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	req := ConnectRequest{Address: addr.Hex(), Signature: sign(t, key, Message("0x01"))}

	for chain, want := range map[string]error{"0x1": nil, "0x5": ErrWrongChain} {
		p, err := NewEthProvider(ctx, 1, rpcServer(t, chain).URL)
		if err != nil {
			t.Fatal(err)
		}

		acc, err := p.Connect(ctx, Challenge{ConnectRequest: req, Nonce: "0x01"})
		if !errors.Is(err, want) {
			t.Fatalf("node on %s: expected %v, got %v", chain, want, err)
		}
		if want == nil && common.HexToAddress(acc.Address) != addr {
			t.Fatalf("unexpected account %+v", acc)
		}
		p.Close()
	}
}

func TestManagerOverHTTP(t *testing.T) {
	sm := scs.New()
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)

	p, _ := NewEthProvider(context.Background(), 1, "")
	m := NewManager(sm, p, quietLog(), time.Minute)

	r := mux.NewRouter()
	for path, h := range map[string]web.Handler{
		"/wallet/nonce":      m.HandleNonce(),
		"/wallet/connect":    m.HandleConnect(),
		"/wallet/disconnect": m.HandleDisconnect(),
		"/api/wallet":        m.HandleShow(),
	} {
		h := h
		r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := h(r.Context(), w, r); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
		}))
	}
	srv := httptest.NewServer(sm.LoadAndSave(r))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	show := func() Session {
		t.Helper()
		resp, err := client.Get(srv.URL + "/api/wallet")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var s Session
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatal(err)
		}
		return s
	}

	if s := show(); s.Status != Disconnected {
		t.Fatalf("fresh session %+v", s)
	}

	resp, err := client.Get(srv.URL + "/wallet/nonce")
	if err != nil {
		t.Fatal(err)
	}
	var challenge struct {
		Nonce   string `json:"nonce"`
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&challenge)
	resp.Body.Close()

	if s := show(); s.Status != Connecting {
		t.Fatalf("after nonce %+v", s)
	}

	body, _ := json.Marshal(ConnectRequest{Address: addr.Hex(), Signature: sign(t, key, challenge.Message), ChainID: 1})
	resp, err = client.Post(srv.URL+"/wallet/connect", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect: status %d", resp.StatusCode)
	}

	if s := show(); s.Status != Connected || s.Address != addr.Hex() {
		t.Fatalf("after connect %+v", s)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/wallet/disconnect", nil)
	req.Header.Set("Accept", "application/json")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if s := show(); s.Status != Disconnected || s.Address != "" {
		t.Fatalf("after disconnect %+v", s)
	}
}

// gateProvider links at once and holds every disconnect until released.
type gateProvider struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateProvider) Name() string { return "gate" }

func (g *gateProvider) Connect(ctx context.Context, ch Challenge) (Account, error) {
	return Account{Address: DefaultMockAddress, ChainID: 1}, nil
}

func (g *gateProvider) Disconnect(ctx context.Context, acc Account) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestManagerSerializesRequests(t *testing.T) {
	sm := scs.New()
	gate := &gateProvider{entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := NewManager(sm, gate, quietLog(), time.Minute)

	r := mux.NewRouter()
	for path, h := range map[string]web.Handler{
		"/wallet/connect":    m.HandleConnect(),
		"/wallet/disconnect": m.HandleDisconnect(),
		"/api/wallet":        m.HandleShow(),
	} {
		h := h
		r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := h(r.Context(), w, r); err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, ErrBusy) {
					status = http.StatusConflict
				}
				http.Error(w, err.Error(), status)
			}
		}))
	}
	srv := httptest.NewServer(sm.LoadAndSave(r))
	defer srv.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	post := func(path string) int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Error(err)
			return 0
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	show := func() Session {
		resp, err := client.Get(srv.URL + "/api/wallet")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var s Session
		json.NewDecoder(resp.Body).Decode(&s)
		return s
	}

	if code := post("/wallet/connect"); code != http.StatusOK {
		t.Fatalf("connect: status %d", code)
	}

	done := make(chan int, 1)
	go func() { done <- post("/wallet/disconnect") }()
	<-gate.entered

	if s := show(); s.Status != Disconnecting {
		t.Fatalf("during disconnect %+v", s)
	}
	if code := post("/wallet/connect"); code != http.StatusConflict {
		t.Fatalf("connect during disconnect: status %d", code)
	}

	close(gate.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("disconnect: status %d", code)
	}

	if s := show(); s.Status != Disconnected || s.Address != "" {
		t.Fatalf("after disconnect %+v", s)
	}
}

func TestContextBusyDuringProvider(t *testing.T) {
	gate := &gateProvider{entered: make(chan struct{}, 1), release: make(chan struct{})}
	connected := Session{Status: Connected, Address: DefaultMockAddress, ChainID: 1}
	wc := NewContext(connected, gate, quietLog(), time.Minute)

	errs := make(chan error, 1)
	go func() {
		_, err := wc.Disconnect(context.Background())
		errs <- err
	}()
	<-gate.entered

	if s := wc.Session(); s.Status != Disconnecting {
		t.Fatalf("status while the provider works: %s", s.Status)
	}
	if _, err := wc.Connect(context.Background(), ConnectRequest{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("connect while busy: %v", err)
	}
	if _, err := wc.Disconnect(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second disconnect: %v", err)
	}

	close(gate.release)
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if s := wc.Session(); s.Status != Disconnected {
		t.Fatalf("after disconnect %+v", s)
	}
}
