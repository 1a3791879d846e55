package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/chainacademy/random"
	"github.com/sirupsen/logrus"
)

const (
	keyAddress  = "wallet_address"
	keyChainID  = "wallet_chain_id"
	keyStatus   = "wallet_status"
	keyNonce    = "wallet_nonce"
	keyIssuedAt = "wallet_nonce_issued_at"
)

// Manager keeps wallet sessions in the HTTP session store. Requests of the
// same session share one Context while any of them is in flight, so their
// transitions serialize.
type Manager struct {
	sm       *scs.SessionManager
	provider Provider
	log      logrus.FieldLogger
	nonceTTL time.Duration

	mu   sync.Mutex
	live map[string]*shared
}

type shared struct {
	wc    *Context
	users int
}

func NewManager(sm *scs.SessionManager, p Provider, log logrus.FieldLogger, nonceTTL time.Duration) *Manager {
	return &Manager{
		sm:       sm,
		provider: p,
		log:      log,
		nonceTTL: nonceTTL,
		live:     make(map[string]*shared),
	}
}

// Current reads the wallet session of the request. A transition in flight on
// another request of the same session wins over the stored values.
func (m *Manager) Current(ctx context.Context) Session {
	if token := m.sm.Token(ctx); token != "" {
		m.mu.Lock()
		sh, ok := m.live[token]
		m.mu.Unlock()
		if ok {
			return sh.wc.Session()
		}
	}
	return m.stored(ctx)
}

func (m *Manager) stored(ctx context.Context) Session {
	s := Session{
		Address: m.sm.GetString(ctx, keyAddress),
		ChainID: m.sm.GetInt64(ctx, keyChainID),
		Status:  Status(m.sm.GetString(ctx, keyStatus)),
		Nonce:   m.sm.GetString(ctx, keyNonce),
	}
	if at := m.sm.GetInt64(ctx, keyIssuedAt); at != 0 {
		s.IssuedAt = time.Unix(0, at)
	}
	if s.Status == "" {
		s.Status = Disconnected
	}
	return s
}

func sameSession(a, b Session) bool {
	return a.Address == b.Address &&
		a.ChainID == b.ChainID &&
		a.Status == b.Status &&
		a.Nonce == b.Nonce &&
		a.IssuedAt.Equal(b.IssuedAt)
}

// save writes s unless the request already holds it, so a request that
// changed nothing cannot commit a stale copy over a newer one.
func (m *Manager) save(ctx context.Context, s Session) {
	if sameSession(m.stored(ctx), s) {
		return
	}

	m.sm.Put(ctx, keyAddress, s.Address)
	m.sm.Put(ctx, keyChainID, s.ChainID)
	m.sm.Put(ctx, keyStatus, string(s.Status))
	m.sm.Put(ctx, keyNonce, s.Nonce)

	var at int64
	if !s.IssuedAt.IsZero() {
		at = s.IssuedAt.UnixNano()
	}
	m.sm.Put(ctx, keyIssuedAt, at)
}

// acquire returns the Context of the session and a release func. Sessions
// without a token yet cannot have concurrent requests and get their own.
func (m *Manager) acquire(ctx context.Context) (*Context, func()) {
	token := m.sm.Token(ctx)
	if token == "" {
		return NewContext(m.stored(ctx), m.provider, m.log, m.nonceTTL), func() {}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sh, ok := m.live[token]
	if !ok {
		sh = &shared{wc: NewContext(m.stored(ctx), m.provider, m.log, m.nonceTTL)}
		m.live[token] = sh
	}
	sh.users++

	return sh.wc, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		sh.users--
		if sh.users == 0 {
			delete(m.live, token)
		}
	}
}

// Begin issues a challenge for the session and returns it.
func (m *Manager) Begin(ctx context.Context) (Session, error) {
	nonce, err := random.Hex(16)
	if err != nil {
		return Session{}, err
	}

	wc, release := m.acquire(ctx)
	defer release()

	s, err := wc.Begin(nonce)
	if err != nil {
		return s, err
	}
	m.save(ctx, s)
	return s, nil
}

func (m *Manager) Connect(ctx context.Context, req ConnectRequest) (Session, error) {
	wc, release := m.acquire(ctx)
	defer release()

	s, err := wc.Connect(ctx, req)
	if !errors.Is(err, ErrBusy) {
		m.save(ctx, s)
	}
	return s, err
}

func (m *Manager) Disconnect(ctx context.Context) (Session, error) {
	wc, release := m.acquire(ctx)
	defer release()

	s, err := wc.Disconnect(ctx)
	if !errors.Is(err, ErrBusy) {
		m.save(ctx, s)
	}
	return s, err
}
