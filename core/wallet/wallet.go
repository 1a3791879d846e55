// Package wallet tracks the Web3 wallet linked to a browser session.
//
// A session moves disconnected -> connecting -> connected when the user
// connects and connected -> disconnecting -> disconnected when they leave.
// Nothing reconnects on its own and no chain events are followed.
package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	Disconnected  Status = "disconnected"
	Connecting    Status = "connecting"
	Connected     Status = "connected"
	Disconnecting Status = "disconnecting"
)

var (
	ErrBusy             = errors.New("wallet transition already in progress")
	ErrNotConnected     = errors.New("wallet not connected")
	ErrInvalidSignature = errors.New("signature does not match the address")
	ErrNonceExpired     = errors.New("sign-in challenge missing or expired")
	ErrWrongChain       = errors.New("wallet is on an unsupported chain")
)

type Session struct {
	Address  string    `json:"address,omitempty"`
	ChainID  int64     `json:"chainId,omitempty"`
	Status   Status    `json:"status"`
	Nonce    string    `json:"-"`
	IssuedAt time.Time `json:"-"`
}

func (s Session) Connected() bool {
	return s.Status == Connected && s.Address != ""
}

// Short renders the address as 0x1234...abcd.
func (s Session) Short() string {
	if len(s.Address) <= 10 {
		return s.Address
	}
	return s.Address[:6] + "..." + s.Address[len(s.Address)-4:]
}

// Message is the text a wallet signs to prove it owns the address.
func Message(nonce string) string {
	return "Sign in to Chain Academy\n\nNonce: " + nonce
}

// ConnectRequest carries what the browser sends back after signing.
type ConnectRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	ChainID   int64  `json:"chainId"`
}

// Challenge is a ConnectRequest bound to the nonce it answers.
type Challenge struct {
	ConnectRequest
	Nonce string
}

type Account struct {
	Address string
	ChainID int64
}

// Provider links and unlinks wallets.
type Provider interface {
	Name() string
	Connect(ctx context.Context, ch Challenge) (Account, error)
	Disconnect(ctx context.Context, acc Account) error
}

// Context owns one session and serializes its transitions. The lock is not
// held while the provider works; a second transition meanwhile gets ErrBusy.
type Context struct {
	mu       sync.Mutex
	busy     bool
	session  Session
	provider Provider
	log      logrus.FieldLogger
	nonceTTL time.Duration
	now      func() time.Time
}

func NewContext(s Session, p Provider, log logrus.FieldLogger, nonceTTL time.Duration) *Context {
	if s.Status == "" {
		s.Status = Disconnected
	}
	return &Context{
		session:  s,
		provider: p,
		log:      log,
		nonceTTL: nonceTTL,
		now:      time.Now,
	}
}

func (c *Context) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Context) expired(s Session) bool {
	return s.Nonce == "" || c.now().Sub(s.IssuedAt) > c.nonceTTL
}

// Begin starts a connect by attaching a fresh challenge. An unexpired
// challenge is kept so a reloaded page signs the same nonce.
func (c *Context) Begin(nonce string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return c.session, ErrBusy
	}
	switch c.session.Status {
	case Connected, Disconnecting:
		return c.session, ErrBusy
	case Connecting:
		if !c.expired(c.session) {
			return c.session, nil
		}
	}

	c.session = Session{Status: Connecting, Nonce: nonce, IssuedAt: c.now()}
	return c.session, nil
}

// enterConnect claims the session for a connect. A connected session is
// returned as is with busy left unset.
func (c *Context) enterConnect() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return c.session, ErrBusy
	}
	switch c.session.Status {
	case Connected:
		return c.session, nil
	case Disconnecting:
		return c.session, ErrBusy
	case Disconnected:
		c.session = Session{Status: Connecting}
	case Connecting:
		if c.session.Nonce != "" && c.expired(c.session) {
			c.fail("connect", ErrNonceExpired)
			c.session = Session{Status: Disconnected}
			return c.session, ErrNonceExpired
		}
	}

	c.busy = true
	return c.session, nil
}

// Connect asks the provider to link the wallet. A failure leaves the session
// disconnected, as it was before the connect started.
func (c *Context) Connect(ctx context.Context, req ConnectRequest) (Session, error) {
	s, err := c.enterConnect()
	if err != nil || s.Status == Connected {
		return s, err
	}

	acc, err := c.provider.Connect(ctx, Challenge{ConnectRequest: req, Nonce: s.Nonce})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err != nil {
		c.fail("connect", err)
		c.session = Session{Status: Disconnected}
		return c.session, err
	}

	c.session = Session{Status: Connected, Address: acc.Address, ChainID: acc.ChainID}
	c.log.WithFields(logrus.Fields{
		"provider": c.provider.Name(),
		"address":  acc.Address,
		"chain_id": acc.ChainID,
	}).Info("wallet connected")

	return c.session, nil
}

func (c *Context) enterDisconnect() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return c.session, ErrBusy
	}
	switch c.session.Status {
	case Disconnected, Connecting:
		return c.session, ErrNotConnected
	case Disconnecting:
		return c.session, ErrBusy
	}

	prev := c.session
	c.session.Status = Disconnecting
	c.busy = true
	return prev, nil
}

// Disconnect unlinks the wallet. A failure leaves it connected.
func (c *Context) Disconnect(ctx context.Context) (Session, error) {
	prev, err := c.enterDisconnect()
	if err != nil {
		return prev, err
	}

	err = c.provider.Disconnect(ctx, Account{Address: prev.Address, ChainID: prev.ChainID})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err != nil {
		c.fail("disconnect", err)
		c.session = prev
		return c.session, err
	}

	c.session = Session{Status: Disconnected}
	c.log.WithFields(logrus.Fields{
		"provider": c.provider.Name(),
		"address":  prev.Address,
	}).Info("wallet disconnected")

	return c.session, nil
}

func (c *Context) fail(action string, err error) {
	c.log.WithFields(logrus.Fields{
		"provider": c.provider.Name(),
		"action":   action,
	}).WithError(err).Warn("wallet transition failed")
}
