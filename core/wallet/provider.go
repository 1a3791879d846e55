package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultMockAddress is the account the mock provider links.
const DefaultMockAddress = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

// MockProvider links a fixed account after an optional delay, without
// checking any signature.
type MockProvider struct {
	address string
	chainID int64
	delay   time.Duration
	fail    error
}

func NewMockProvider(address string, chainID int64, delay time.Duration) *MockProvider {
	if address == "" {
		address = DefaultMockAddress
	}
	return &MockProvider{address: address, chainID: chainID, delay: delay}
}

// Failing makes every later call return err.
func (m *MockProvider) Failing(err error) *MockProvider {
	m.fail = err
	return m
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) wait(ctx context.Context) error {
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return m.fail
}

func (m *MockProvider) Connect(ctx context.Context, ch Challenge) (Account, error) {
	if err := m.wait(ctx); err != nil {
		return Account{}, err
	}
	return Account{Address: m.address, ChainID: m.chainID}, nil
}

func (m *MockProvider) Disconnect(ctx context.Context, acc Account) error {
	return m.wait(ctx)
}

// EthProvider accepts a wallet that personal_sign'ed the challenge message.
// With an RPC endpoint it also checks the node serves the expected chain.
type EthProvider struct {
	chainID int64
	client  *ethclient.Client
}

func NewEthProvider(ctx context.Context, chainID int64, rpcURL string) (*EthProvider, error) {
	p := EthProvider{chainID: chainID}
	if rpcURL != "" {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
		}
		p.client = client
	}
	return &p, nil
}

func (p *EthProvider) Name() string { return "ethereum" }

func (p *EthProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func (p *EthProvider) Connect(ctx context.Context, ch Challenge) (Account, error) {
	if ch.Nonce == "" {
		return Account{}, ErrNonceExpired
	}
	if ch.ChainID != 0 && ch.ChainID != p.chainID {
		return Account{}, ErrWrongChain
	}
	if !common.IsHexAddress(ch.Address) {
		return Account{}, fmt.Errorf("%w: malformed address", ErrInvalidSignature)
	}

	signer, err := Recover(Message(ch.Nonce), ch.Signature)
	if err != nil {
		return Account{}, err
	}
	if signer != common.HexToAddress(ch.Address) {
		return Account{}, ErrInvalidSignature
	}

	if p.client != nil {
		id, err := p.client.ChainID(ctx)
		if err != nil {
			return Account{}, fmt.Errorf("querying chain id: %w", err)
		}
		if id.Int64() != p.chainID {
			return Account{}, ErrWrongChain
		}
	}

	return Account{Address: signer.Hex(), ChainID: p.chainID}, nil
}

func (p *EthProvider) Disconnect(ctx context.Context, acc Account) error {
	return nil
}

// Recover returns the address that produced a personal_sign signature of
// msg.
func Recover(msg string, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}

	// Wallets send v as 27 or 28.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
