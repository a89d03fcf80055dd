package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// User-facing messages for the three connection failure classes.
const (
	MsgDeclined = "Wallet connection was declined"
	MsgNotFound = "Wallet not found, make sure the extension is installed"
	MsgGeneric  = "Failed to connect wallet"
)

// Classify returns the message shown to the user for a connection error and
// the wallet sentinel it maps to, nil for the generic class. Wallets do not
// agree on error shapes, so the text is inspected when no sentinel is wrapped.
func Classify(err error) (msg string, class error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, domain.ErrWalletDeclined):
		return MsgDeclined, domain.ErrWalletDeclined
	case errors.Is(err, domain.ErrWalletNotFound):
		return MsgNotFound, domain.ErrWalletNotFound
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "declin"), strings.Contains(text, "refused"), strings.Contains(text, "rejected"):
		return MsgDeclined, domain.ErrWalletDeclined
	case strings.Contains(text, "not found"), strings.Contains(text, "not installed"):
		return MsgNotFound, domain.ErrWalletNotFound
	}
	return MsgGeneric, nil
}

// ProviderConfig wires a Provider.
type ProviderConfig struct {
	Wallets *Registry
	// Chain is handed to balance strategies and stored in the state. May be nil.
	Chain   domain.ChainClient
	Session domain.SessionStore
	// Bus receives the state on ch:wallet after every change. May be nil.
	Bus               domain.SignalBus
	AddressStrategies []AddressStrategy
	BalanceStrategies []BalanceStrategy
	Logger            *slog.Logger
	Now               func() time.Time
}

// Provider owns the wallet state. Every mutation swaps the whole value under
// the mutex; readers get a copy. Connect and Disconnect start a new
// generation, and a Connect or Refresh whose wallet calls finish after the
// generation moved on drops its result.
type Provider struct {
	wallets   *Registry
	chain     domain.ChainClient
	session   domain.SessionStore
	bus       domain.SignalBus
	addrs     []AddressStrategy
	balances  []BalanceStrategy
	logger    *slog.Logger
	now       func() time.Time
	connectMu sync.Mutex
	sessionMu sync.Mutex

	mu    sync.RWMutex
	state domain.WalletState
	gen   uint64
}

// NewProvider creates a disconnected Provider.
func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Wallets == nil {
		cfg.Wallets = NewRegistry()
	}
	if len(cfg.AddressStrategies) == 0 {
		cfg.AddressStrategies = DefaultAddressStrategies()
	}
	if len(cfg.BalanceStrategies) == 0 {
		cfg.BalanceStrategies = DefaultBalanceStrategies()
	}
	return &Provider{
		wallets:  cfg.Wallets,
		chain:    cfg.Chain,
		session:  cfg.Session,
		bus:      cfg.Bus,
		addrs:    cfg.AddressStrategies,
		balances: cfg.BalanceStrategies,
		logger:   cfg.Logger.With(slog.String("component", "wallet_provider")),
		now:      cfg.Now,
	}
}

// Wallets returns the connector registry.
func (p *Provider) Wallets() *Registry { return p.wallets }

// State returns a copy of the current state.
func (p *Provider) State() domain.WalletState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Provider) snapshot() (domain.WalletState, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.gen
}

func (p *Provider) current(gen uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen == gen
}

// reset starts a new generation with next as its state.
func (p *Provider) reset(ctx context.Context, next domain.WalletState) (domain.WalletState, uint64) {
	next.UpdatedAt = p.now()
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.state = next
	p.mu.Unlock()
	p.publish(ctx, next)
	return next, gen
}

// setIf stores next only while gen is still the current generation.
func (p *Provider) setIf(ctx context.Context, gen uint64, next domain.WalletState) (domain.WalletState, bool) {
	next.UpdatedAt = p.now()
	p.mu.Lock()
	if p.gen != gen {
		cur := p.state
		p.mu.Unlock()
		return cur, false
	}
	p.state = next
	p.mu.Unlock()
	p.publish(ctx, next)
	return next, true
}

func (p *Provider) publish(ctx context.Context, st domain.WalletState) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"event": "wallet_state", "data": st})
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, domain.ChannelWallet, payload); err != nil {
		p.logger.WarnContext(ctx, "publish wallet state failed", slog.String("error", err.Error()))
	}
}

// Connect enables the named wallet and resolves its address and balance. A
// failure leaves the provider disconnected with a classified error message;
// nothing retries automatically.
func (p *Provider) Connect(ctx context.Context, name string) (domain.WalletState, error) {
	p.connectMu.Lock()
	defer p.connectMu.Unlock()

	_, gen := p.reset(ctx, domain.WalletState{Connecting: true, WalletName: name})

	st, err := p.connect(ctx, name)
	if !p.current(gen) {
		p.logger.InfoContext(ctx, "wallet connect superseded", slog.String("wallet", name))
		return p.State(), fmt.Errorf("wallet: connect %s: disconnected while connecting: %w", name, domain.ErrWalletNotConnected)
	}
	if err != nil {
		msg, sentinel := Classify(err)
		p.logger.WarnContext(ctx, "wallet connect failed",
			slog.String("wallet", name),
			slog.String("class", msg),
			slog.String("error", err.Error()),
		)
		st, _ = p.setIf(ctx, gen, domain.WalletState{WalletName: name, Error: msg})
		if sentinel != nil && !errors.Is(err, sentinel) {
			err = fmt.Errorf("%w: %w", sentinel, err)
		}
		return st, fmt.Errorf("wallet: connect %s: %w", name, err)
	}

	st, ok := p.setIf(ctx, gen, st)
	if !ok {
		return st, fmt.Errorf("wallet: connect %s: disconnected while connecting: %w", name, domain.ErrWalletNotConnected)
	}
	p.saveSession(ctx, gen, st)
	p.logger.InfoContext(ctx, "wallet connected",
		slog.String("wallet", st.WalletName),
		slog.String("address", st.Address),
		slog.String("network", st.NetworkName()),
		slog.String("balance", st.Balance.String()),
	)
	return st, nil
}

func (p *Provider) connect(ctx context.Context, name string) (domain.WalletState, error) {
	connector, err := p.wallets.Get(name)
	if err != nil {
		return domain.WalletState{}, err
	}
	api, err := connector.Enable(ctx)
	if err != nil {
		return domain.WalletState{}, fmt.Errorf("enable: %w", err)
	}

	addr, attempts, err := ResolveAddress(ctx, api, p.addrs)
	p.logAttempts(ctx, "address", attempts)
	if err != nil {
		return domain.WalletState{}, err
	}

	network, err := api.GetNetworkID(ctx)
	if err != nil {
		// The address header carries the network as well.
		raw, derr := DecodeAddress(addr)
		if derr != nil {
			return domain.WalletState{}, fmt.Errorf("network id: %w", err)
		}
		network, _ = AddressNetwork(raw)
	}

	lovelace, attempts, err := ResolveBalance(ctx, BalanceSource{API: api, Chain: p.chain, Address: addr}, p.balances)
	p.logAttempts(ctx, "balance", attempts)
	if err != nil {
		return domain.WalletState{}, err
	}

	return domain.WalletState{
		Connected:  true,
		WalletName: connector.Name(),
		API:        api,
		Chain:      p.chain,
		Address:    addr,
		Balance:    domain.LovelaceToADA(lovelace),
		NetworkID:  network,
	}, nil
}

func (p *Provider) logAttempts(ctx context.Context, what string, log AttemptLog) {
	for _, a := range log {
		p.logger.DebugContext(ctx, "wallet strategy failed",
			slog.String("resolve", what),
			slog.String("strategy", a.Strategy),
			slog.String("error", a.Err.Error()),
		)
	}
}

// Refresh re-reads the balance. On failure the previous balance is kept. A
// balance that arrives after a Disconnect or a new Connect is dropped.
func (p *Provider) Refresh(ctx context.Context) (domain.WalletState, error) {
	cur, gen := p.snapshot()
	if !cur.Connected || cur.API == nil {
		return cur, domain.ErrWalletNotConnected
	}

	lovelace, attempts, err := ResolveBalance(ctx, BalanceSource{API: cur.API, Chain: cur.Chain, Address: cur.Address}, p.balances)
	p.logAttempts(ctx, "balance", attempts)
	if err != nil {
		p.logger.WarnContext(ctx, "wallet refresh failed, keeping previous balance",
			slog.String("error", err.Error()),
		)
		return cur, fmt.Errorf("wallet: refresh: %w", err)
	}

	next := cur
	next.Balance = domain.LovelaceToADA(lovelace)
	next.Error = ""
	st, ok := p.setIf(ctx, gen, next)
	if !ok {
		return st, fmt.Errorf("wallet: refresh: state changed meanwhile: %w", domain.ErrWalletNotConnected)
	}
	return st, nil
}

// Disconnect resets the state to its zero value and clears the session.
func (p *Provider) Disconnect(ctx context.Context) domain.WalletState {
	prev := p.State()
	st, _ := p.reset(ctx, domain.WalletState{})
	if p.session != nil {
		p.sessionMu.Lock()
		if err := p.session.Delete(ctx, domain.SessionWalletName, domain.SessionWalletAddress); err != nil {
			p.logger.WarnContext(ctx, "clear wallet session failed", slog.String("error", err.Error()))
		}
		p.sessionMu.Unlock()
	}
	if prev.Connected {
		p.logger.InfoContext(ctx, "wallet disconnected", slog.String("wallet", prev.WalletName))
	}
	return st
}

// Restore reconnects the wallet saved by the last successful Connect. It is a
// no-op when nothing was saved. A failed restore clears the session.
func (p *Provider) Restore(ctx context.Context) (domain.WalletState, error) {
	if p.session == nil {
		return p.State(), nil
	}
	name, err := p.session.Get(ctx, domain.SessionWalletName)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && name == "") {
		return p.State(), nil
	}
	if err != nil {
		return p.State(), fmt.Errorf("wallet: read session: %w", err)
	}

	st, err := p.Connect(ctx, name)
	if err != nil {
		if derr := p.session.Delete(ctx, domain.SessionWalletName, domain.SessionWalletAddress); derr != nil {
			p.logger.WarnContext(ctx, "clear wallet session failed", slog.String("error", derr.Error()))
		}
		return st, err
	}
	return st, nil
}

// saveSession persists st unless a Disconnect already ended gen. Disconnect
// clears the session under the same lock, so the two never interleave.
func (p *Provider) saveSession(ctx context.Context, gen uint64, st domain.WalletState) {
	if p.session == nil {
		return
	}
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()
	if !p.current(gen) {
		return
	}
	if err := p.session.Set(ctx, domain.SessionWalletName, st.WalletName); err != nil {
		p.logger.WarnContext(ctx, "save wallet session failed", slog.String("error", err.Error()))
		return
	}
	if err := p.session.Set(ctx, domain.SessionWalletAddress, st.Address); err != nil {
		p.logger.WarnContext(ctx, "save wallet session failed", slog.String("error", err.Error()))
	}
}
