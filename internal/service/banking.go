package service

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/bankapp-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var bankingTracer = otel.Tracer("service/banking")

// Banking is the registry of clients, keyed by name.
type Banking struct {
	mu            sync.RWMutex
	clients       map[string]*domain.Client
	nextAccountID int
	logger        *zap.Logger
}

// NewBanking creates an empty registry.
func NewBanking(logger *zap.Logger) *Banking {
	return &Banking{
		clients:       make(map[string]*domain.Client),
		nextAccountID: 1,
		logger:        logger,
	}
}

// AddClient registers c. Names are unique.
func (b *Banking) AddClient(c *domain.Client) error {
	if c == nil {
		return &domain.ErrValidation{Field: "client", Message: "must not be nil"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.clients[c.Name()]; exists {
		return &domain.ErrConflict{Message: "client already exists: " + c.Name()}
	}
	b.clients[c.Name()] = c
	for _, a := range c.Accounts() {
		if id := a.ID(); id >= b.nextAccountID {
			b.nextAccountID = id + 1
		}
	}

	b.logger.Info("client added", zap.String("client", c.Name()))
	return nil
}

// GetClient returns the client registered under name.
func (b *Banking) GetClient(name string) (*domain.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clients[name]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: name}
	}
	return c, nil
}

// Clients returns all clients sorted by name.
func (b *Banking) Clients() []*domain.Client {
	b.mu.RLock()
	out := make([]*domain.Client, 0, len(b.clients))
	for _, c := range b.clients {
		out = append(out, c)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// DeleteClient removes the client registered under name.
func (b *Banking) DeleteClient(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[name]; !ok {
		return &domain.ErrNotFound{Resource: "client", ID: name}
	}
	delete(b.clients, name)

	b.logger.Info("client deleted", zap.String("client", name))
	return nil
}

// OpenAccount creates an account with the next free id and gives it to the
// named client.
func (b *Banking) OpenAccount(ctx context.Context, name string, kind domain.AccountType, balance, overdraft float64) (*domain.Account, error) {
	_, span := bankingTracer.Start(ctx, "Banking.OpenAccount")
	defer span.End()
	span.SetAttributes(attribute.String("client.name", name), attribute.String("account.type", string(kind)))

	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.clients[name]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: name}
	}
	id := b.nextFreeAccountID()
	acc, err := domain.NewAccount(id, kind, balance, overdraft)
	if err != nil {
		return nil, err
	}
	if err := c.AddAccount(acc); err != nil {
		return nil, err
	}
	b.nextAccountID = id + 1

	b.logger.Info("account opened",
		zap.String("client", name),
		zap.Int("account_id", acc.ID()),
		zap.String("type", string(kind)),
	)
	return acc, nil
}

// nextFreeAccountID skips ids taken by accounts renumbered with SetID.
// b.mu must be held.
func (b *Banking) nextFreeAccountID() int {
	used := make(map[int]struct{})
	for _, c := range b.clients {
		for _, a := range c.Accounts() {
			used[a.ID()] = struct{}{}
		}
	}
	id := b.nextAccountID
	for {
		if _, taken := used[id]; !taken {
			return id
		}
		id++
	}
}

// AllAccounts returns every account of every client, grouped by client name.
func (b *Banking) AllAccounts() []*domain.Account {
	var out []*domain.Account
	for _, c := range b.Clients() {
		out = append(out, c.Accounts()...)
	}
	return out
}
