package domain

import (
	"strconv"
	"strings"
	"sync"
)

// ============================================================
// Clients
// ============================================================

// Target is anything an operation can be applied to: an Account directly,
// or a Client through its active account.
type Target interface {
	ResolveAccount() (*Account, error)
	ClientName() string
}

// PinTarget resolves t once and returns a Target fixed to that account.
// The client name of t is kept, so operations on the result are recorded
// exactly as operations on t would be.
func PinTarget(t Target) (Target, error) {
	acc, err := t.ResolveAccount()
	if err != nil {
		return nil, err
	}
	return pinnedTarget{account: acc, client: t.ClientName()}, nil
}

type pinnedTarget struct {
	account *Account
	client  string
}

func (p pinnedTarget) ResolveAccount() (*Account, error) { return p.account, nil }
func (p pinnedTarget) ClientName() string                { return p.client }

// Client owns a set of accounts and designates one of them as active.
type Client struct {
	mu       sync.RWMutex
	name     string
	city     string
	accounts []*Account
	active   *Account
}

// NewClient creates a client without accounts.
func NewClient(name, city string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ErrValidation{Field: "name", Message: "must not be empty"}
	}
	return &Client{name: name, city: strings.TrimSpace(city)}, nil
}

// Name is the client's lookup key.
func (c *Client) Name() string { return c.name }

// City is optional.
func (c *Client) City() string { return c.city }

// ClientName implements Target.
func (c *Client) ClientName() string { return c.name }

// AddAccount attaches acc to the client.
func (c *Client) AddAccount(acc *Account) error {
	if acc == nil {
		return &ErrValidation{Field: "account", Message: "must not be nil"}
	}
	id := acc.ID()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if a == acc || a.ID() == id {
			return &ErrConflict{Message: "client " + c.name + " already owns account " + strconv.Itoa(id)}
		}
	}
	c.accounts = append(c.accounts, acc)
	return nil
}

// Accounts returns the owned accounts in the order they were added.
func (c *Client) Accounts() []*Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Account finds an owned account by id.
func (c *Client) Account(id int) (*Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.accounts {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, &ErrNotFound{Resource: "account", ID: strconv.Itoa(id)}
}

// ActiveAccount returns the designated account. When none has been
// designated yet the first account becomes active.
func (c *Client) ActiveAccount() (*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		if len(c.accounts) == 0 {
			return nil, &ErrNotFound{Resource: "active account", ID: c.name}
		}
		c.active = c.accounts[0]
	}
	return c.active, nil
}

// SetActiveAccount designates acc, which must be owned by the client.
func (c *Client) SetActiveAccount(acc *Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.accounts {
		if a == acc {
			c.active = acc
			return nil
		}
	}
	return &ErrValidation{Field: "account", Message: "account is not owned by client " + c.name}
}

// SetDefaultActiveAccountIfNotSet makes the first account active if no
// account is active. It does nothing for a client without accounts.
func (c *Client) SetDefaultActiveAccountIfNotSet() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil && len(c.accounts) > 0 {
		c.active = c.accounts[0]
	}
}

// RemoveAccount detaches the account with the given id. If it was active,
// no account is active afterwards.
func (c *Client) RemoveAccount(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.accounts {
		if a.ID() == id {
			c.accounts = append(c.accounts[:i], c.accounts[i+1:]...)
			if c.active == a {
				c.active = nil
			}
			return nil
		}
	}
	return &ErrNotFound{Resource: "account", ID: strconv.Itoa(id)}
}

// TotalBalance sums the balances of all owned accounts.
func (c *Client) TotalBalance() float64 {
	var total float64
	for _, a := range c.Accounts() {
		total += a.Balance()
	}
	return total
}

// ResolveAccount implements Target by routing to the active account.
func (c *Client) ResolveAccount() (*Account, error) {
	return c.ActiveAccount()
}

// ClientView is a serialisable snapshot of a client.
type ClientView struct {
	Name            string        `json:"name"`
	City            string        `json:"city,omitempty"`
	ActiveAccountID *int          `json:"active_account_id,omitempty"`
	TotalBalance    float64       `json:"total_balance"`
	Accounts        []AccountView `json:"accounts"`
}

// View returns a snapshot of the client and its accounts.
func (c *Client) View() ClientView {
	c.mu.RLock()
	accounts := make([]*Account, len(c.accounts))
	copy(accounts, c.accounts)
	active := c.active
	c.mu.RUnlock()

	v := ClientView{Name: c.name, City: c.city, Accounts: make([]AccountView, 0, len(accounts))}
	for _, a := range accounts {
		av := a.View()
		v.TotalBalance += av.Balance
		v.Accounts = append(v.Accounts, av)
	}
	if active != nil {
		id := active.ID()
		v.ActiveAccountID = &id
	}
	return v
}
