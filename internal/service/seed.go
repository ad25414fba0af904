package service

import (
	"github.com/boddenberg/bankapp-go/internal/domain"
)

// demoClient describes a client created by SeedDemoData.
type demoClient struct {
	name     string
	city     string
	accounts []demoAccount
}

type demoAccount struct {
	id        int
	kind      domain.AccountType
	balance   float64
	overdraft float64
}

var demoClients = []demoClient{
	{
		name: "Jonny Bravo",
		city: "Moscow",
		accounts: []demoAccount{
			{id: 1, kind: domain.AccountTypeSaving, balance: 1000},
			{id: 2, kind: domain.AccountTypeChecking, balance: 1000, overdraft: 100},
		},
	},
	{
		name: "Adam Budzinski",
		city: "Kiev",
		accounts: []demoAccount{
			{id: 3, kind: domain.AccountTypeChecking, balance: 1500, overdraft: 200},
		},
	},
}

// SeedDemoData registers the demo clients and activates their first account.
func SeedDemoData(b *Banking) error {
	for _, dc := range demoClients {
		c, err := domain.NewClient(dc.name, dc.city)
		if err != nil {
			return err
		}
		for _, da := range dc.accounts {
			acc, err := domain.NewAccount(da.id, da.kind, da.balance, da.overdraft)
			if err != nil {
				return err
			}
			if err := c.AddAccount(acc); err != nil {
				return err
			}
		}
		c.SetDefaultActiveAccountIfNotSet()
		if err := b.AddClient(c); err != nil {
			return err
		}
	}
	return nil
}
