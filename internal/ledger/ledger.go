// Package ledger is the authoritative in-memory record of per-account
// collateral deposits and outstanding debt. The ledger validates shape only
// (supported asset, positive amount, sufficient balance); solvency rules live
// in the engine.
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"StableMint/internal/registry"
)

var (
	ErrZeroAmount          = errors.New("ledger: amount must be positive")
	ErrUnsupportedAsset    = errors.New("ledger: unsupported asset")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
)

// Position is one account's recorded state: deposited collateral per asset
// and outstanding minted debt.
type Position struct {
	Owner      uuid.UUID
	Debt       *big.Int
	Collateral map[string]*big.Int
}

// PositionLedger tracks all account positions. It is not safe for concurrent
// use; the engine is the only writer.
type PositionLedger struct {
	registry  *registry.CollateralRegistry
	positions map[uuid.UUID]*Position
}

func New(reg *registry.CollateralRegistry) *PositionLedger {
	return &PositionLedger{
		registry:  reg,
		positions: make(map[uuid.UUID]*Position),
	}
}

// Credit increases an account's recorded collateral for one asset.
func (l *PositionLedger) Credit(owner uuid.UUID, asset string, amount *big.Int) error {
	if err := l.validate(asset, amount); err != nil {
		return err
	}

	p := l.position(owner)
	bal, ok := p.Collateral[asset]
	if !ok {
		bal = new(big.Int)
		p.Collateral[asset] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// Debit decreases an account's recorded collateral for one asset. Fails
// without mutation when the account holds less than the debited amount.
func (l *PositionLedger) Debit(owner uuid.UUID, asset string, amount *big.Int) error {
	if err := l.validate(asset, amount); err != nil {
		return err
	}

	p, ok := l.positions[owner]
	if !ok {
		return fmt.Errorf("%w: account %s holds no %s", ErrInsufficientBalance, owner, asset)
	}
	bal, ok := p.Collateral[asset]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s holds %v %s, debiting %v",
			ErrInsufficientBalance, owner, bal, asset, amount)
	}

	bal.Sub(bal, amount)
	return nil
}

// AddDebt increases an account's outstanding debt.
func (l *PositionLedger) AddDebt(owner uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	p := l.position(owner)
	p.Debt.Add(p.Debt, amount)
	return nil
}

// ReduceDebt decreases an account's outstanding debt. Reducing below zero is
// rejected without mutation.
func (l *PositionLedger) ReduceDebt(owner uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}

	p, ok := l.positions[owner]
	if !ok || p.Debt.Cmp(amount) < 0 {
		var have *big.Int
		if ok {
			have = p.Debt
		}
		return fmt.Errorf("%w: account %s owes %v, reducing %v",
			ErrInsufficientBalance, owner, have, amount)
	}

	p.Debt.Sub(p.Debt, amount)
	return nil
}

// CollateralBalance returns a copy of the account's recorded balance for one
// asset; zero when the account never deposited it.
func (l *PositionLedger) CollateralBalance(owner uuid.UUID, asset string) *big.Int {
	if p, ok := l.positions[owner]; ok {
		if bal, ok := p.Collateral[asset]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// DebtOf returns a copy of the account's outstanding debt.
func (l *PositionLedger) DebtOf(owner uuid.UUID) *big.Int {
	if p, ok := l.positions[owner]; ok {
		return new(big.Int).Set(p.Debt)
	}
	return new(big.Int)
}

// TotalCollateral sums the recorded balances of one asset across all
// accounts.
func (l *PositionLedger) TotalCollateral(asset string) *big.Int {
	total := new(big.Int)
	for _, p := range l.positions {
		if bal, ok := p.Collateral[asset]; ok {
			total.Add(total, bal)
		}
	}
	return total
}

// TotalDebt sums outstanding debt across all accounts.
func (l *PositionLedger) TotalDebt() *big.Int {
	total := new(big.Int)
	for _, p := range l.positions {
		total.Add(total, p.Debt)
	}
	return total
}

// Snapshot returns deep copies of every position, keyed by owner.
func (l *PositionLedger) Snapshot() map[uuid.UUID]Position {
	out := make(map[uuid.UUID]Position, len(l.positions))
	for owner, p := range l.positions {
		coll := make(map[string]*big.Int, len(p.Collateral))
		for asset, bal := range p.Collateral {
			coll[asset] = new(big.Int).Set(bal)
		}
		out[owner] = Position{
			Owner:      owner,
			Debt:       new(big.Int).Set(p.Debt),
			Collateral: coll,
		}
	}
	return out
}

func (l *PositionLedger) validate(asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if !l.registry.IsSupported(asset) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset)
	}
	return nil
}

func (l *PositionLedger) position(owner uuid.UUID) *Position {
	p, ok := l.positions[owner]
	if !ok {
		p = &Position{
			Owner:      owner,
			Debt:       new(big.Int),
			Collateral: make(map[string]*big.Int),
		}
		l.positions[owner] = p
	}
	return p
}
