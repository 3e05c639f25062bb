// Package token defines the asset-transfer collaborator contracts the engine
// calls out to. The engine never implements transfer logic itself; it trusts
// these contracts' return values and, for deposits, the observed balance
// delta.
package token

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("token: insufficient funds")
	ErrNotAuthorized     = errors.New("token: caller not authorized")
)

// CollateralToken is the fungible-asset transfer collaborator for one
// collateral asset. Transfer moves funds out of the engine's own holdings;
// TransferFrom pulls funds from a user into the engine.
type CollateralToken interface {
	Transfer(to uuid.UUID, amount *big.Int) error
	TransferFrom(from, to uuid.UUID, amount *big.Int) error
	BalanceOf(holder uuid.UUID) *big.Int
}

// DebtToken is the collaborator for the minted dollar-pegged unit. Mint and
// Burn are privileged: only the single configured authority (the engine) may
// call them. Burn destroys units held by the authority itself.
type DebtToken interface {
	Mint(to uuid.UUID, amount *big.Int) error
	Burn(amount *big.Int) error
	TransferFrom(from, to uuid.UUID, amount *big.Int) error
	BalanceOf(holder uuid.UUID) *big.Int
	TotalSupply() *big.Int
}
