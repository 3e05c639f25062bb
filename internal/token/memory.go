package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// MemoryToken is an in-process CollateralToken used by the demo wiring and
// tests. An optional fee (basis points) is withheld from the credited side of
// every transfer, modelling fee-on-transfer assets: the recipient observes a
// smaller delta than the requested amount.
type MemoryToken struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*big.Int
	feeBps   int64
}

func NewMemoryToken() *MemoryToken {
	return &MemoryToken{balances: make(map[uuid.UUID]*big.Int)}
}

// NewFeeOnTransferToken withholds feeBps basis points of every transfer.
func NewFeeOnTransferToken(feeBps int64) *MemoryToken {
	return &MemoryToken{
		balances: make(map[uuid.UUID]*big.Int),
		feeBps:   feeBps,
	}
}

// Fund credits a holder out of thin air (test/demo setup only).
func (t *MemoryToken) Fund(holder uuid.UUID, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(holder, amount)
}

func (t *MemoryToken) Transfer(to uuid.UUID, amount *big.Int) error {
	// The memory implementation needs an explicit sender; the engine obtains
	// one bound to its own account via Bind.
	return fmt.Errorf("memory token: Transfer requires a bound sender, use Bind")
}

// Bind returns a CollateralToken view whose Transfer sends from the given
// account. The engine binds its own account once at construction.
func (t *MemoryToken) Bind(sender uuid.UUID) CollateralToken {
	return &boundToken{token: t, sender: sender}
}

func (t *MemoryToken) TransferFrom(from, to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

func (t *MemoryToken) BalanceOf(holder uuid.UUID) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *MemoryToken) move(from, to uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("memory token: non-positive amount")
	}

	have, ok := t.balances[from]
	if !ok || have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %v, need %v", ErrInsufficientFunds, have, amount)
	}

	have.Sub(have, amount)

	credited := new(big.Int).Set(amount)
	if t.feeBps > 0 {
		fee := new(big.Int).Mul(amount, big.NewInt(t.feeBps))
		fee.Quo(fee, big.NewInt(10_000))
		credited.Sub(credited, fee)
	}
	t.credit(to, credited)
	return nil
}

func (t *MemoryToken) credit(holder uuid.UUID, amount *big.Int) {
	b, ok := t.balances[holder]
	if !ok {
		b = new(big.Int)
		t.balances[holder] = b
	}
	b.Add(b, amount)
}

type boundToken struct {
	token  *MemoryToken
	sender uuid.UUID
}

func (b *boundToken) Transfer(to uuid.UUID, amount *big.Int) error {
	b.token.mu.Lock()
	defer b.token.mu.Unlock()
	return b.token.move(b.sender, to, amount)
}

func (b *boundToken) TransferFrom(from, to uuid.UUID, amount *big.Int) error {
	return b.token.TransferFrom(from, to, amount)
}

func (b *boundToken) BalanceOf(holder uuid.UUID) *big.Int {
	return b.token.BalanceOf(holder)
}

// MemoryDebtToken is the in-process debt-asset collaborator. The authority
// (the engine) is set once via TransferAuthority; every privileged call is
// checked against it. Burn destroys units held by the authority.
type MemoryDebtToken struct {
	mu        sync.Mutex
	authority uuid.UUID
	balances  map[uuid.UUID]*big.Int
	supply    *big.Int
}

func NewMemoryDebtToken() *MemoryDebtToken {
	return &MemoryDebtToken{
		balances: make(map[uuid.UUID]*big.Int),
		supply:   new(big.Int),
	}
}

// TransferAuthority designates the single account allowed to mint and burn.
// Settable once at setup; subsequent transfers require the current authority.
func (t *MemoryDebtToken) TransferAuthority(newAuthority uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if newAuthority == uuid.Nil {
		return fmt.Errorf("debt token: authority must be non-zero")
	}
	if t.authority != uuid.Nil {
		return fmt.Errorf("%w: authority already transferred", ErrNotAuthorized)
	}
	t.authority = newAuthority
	return nil
}

func (t *MemoryDebtToken) Authority() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.authority
}

func (t *MemoryDebtToken) Mint(to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireAuthority(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("debt token: non-positive mint amount")
	}

	b, ok := t.balances[to]
	if !ok {
		b = new(big.Int)
		t.balances[to] = b
	}
	b.Add(b, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

func (t *MemoryDebtToken) Burn(amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireAuthority(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("debt token: non-positive burn amount")
	}

	held, ok := t.balances[t.authority]
	if !ok || held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: authority holds %v, burning %v", ErrInsufficientFunds, held, amount)
	}

	held.Sub(held, amount)
	t.supply.Sub(t.supply, amount)
	return nil
}

func (t *MemoryDebtToken) TransferFrom(from, to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("debt token: non-positive amount")
	}

	have, ok := t.balances[from]
	if !ok || have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %v, need %v", ErrInsufficientFunds, have, amount)
	}

	have.Sub(have, amount)

	b, ok := t.balances[to]
	if !ok {
		b = new(big.Int)
		t.balances[to] = b
	}
	b.Add(b, amount)
	return nil
}

func (t *MemoryDebtToken) BalanceOf(holder uuid.UUID) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *MemoryDebtToken) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.supply)
}

func (t *MemoryDebtToken) requireAuthority() error {
	if t.authority == uuid.Nil {
		return fmt.Errorf("%w: no authority configured", ErrNotAuthorized)
	}
	return nil
}
