// Package engine applies write operations against the position ledger while
// enforcing the over-collateralization invariant. All mutations follow the
// same shape: validate, mutate the ledger, check solvency, then call out to
// token collaborators; any failure after a mutation is compensated so state
// is restored exactly.
//
// The engine is single-writer. Callers serialize operations externally; the
// in-progress flag only catches a collaborator calling back into the engine
// mid-operation.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StableMint/internal/event"
	"StableMint/internal/ledger"
	"StableMint/internal/observability"
	"StableMint/internal/oracle"
	"StableMint/internal/registry"
	"StableMint/internal/token"
	"StableMint/internal/valuation"
)

type Engine struct {
	cfg     Config
	log     zerolog.Logger
	metrics *observability.Metrics

	registry *registry.CollateralRegistry
	ledger   *ledger.PositionLedger
	valuator *valuation.Valuator

	collateral map[string]token.CollateralToken
	debt       token.DebtToken
	self       uuid.UUID

	sink     chan<- event.Envelope
	sequence int64
	busy     bool
	now      func() time.Time
}

// New wires an engine over a registry and its token collaborators. The self
// account identifies the engine's own holdings: collateral tokens send from
// it and the debt token's mint/burn authority must be transferred to it
// before the first operation. Every registered asset needs a matching
// collateral token. The sink receives one envelope per committed operation;
// a nil sink disables emission.
func New(
	cfg Config,
	reg *registry.CollateralRegistry,
	self uuid.UUID,
	collateral map[string]token.CollateralToken,
	debt token.DebtToken,
	sink chan<- event.Envelope,
	metrics *observability.Metrics,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if self == uuid.Nil {
		return nil, fmt.Errorf("engine requires a holding account id")
	}
	if debt == nil {
		return nil, fmt.Errorf("engine requires a debt token")
	}
	for _, asset := range reg.Assets() {
		if collateral[asset] == nil {
			return nil, fmt.Errorf("no collateral token wired for asset %s", asset)
		}
	}

	led := ledger.New(reg)
	adapter := oracle.NewAdapter(cfg.StalenessWindow)

	return &Engine{
		cfg:        cfg,
		log:        observability.NewLogger("engine"),
		metrics:    metrics,
		registry:   reg,
		ledger:     led,
		valuator:   valuation.New(reg, adapter, led, cfg.LiquidationThreshold, cfg.LiquidationPrecision),
		collateral: collateral,
		debt:       debt,
		self:       self,
		sink:       sink,
		now:        time.Now,
	}, nil
}

// Account returns the engine's own holding account id.
func (e *Engine) Account() uuid.UUID {
	return e.self
}

// ============================================================
// Deposits
// ============================================================

// DepositCollateral pulls collateral from the user and credits the ledger
// with the balance delta the engine actually observed, which for
// fee-on-transfer assets is less than the requested amount.
func (e *Engine) DepositCollateral(user uuid.UUID, asset string, amount *big.Int) error {
	op := "deposit"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	credited, err := e.deposit(user, asset, amount)
	if err != nil {
		return e.rejected(op, err)
	}

	e.emit(event.CollateralDeposited{
		User:      user,
		Asset:     asset,
		Requested: amount.String(),
		Credited:  credited.String(),
	})
	e.applied(op, user)
	return nil
}

// DepositCollateralAndMint is the combined convenience operation. A mint
// failure unwinds the deposit, returning the pulled collateral.
func (e *Engine) DepositCollateralAndMint(user uuid.UUID, asset string, amountCollateral, amountDebt *big.Int) error {
	op := "deposit_and_mint"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	credited, err := e.deposit(user, asset, amountCollateral)
	if err != nil {
		return e.rejected(op, err)
	}

	if err := e.mint(user, amountDebt); err != nil {
		if rbErr := e.ledger.Debit(user, asset, credited); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("deposit rollback: ledger debit failed")
		} else if rbErr := e.collateral[asset].Transfer(user, credited); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("deposit rollback: collateral return failed")
		}
		return e.rejected(op, err)
	}

	e.emit(event.CollateralDeposited{
		User:      user,
		Asset:     asset,
		Requested: amountCollateral.String(),
		Credited:  credited.String(),
	})
	e.emit(event.DebtMinted{User: user, Amount: amountDebt.String()})
	e.applied(op, user)
	return nil
}

func (e *Engine) deposit(user uuid.UUID, asset string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ledger.ErrZeroAmount
	}
	desc, err := e.registry.Describe(asset)
	if err != nil {
		return nil, err
	}

	tok := e.collateral[desc.Asset]
	before := tok.BalanceOf(e.self)

	if err := tok.TransferFrom(user, e.self, amount); err != nil {
		return nil, fmt.Errorf("%w: pull %s: %v", ErrTransferFailed, asset, err)
	}

	credited := new(big.Int).Sub(tok.BalanceOf(e.self), before)
	if credited.Sign() <= 0 {
		return nil, fmt.Errorf("%w: no balance delta observed for %s", ErrTransferFailed, asset)
	}

	if err := e.ledger.Credit(user, asset, credited); err != nil {
		// Ledger rejects only what validation above already admitted; a
		// failure here means the pulled funds must go back.
		if rbErr := tok.Transfer(user, credited); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("deposit rollback: collateral return failed")
		}
		return nil, err
	}
	return credited, nil
}

// ============================================================
// Redemptions
// ============================================================

// RedeemCollateral returns deposited collateral to the user, provided the
// position stays healthy without it.
func (e *Engine) RedeemCollateral(user uuid.UUID, asset string, amount *big.Int) error {
	op := "redeem"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	if err := e.redeem(user, asset, amount); err != nil {
		return e.rejected(op, err)
	}

	e.emit(event.CollateralRedeemed{
		User:   user,
		To:     user,
		Asset:  asset,
		Amount: amount.String(),
	})
	e.applied(op, user)
	return nil
}

// RedeemCollateralForDebt burns debt from the user and then redeems
// collateral in one operation. A redeem failure re-mints the burned debt.
func (e *Engine) RedeemCollateralForDebt(user uuid.UUID, asset string, amountCollateral, amountDebt *big.Int) error {
	op := "redeem_for_debt"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	if err := e.burn(user, user, amountDebt); err != nil {
		return e.rejected(op, err)
	}

	if err := e.redeem(user, asset, amountCollateral); err != nil {
		if rbErr := e.restoreBurnedDebt(user, user, amountDebt); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("burn rollback: restore failed")
		}
		return e.rejected(op, err)
	}

	e.emit(event.DebtBurned{Payer: user, Owner: user, Amount: amountDebt.String()})
	e.emit(event.CollateralRedeemed{
		User:   user,
		To:     user,
		Asset:  asset,
		Amount: amountCollateral.String(),
	})
	e.applied(op, user)
	return nil
}

func (e *Engine) redeem(user uuid.UUID, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrZeroAmount
	}

	if err := e.ledger.Debit(user, asset, amount); err != nil {
		return err
	}

	if err := e.assertHealthy(user); err != nil {
		if rbErr := e.ledger.Credit(user, asset, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("redeem rollback: ledger credit failed")
		}
		return err
	}

	if err := e.collateral[asset].Transfer(user, amount); err != nil {
		if rbErr := e.ledger.Credit(user, asset, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("redeem rollback: ledger credit failed")
		}
		return fmt.Errorf("%w: send %s: %v", ErrTransferFailed, asset, err)
	}
	return nil
}

// ============================================================
// Debt
// ============================================================

// Mint issues new debt units to the user, bounded by the loan-to-value
// limit on their deposited collateral.
func (e *Engine) Mint(user uuid.UUID, amount *big.Int) error {
	op := "mint"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	if err := e.mint(user, amount); err != nil {
		return e.rejected(op, err)
	}

	e.emit(event.DebtMinted{User: user, Amount: amount.String()})
	e.applied(op, user)
	return nil
}

func (e *Engine) mint(user uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrZeroAmount
	}

	if err := e.ledger.AddDebt(user, amount); err != nil {
		return err
	}

	if err := e.assertHealthy(user); err != nil {
		if rbErr := e.ledger.ReduceDebt(user, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("mint rollback: debt reduce failed")
		}
		return err
	}

	if err := e.debt.Mint(user, amount); err != nil {
		if rbErr := e.ledger.ReduceDebt(user, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("mint rollback: debt reduce failed")
		}
		return fmt.Errorf("%w: mint debt: %v", ErrTransferFailed, err)
	}
	return nil
}

// Burn repays debt on the owner's position using units supplied by the
// payer. Payer and owner are the same account for a normal repayment.
func (e *Engine) Burn(payer, owner uuid.UUID, amount *big.Int) error {
	op := "burn"
	defer e.track(op)()
	if err := e.enter(); err != nil {
		return e.rejected(op, err)
	}
	defer e.exit()

	if err := e.burn(payer, owner, amount); err != nil {
		return e.rejected(op, err)
	}

	e.emit(event.DebtBurned{Payer: payer, Owner: owner, Amount: amount.String()})
	e.applied(op, owner)
	return nil
}

func (e *Engine) burn(payer, owner uuid.UUID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrZeroAmount
	}

	if err := e.ledger.ReduceDebt(owner, amount); err != nil {
		return err
	}

	if err := e.debt.TransferFrom(payer, e.self, amount); err != nil {
		if rbErr := e.ledger.AddDebt(owner, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("burn rollback: debt restore failed")
		}
		return fmt.Errorf("%w: pull debt units: %v", ErrTransferFailed, err)
	}

	if err := e.debt.Burn(amount); err != nil {
		if rbErr := e.debt.TransferFrom(e.self, payer, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("burn rollback: unit return failed")
		}
		if rbErr := e.ledger.AddDebt(owner, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("burn rollback: debt restore failed")
		}
		return fmt.Errorf("%w: burn debt units: %v", ErrTransferFailed, err)
	}

	// Burning debt can only raise the owner's health factor. The check is
	// kept anyway so the invariant holds at the end of every mutation.
	if err := e.assertHealthy(owner); err != nil {
		if rbErr := e.restoreBurnedDebt(payer, owner, amount); rbErr != nil {
			e.log.Error().Err(rbErr).Msg("burn rollback: restore failed")
		}
		return err
	}
	return nil
}

// restoreBurnedDebt compensates a completed burn: the engine re-mints the
// destroyed units back to the payer and restores the owner's ledger debt.
func (e *Engine) restoreBurnedDebt(payer, owner uuid.UUID, amount *big.Int) error {
	if err := e.debt.Mint(payer, amount); err != nil {
		return fmt.Errorf("re-mint: %w", err)
	}
	if err := e.ledger.AddDebt(owner, amount); err != nil {
		return fmt.Errorf("ledger restore: %w", err)
	}
	return nil
}

// ============================================================
// Shared internals
// ============================================================

func (e *Engine) enter() error {
	if e.busy {
		return ErrReentrantCall
	}
	e.busy = true
	return nil
}

func (e *Engine) exit() {
	e.busy = false
}

// track returns a deferred observer recording the operation's duration,
// whether it was applied or rejected.
func (e *Engine) track(op string) func() {
	start := e.now()
	return func() {
		if e.metrics != nil {
			e.metrics.OpDuration.WithLabelValues(op).Observe(e.now().Sub(start).Seconds())
		}
	}
}

// assertHealthy fails with a HealthFactorError when the user's position sits
// below the minimum health factor at current prices.
func (e *Engine) assertHealthy(user uuid.UUID) error {
	hf, err := e.valuator.HealthFactor(user)
	if err != nil {
		return err
	}
	if hf.Cmp(e.cfg.MinHealthFactor) < 0 {
		return &HealthFactorError{HealthFactor: hf}
	}
	return nil
}

func (e *Engine) emit(payload event.Event) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.Error().Err(err).Stringer("event_type", payload.EventType()).Msg("event marshal failed")
		return
	}

	e.sequence++
	env := event.Envelope{
		Sequence:  e.sequence,
		EventType: payload.EventType(),
		Timestamp: e.now(),
		Payload:   data,
	}

	if e.metrics != nil {
		e.metrics.Sequence.Set(float64(e.sequence))
	}
	if e.sink != nil {
		// Blocking send: the event log is authoritative, envelopes are
		// never dropped here.
		e.sink <- env
	}
}

func (e *Engine) applied(op string, user uuid.UUID) {
	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.DebtSupply.Set(bigFloat(e.ledger.TotalDebt()))
		for _, asset := range e.registry.Assets() {
			e.metrics.CollateralValue.WithLabelValues(asset).Set(bigFloat(e.ledger.TotalCollateral(asset)))
		}
	}
	e.log.Info().Str("op", op).Stringer("user", user).Int64("sequence", e.sequence).Msg("operation applied")
}

func (e *Engine) rejected(op string, err error) error {
	reason := classify(err)
	if e.metrics != nil {
		e.metrics.OpsRejected.WithLabelValues(op, reason).Inc()
		if reason == "stale_price" {
			e.metrics.StalePriceRejections.WithLabelValues(op).Inc()
		}
	}
	e.log.Warn().Str("op", op).Str("reason", reason).Err(err).Msg("operation rejected")
	return err
}

func classify(err error) string {
	var hfErr *HealthFactorError
	switch {
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrInvalidPrice):
		return "stale_price"
	case errors.As(err, &hfErr):
		return "health_factor"
	case errors.Is(err, ErrNotLiquidatable):
		return "not_liquidatable"
	case errors.Is(err, ErrHealthFactorNotImproved):
		return "not_improved"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant"
	case errors.Is(err, ErrTransferFailed):
		return "transfer"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "validation"
	}
}

func bigFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
