package event

import "github.com/google/uuid"

// Big integers are serialized as decimal strings; JSON numbers cannot carry
// 256-bit amounts.

type CollateralDeposited struct {
	User      uuid.UUID `json:"user"`
	Asset     string    `json:"asset"`
	Requested string    `json:"requested"`
	Credited  string    `json:"credited"`
}

func (CollateralDeposited) EventType() EventType { return EventTypeCollateralDeposited }

type CollateralRedeemed struct {
	User   uuid.UUID `json:"user"`
	To     uuid.UUID `json:"to"`
	Asset  string    `json:"asset"`
	Amount string    `json:"amount"`
}

func (CollateralRedeemed) EventType() EventType { return EventTypeCollateralRedeemed }

type DebtMinted struct {
	User   uuid.UUID `json:"user"`
	Amount string    `json:"amount"`
}

func (DebtMinted) EventType() EventType { return EventTypeDebtMinted }

type DebtBurned struct {
	// Payer supplied the burned units; Owner is the account whose debt
	// shrank. They differ when a third party repays on someone's behalf.
	Payer  uuid.UUID `json:"payer"`
	Owner  uuid.UUID `json:"owner"`
	Amount string    `json:"amount"`
}

func (DebtBurned) EventType() EventType { return EventTypeDebtBurned }

type LiquidationExecuted struct {
	Liquidator       uuid.UUID `json:"liquidator"`
	Target           uuid.UUID `json:"target"`
	Asset            string    `json:"asset"`
	DebtCovered      string    `json:"debt_covered"`
	CollateralSeized string    `json:"collateral_seized"`
	Bonus            string    `json:"bonus"`
	HealthBefore     string    `json:"health_before"`
	HealthAfter      string    `json:"health_after"`
}

func (LiquidationExecuted) EventType() EventType { return EventTypeLiquidationExecuted }
