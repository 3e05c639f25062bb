// Package event defines the ledger mutation events the engine emits after
// every successful write operation. Envelopes flow to the persistence worker
// and the outbound publisher; payloads are JSON so downstream consumers can
// decode them without this module's types.
package event

import "time"

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeCollateralDeposited
	EventTypeCollateralRedeemed
	EventTypeDebtMinted
	EventTypeDebtBurned
	EventTypeLiquidationExecuted
)

func (et EventType) String() string {
	switch et {
	case EventTypeCollateralDeposited:
		return "CollateralDeposited"
	case EventTypeCollateralRedeemed:
		return "CollateralRedeemed"
	case EventTypeDebtMinted:
		return "DebtMinted"
	case EventTypeDebtBurned:
		return "DebtBurned"
	case EventTypeLiquidationExecuted:
		return "LiquidationExecuted"
	default:
		return "Unknown"
	}
}

// Envelope wraps every event in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	// Event type discriminator
	EventType EventType

	// Engine wall-clock time at commit
	Timestamp time.Time

	// JSON-encoded event-specific data
	Payload []byte
}

// Event is the interface all event payloads implement.
type Event interface {
	EventType() EventType
}
