package oracle

import (
	"math/big"
	"sync"
	"time"
)

// MemoryFeed is an in-process PriceFeed updated by the price subscriber.
// Safe for concurrent reads and writes: price pushes arrive on the NATS
// consumer goroutine while the engine reads on the request path.
type MemoryFeed struct {
	mu    sync.RWMutex
	round Round
}

// NewMemoryFeed creates a feed with an initial complete round stamped now.
// An invalid initial price leaves the feed empty.
func NewMemoryFeed(price *big.Int) *MemoryFeed {
	f := &MemoryFeed{}
	f.Push(price, time.Now())
	return f
}

// Push records a new complete round. A nil or non-positive price is dropped
// and the feed keeps its previous round; a feed that never received a valid
// price reads as an incomplete round.
func (f *MemoryFeed) Push(price *big.Int, updatedAt time.Time) {
	if price == nil || price.Sign() <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.round = Round{
		Price:     new(big.Int).Set(price),
		UpdatedAt: updatedAt,
		Complete:  true,
	}
}

// SetRound overwrites the latest round verbatim (tests use this to produce
// stale or incomplete rounds).
func (f *MemoryFeed) SetRound(round Round) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round = round
}

func (f *MemoryFeed) LatestRound() (Round, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	round := f.round
	if round.Price != nil {
		round.Price = new(big.Int).Set(round.Price)
	}
	return round, nil
}
