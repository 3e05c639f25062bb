// Package oracle wraps external price sources behind a staleness-checked
// adapter. A stale, incomplete, or non-positive round is a hard failure of
// the calling operation; there is no fallback price.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrStalePrice signals that the latest round is older than the
	// configured freshness window, or that the round never completed.
	ErrStalePrice = errors.New("stale price")

	// ErrInvalidPrice signals a non-positive or missing reported price.
	ErrInvalidPrice = errors.New("invalid price")
)

// Round is a single price report from an external feed.
// Price is USD with FeedPrecision (1e8) decimals.
type Round struct {
	Price     *big.Int
	UpdatedAt time.Time
	Complete  bool
}

// PriceFeed is the external oracle collaborator contract.
type PriceFeed interface {
	LatestRound() (Round, error)
}

// Adapter enforces the freshness window on top of a PriceFeed.
type Adapter struct {
	window time.Duration
	now    func() time.Time
}

func NewAdapter(window time.Duration) *Adapter {
	return &Adapter{
		window: window,
		now:    time.Now,
	}
}

// Window returns the configured staleness window.
func (a *Adapter) Window() time.Duration {
	return a.window
}

// Price returns the latest USD price from the feed, or fails the whole
// operation when the round cannot be trusted.
func (a *Adapter) Price(feed PriceFeed) (*big.Int, error) {
	round, err := feed.LatestRound()
	if err != nil {
		return nil, fmt.Errorf("latest round: %w", err)
	}

	if !round.Complete {
		return nil, fmt.Errorf("%w: round incomplete", ErrStalePrice)
	}

	age := a.now().Sub(round.UpdatedAt)
	if age > a.window {
		return nil, fmt.Errorf("%w: round is %s old (window %s)", ErrStalePrice, age, a.window)
	}

	if round.Price == nil || round.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reported price %v", ErrInvalidPrice, round.Price)
	}

	return new(big.Int).Set(round.Price), nil
}
