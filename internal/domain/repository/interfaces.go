package repository

import (
	"context"

	"OptiFeed/internal/domain/models"
)

// QuoteProvider is the boundary to the market-data/broker layer. Its reads
// return already-buffered state and never block on network I/O; the
// provider's own connections run on their own goroutines behind it.
type QuoteProvider interface {
	Connect(ctx context.Context) error
	SubscribeUnderlying(ctx context.Context, symbol string) error
	Subscribe(ctx context.Context, c models.OptionContract) error

	// UnderlyingQuotes returns the latest quote per subscribed underlying.
	UnderlyingQuotes() map[string]models.Quote
	// OptionQuotes returns the latest record per subscribed contract,
	// analytics possibly unset.
	OptionQuotes() []models.OptionRecord

	Close() error
}

// SnapshotSink receives each published snapshot. Implementations must not
// retain or mutate the snapshot; it is shared read-only.
type SnapshotSink interface {
	Publish(ctx context.Context, s *models.MarketSnapshot) error
	Close() error
}

// Metrics is the instrumentation surface of the monitor pipeline.
type Metrics interface {
	RecordTick(seconds float64)
	RecordOverrun()
	RecordScreened(n int)
	RecordSolveFailure()
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
}
