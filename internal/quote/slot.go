// internal/quote/slot.go
package quote

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// ErrStale is returned to a request that was overtaken by a newer one.
var ErrStale = errors.New("quote superseded by a newer request")

// Fetch produces one quote.
type Fetch func(ctx context.Context) (Quote, error)

// Slot coalesces repeated refreshes of one quote input. Each request gets a
// sequence number; only the answer for the latest issued number is kept.
type Slot struct {
	mu      sync.Mutex
	seq     uint64
	latest  *Quote
	metrics *metrics.Collector
	logger  *zap.Logger

	publisher events.Publisher
	session   string
}

func NewSlot(collector *metrics.Collector, logger *zap.Logger) *Slot {
	return &Slot{metrics: collector, logger: logger.Named("quote_slot")}
}

// WithPublisher makes the slot announce every accepted quote.
func (s *Slot) WithPublisher(p events.Publisher, session string) *Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
	s.session = session
	return s
}

// Request runs fetch under a fresh sequence number. Requests may overlap;
// any of them that is not the newest when it resolves gets ErrStale, no
// matter which one finished first. A failed newest request clears Latest.
func (s *Slot) Request(ctx context.Context, fetch Fetch) (Quote, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	q, err := fetch(ctx)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.metrics.RecordStaleQuote()
		s.logger.Debug("Discarding stale quote", zap.Uint64("seq", seq))
		return Quote{}, ErrStale
	}
	if err != nil {
		s.latest = nil
		s.mu.Unlock()
		return Quote{}, err
	}
	accepted := q
	s.latest = &accepted
	pub, session := s.publisher, s.session
	s.mu.Unlock()

	events.Emit(pub, events.NewQuoteEvent(session, q.Path.String(), q.AmountIn.String(), q.AmountOut.String()))
	return q, nil
}

// Invalidate drops the current quote and makes every in-flight request
// stale. Call it when the input changes.
func (s *Slot) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest = nil
}

// Latest returns the last accepted quote, if it is still current.
func (s *Slot) Latest() (Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Quote{}, false
	}
	return *s.latest, true
}

// Seq is the latest issued sequence number.
func (s *Slot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
