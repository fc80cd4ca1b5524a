// Package subscriber drives the subscription engine: it plans what round
// range to cover next, fetches and normalizes upstream data, evaluates the
// configured filters, dispatches matches through the event bus, and advances
// the persisted watermark atomically with delivery.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rawblock/algostream/internal/enrich"
)

// BeforePoll is the payload of the before_poll event.
type BeforePoll struct {
	Watermark uint64 `json:"watermark"`
	Tip       uint64 `json:"tip"`
}

// RoundRange is a contiguous closed interval of rounds.
type RoundRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// FilterResult groups one filter's matches within a poll. Transactions holds
// *models.Transaction values, or the mapper's output when the filter has one.
type FilterResult struct {
	FilterName   string `json:"filterName"`
	Transactions []any  `json:"transactions"`
}

// PollResult is the outcome of one successful poll.
type PollResult struct {
	StartingWatermark uint64         `json:"startingWatermark"`
	NewWatermark      uint64         `json:"newWatermark"`
	SyncedRoundRange  *RoundRange    `json:"syncedRoundRange,omitempty"`
	CurrentRound      uint64         `json:"currentRound"`
	Matches           []FilterResult `json:"matches"`
}

// Progress is the subscriber's current state for external observers.
type Progress struct {
	Running      bool   `json:"running"`
	Watermark    uint64 `json:"watermark"`
	CurrentRound uint64 `json:"currentRound"`
	TotalPolls   uint64 `json:"totalPolls"`
	TotalMatched uint64 `json:"totalMatched"`
}

// ErrAlreadyRunning is returned by Start when a loop is active.
var ErrAlreadyRunning = errors.New("subscriber already running")

// Subscriber wires the planner, fetcher, enrichment, predicate engine and
// dispatcher together and owns the watermark.
type Subscriber struct {
	cfg     Config
	blocks  BlockSource
	history HistorySource
	store   WatermarkStore
	bus     *EventBus
	fetcher *Fetcher

	// mu guards the running flag, the cancellation signal and the
	// watermark; the loop task is the only writer of the watermark.
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	watermark uint64

	totalPolls   atomic.Uint64
	totalMatched atomic.Uint64
	lastTip      atomic.Uint64
}

// New validates cfg, loads the persisted watermark when a store is given,
// and returns a ready subscriber. history and store may be nil.
func New(cfg Config, blocks BlockSource, history HistorySource, store WatermarkStore) (*Subscriber, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if blocks == nil {
		return nil, &ConfigurationError{Field: "block-source", Reason: "must be provided"}
	}

	s := &Subscriber{
		cfg:     cfg,
		blocks:  blocks,
		history: history,
		store:   store,
		bus:     NewEventBus(),
	}
	s.fetcher = NewFetcher(blocks, history, &s.cfg, enrich.NewEventDecoder(cfg.EventSchemas))

	if store != nil {
		watermark, err := store.LoadWatermark(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load watermark: %w", err)
		}
		s.watermark = watermark
	}
	return s, nil
}

// On registers a handler on the event bus and returns its handle. Use the
// EventBeforePoll/EventPoll/EventError names or the TransactionEvent and
// BatchEvent helpers for per-filter events.
func (s *Subscriber) On(event string, fn Handler) HandlerID {
	return HandlerID{event: event, id: s.bus.On(event, fn)}
}

// Off removes a previously registered handler.
func (s *Subscriber) Off(h HandlerID) {
	s.bus.Off(h.event, h.id)
}

// Watermark returns the current in-memory watermark.
func (s *Subscriber) Watermark() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// IsRunning reports whether the continuous loop is active.
func (s *Subscriber) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Progress returns the subscriber's state for the API.
func (s *Subscriber) Progress() Progress {
	return Progress{
		Running:      s.IsRunning(),
		Watermark:    s.Watermark(),
		CurrentRound: s.lastTip.Load(),
		TotalPolls:   s.totalPolls.Load(),
		TotalMatched: s.totalMatched.Load(),
	}
}

// FilterNames returns the configured filter names in declaration order.
func (s *Subscriber) FilterNames() []string {
	names := make([]string, len(s.cfg.Filters))
	for i, nf := range s.cfg.Filters {
		names[i] = nf.Name
	}
	return names
}

// PollOnce runs a single poll cycle. On success the watermark has been
// persisted and advanced by exactly the planned amount and all events were
// dispatched. On failure the error event is emitted, the watermark is left
// untouched, and the error is returned.
func (s *Subscriber) PollOnce(ctx context.Context) (*PollResult, error) {
	result, err := s.pollOnce(ctx)
	if err != nil {
		s.bus.Emit(EventError, err)
		return nil, err
	}
	return result, nil
}

func (s *Subscriber) pollOnce(ctx context.Context) (*PollResult, error) {
	status, err := s.blocks.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch node status: %w", err)
	}
	tip := status.LastRound
	s.lastTip.Store(tip)
	watermark := s.Watermark()

	s.bus.Emit(EventBeforePoll, BeforePoll{Watermark: watermark, Tip: tip})

	plan, err := BuildPlan(watermark, tip, &s.cfg, s.history != nil)
	if err != nil {
		return nil, err
	}

	fetched, err := s.fetcher.Fetch(ctx, plan)
	if err != nil {
		return nil, err
	}

	result := &PollResult{
		StartingWatermark: watermark,
		NewWatermark:      plan.NewWatermark,
		CurrentRound:      tip,
		Matches:           make([]FilterResult, len(s.cfg.Filters)),
	}
	if !plan.Empty() {
		result.SyncedRoundRange = &RoundRange{From: plan.From, To: plan.To}
	}

	for i, nf := range s.cfg.Filters {
		group := fetched.Groups[i]
		payloads := make([]any, len(group))
		for j, tx := range group {
			if nf.Mapper != nil {
				payloads[j] = nf.Mapper(tx)
			} else {
				payloads[j] = tx
			}
		}
		result.Matches[i] = FilterResult{FilterName: nf.Name, Transactions: payloads}
		s.totalMatched.Add(uint64(len(group)))
	}

	// Batch first when non-empty, then the individual emissions.
	for _, fr := range result.Matches {
		if len(fr.Transactions) == 0 {
			continue
		}
		s.bus.Emit(BatchEvent(fr.FilterName), fr)
		for _, payload := range fr.Transactions {
			s.bus.Emit(TransactionEvent(fr.FilterName), payload)
		}
	}

	// Write-through: persist before adopting, so a failed save leaves the
	// in-memory watermark untouched and the rounds are re-polled.
	if plan.NewWatermark != watermark {
		if s.store != nil {
			if err := s.store.SaveWatermark(ctx, plan.NewWatermark); err != nil {
				return nil, fmt.Errorf("persist watermark %d: %w", plan.NewWatermark, err)
			}
		}
		s.mu.Lock()
		s.watermark = plan.NewWatermark
		s.mu.Unlock()
	}

	s.totalPolls.Add(1)
	s.bus.Emit(EventPoll, result)
	return result, nil
}

// Start runs the continuous loop until Stop is called or ctx is cancelled.
// Failed polls emit error, back off, and retry; they never end the loop by
// themselves. A second concurrent Start returns ErrAlreadyRunning.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	log.Printf("[Subscriber] Starting continuous sync (behaviour %s, %d filters)", s.cfg.SyncBehaviour, len(s.cfg.Filters))

	for {
		if runCtx.Err() != nil {
			return nil
		}

		result, err := s.PollOnce(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			log.Printf("[Subscriber] Poll failed: %v (retrying in %s)", err, s.cfg.ErrorBackoff)
			if !sleepCtx(runCtx, s.cfg.ErrorBackoff) {
				return nil
			}
			continue
		}

		atTip := result.SyncedRoundRange == nil && result.NewWatermark >= result.CurrentRound
		if atTip && s.cfg.WaitForBlockWhenAtTip {
			waitCtx, cancelWait := context.WithTimeout(runCtx, s.cfg.WaitForBlockTimeout)
			_, err := s.blocks.StatusAfterBlock(waitCtx, result.NewWatermark)
			cancelWait()
			if runCtx.Err() != nil {
				return nil
			}
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("[Subscriber] Wait for next round failed: %v", err)
				if !sleepCtx(runCtx, s.cfg.ErrorBackoff) {
					return nil
				}
			}
			continue
		}

		if !sleepCtx(runCtx, s.cfg.Frequency) {
			return nil
		}
	}
}

// Stop cancels the loop and interrupts any sleep or tip wait. It is
// idempotent and safe to call from handlers.
func (s *Subscriber) Stop(reason string) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		log.Printf("[Subscriber] Stopping: %s", reason)
		cancel()
	}
}

// HandlerID identifies one event-bus registration.
type HandlerID struct {
	event string
	id    uuid.UUID
}

// sleepCtx sleeps for d, returning false when ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
