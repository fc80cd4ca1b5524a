package subscriber

import (
	"context"
	"sync"

	"github.com/rawblock/algostream/pkg/models"
)

// BlockSource is the block-oriented node API: single-block retrieval, tip
// status, and a long-poll that returns once a round beyond the given one
// exists. Used for recent rounds and tip following.
type BlockSource interface {
	Status(ctx context.Context) (models.NodeStatus, error)
	StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error)
	Block(ctx context.Context, round uint64) (*models.Block, error)
}

// HistorySource is the query-oriented historical index: paginated search over
// a round range with coarse pre-filter hints.
type HistorySource interface {
	SearchTransactions(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error)
}

// WatermarkStore persists the subscription's resumable position. Both
// methods are idempotent; a failed save leaves the in-memory watermark
// untouched.
type WatermarkStore interface {
	LoadWatermark(ctx context.Context) (uint64, error)
	SaveWatermark(ctx context.Context, round uint64) error
}

// MemoryWatermarkStore keeps the watermark in process memory; the saved value
// does not survive a restart.
type MemoryWatermarkStore struct {
	mu    sync.Mutex
	round uint64
}

func (s *MemoryWatermarkStore) LoadWatermark(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round, nil
}

func (s *MemoryWatermarkStore) SaveWatermark(_ context.Context, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round = round
	return nil
}
