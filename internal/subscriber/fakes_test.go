package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/rawblock/algostream/pkg/models"
)

// fakeBlockSource serves canned blocks and a fixed tip.
type fakeBlockSource struct {
	mu         sync.Mutex
	tip        uint64
	blocks     map[uint64]*models.Block
	blockErrs  map[uint64]error
	statusErr  error
	blockCalls []uint64
}

func newFakeBlockSource(tip uint64, blocks ...*models.Block) *fakeBlockSource {
	f := &fakeBlockSource{
		tip:       tip,
		blocks:    make(map[uint64]*models.Block),
		blockErrs: make(map[uint64]error),
	}
	for _, b := range blocks {
		f.blocks[b.Round] = b
	}
	return f
}

func (f *fakeBlockSource) setTip(tip uint64) {
	f.mu.Lock()
	f.tip = tip
	f.mu.Unlock()
}

func (f *fakeBlockSource) Status(context.Context) (models.NodeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return models.NodeStatus{}, f.statusErr
	}
	return models.NodeStatus{LastRound: f.tip}, nil
}

func (f *fakeBlockSource) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	// Emulate the node-side long poll: block until the caller's deadline.
	<-ctx.Done()
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.NodeStatus{LastRound: f.tip}, ctx.Err()
}

func (f *fakeBlockSource) Block(_ context.Context, round uint64) (*models.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls = append(f.blockCalls, round)
	if err := f.blockErrs[round]; err != nil {
		return nil, err
	}
	block, ok := f.blocks[round]
	if !ok {
		return nil, fmt.Errorf("no block for round %d", round)
	}
	return block, nil
}

// fakeHistorySource serves canned pages in order and records every query.
type fakeHistorySource struct {
	mu      sync.Mutex
	pages   []models.HistoryPage
	err     error
	queries []models.HistoryQuery
}

func (f *fakeHistorySource) SearchTransactions(_ context.Context, q models.HistoryQuery) (models.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.HistoryPage{}, f.err
	}
	f.queries = append(f.queries, q)
	idx := len(f.queries) - 1
	if idx >= len(f.pages) {
		return models.HistoryPage{}, nil
	}
	return f.pages[idx], nil
}

// recordingStore remembers every save in order.
type recordingStore struct {
	mu      sync.Mutex
	round   uint64
	saved   []uint64
	saveErr error
}

func (s *recordingStore) LoadWatermark(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round, nil
}

func (s *recordingStore) SaveWatermark(_ context.Context, round uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.round = round
	s.saved = append(s.saved, round)
	return nil
}

func (s *recordingStore) savedRounds() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.saved))
	copy(out, s.saved)
	return out
}

// payBlock builds a raw block holding the given signed transactions.
func payBlock(round uint64, ts int64, genesisID string, txns ...models.SignedTxnInBlock) *models.Block {
	return &models.Block{
		Round:       round,
		Timestamp:   ts,
		GenesisID:   genesisID,
		GenesisHash: []byte("genesis-hash"),
		Txns:        txns,
	}
}

// signedPay builds a raw pay transaction with a precomputed id.
func signedPay(txid, sender, receiver string, amount, fee uint64) models.SignedTxnInBlock {
	return models.SignedTxnInBlock{
		Txid: txid,
		Txn: models.RawTransaction{
			Type:     string(models.TypePay),
			Sender:   sender,
			Receiver: receiver,
			Amount:   amount,
			Fee:      fee,
		},
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }
