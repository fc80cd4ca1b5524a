package subscriber

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/algostream/internal/enrich"
	"github.com/rawblock/algostream/internal/filter"
	"github.com/rawblock/algostream/internal/normalize"
	"github.com/rawblock/algostream/pkg/models"
)

// FetchResult carries one plan's matched transactions, grouped per filter in
// configuration declaration order, plus the round range actually covered.
type FetchResult struct {
	Groups [][]*models.Transaction
	From   uint64
	To     uint64
}

// Fetcher executes a plan: bounded-parallel block retrieval on the block
// path, per-filter cursor pagination on the history path. Either way every
// candidate (including inner transactions) passes through enrichment and the
// full predicate engine before it lands in a group.
type Fetcher struct {
	blocks  BlockSource
	history HistorySource
	cfg     *Config
	decoder *enrich.EventDecoder
}

func NewFetcher(blocks BlockSource, history HistorySource, cfg *Config, decoder *enrich.EventDecoder) *Fetcher {
	return &Fetcher{blocks: blocks, history: history, cfg: cfg, decoder: decoder}
}

// Fetch executes plan. A failure on any round or page fails the whole fetch:
// partial results are never returned, so the caller never advances the
// watermark past unprocessed rounds.
func (f *Fetcher) Fetch(ctx context.Context, plan Plan) (*FetchResult, error) {
	res := &FetchResult{
		Groups: make([][]*models.Transaction, len(f.cfg.Filters)),
		From:   plan.From,
		To:     plan.To,
	}
	switch plan.Source {
	case SourceBlocks:
		if err := f.fetchBlocks(ctx, plan, res); err != nil {
			return nil, err
		}
	case SourceHistory:
		if err := f.fetchHistory(ctx, plan, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *Fetcher) fetchBlocks(ctx context.Context, plan Plan, res *FetchResult) error {
	count := int(plan.To - plan.From + 1)
	blocks := make([]*models.Block, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.FetchWorkers)
	for i := 0; i < count; i++ {
		round := plan.From + uint64(i)
		slot := i
		g.Go(func() error {
			block, err := f.blocks.Block(gctx, round)
			if err != nil {
				return fmt.Errorf("fetch block %d: %w", round, err)
			}
			blocks[slot] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	matched := 0
	for _, block := range blocks {
		txns := normalize.BlockTransactions(block)
		for i := range txns {
			enrich.ApplyBalanceChanges(&txns[i])
			f.decoder.ApplyEvents(&txns[i])
			f.collect(&txns[i], res)
			matched++
		}
	}
	log.Printf("[Fetcher] Fetched rounds %d-%d via blocks: %d top-level transactions", plan.From, plan.To, matched)
	return nil
}

func (f *Fetcher) fetchHistory(ctx context.Context, plan Plan, res *FetchResult) error {
	for fi := range f.cfg.Filters {
		nf := &f.cfg.Filters[fi]
		query := filter.PreFilterQuery(&nf.Filter, plan.From, plan.To)
		pages := 0
		for {
			page, err := f.history.SearchTransactions(ctx, query)
			if err != nil {
				return fmt.Errorf("search transactions for filter %q: %w", nf.Name, err)
			}
			pages++
			for i := range page.Transactions {
				tx := &page.Transactions[i]
				enrich.ApplyBalanceChanges(tx)
				f.decoder.ApplyEvents(tx)
				f.collectForFilter(tx, fi, res)
			}
			if page.NextToken == "" {
				break
			}
			query.NextToken = page.NextToken
		}
		log.Printf("[Fetcher] History sync for filter %q covered rounds %d-%d in %d pages", nf.Name, plan.From, plan.To, pages)
	}
	return nil
}

// collect evaluates the flattened subtree of tx against every filter.
func (f *Fetcher) collect(tx *models.Transaction, res *FetchResult) {
	forEachNode(tx, func(node *models.Transaction) {
		for fi := range f.cfg.Filters {
			if filter.Matches(&f.cfg.Filters[fi].Filter, node) {
				res.Groups[fi] = append(res.Groups[fi], node)
			}
		}
	})
}

// collectForFilter evaluates the flattened subtree of tx against one filter.
// The history pre-filter is only a necessary condition, so the full
// predicate still decides.
func (f *Fetcher) collectForFilter(tx *models.Transaction, fi int, res *FetchResult) {
	forEachNode(tx, func(node *models.Transaction) {
		if filter.Matches(&f.cfg.Filters[fi].Filter, node) {
			res.Groups[fi] = append(res.Groups[fi], node)
		}
	})
}

func forEachNode(tx *models.Transaction, visit func(*models.Transaction)) {
	visit(tx)
	for i := range tx.InnerTxns {
		forEachNode(&tx.InnerTxns[i], visit)
	}
}
