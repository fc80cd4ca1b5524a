package indexer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/rawblock/algostream/internal/transport"
	"github.com/rawblock/algostream/pkg/models"
)

const tokenHeader = "X-Indexer-API-Token"

const requestTimeout = 60 * time.Second

// maxPageSize is the upstream's default and maximum page size.
const maxPageSize = 1000

// Client is a REST client for the query-oriented historical index.
type Client struct {
	http *transport.Client
}

// Config carries the indexer connection settings.
type Config struct {
	URL   string
	Token string
}

// NewClient builds a client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	tc, err := transport.NewClient(cfg.URL, tokenHeader, cfg.Token, requestTimeout)
	if err != nil {
		return nil, err
	}
	c := &Client{http: tc}

	if err := c.Health(context.Background()); err != nil {
		return nil, fmt.Errorf("indexer unreachable at %s: %w", cfg.URL, err)
	}
	log.Printf("[Indexer] Connected to indexer at %s", cfg.URL)
	return c, nil
}

// Health checks reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.http.GetJSON(ctx, "/health", nil, nil, nil)
}

// SearchTransactions runs one page of a transaction search. Callers follow
// NextToken until it comes back empty.
func (c *Client) SearchTransactions(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error) {
	var page models.HistoryPage
	err := c.http.GetJSON(ctx, "/v2/transactions", queryValues(q), &page, nil)
	return page, err
}

func queryValues(q models.HistoryQuery) url.Values {
	v := url.Values{}
	if q.MinRound > 0 {
		v.Set("min-round", strconv.FormatUint(q.MinRound, 10))
	}
	if q.MaxRound > 0 {
		v.Set("max-round", strconv.FormatUint(q.MaxRound, 10))
	}
	if q.Address != "" {
		v.Set("address", q.Address)
		if q.AddressRole != "" {
			v.Set("address-role", q.AddressRole)
		}
	}
	if q.TxType != "" {
		v.Set("tx-type", string(q.TxType))
	}
	if q.AssetID > 0 {
		v.Set("asset-id", strconv.FormatUint(q.AssetID, 10))
	}
	if q.ApplicationID > 0 {
		v.Set("application-id", strconv.FormatUint(q.ApplicationID, 10))
	}
	if len(q.NotePrefix) > 0 {
		v.Set("note-prefix", base64.StdEncoding.EncodeToString(q.NotePrefix))
	}
	if q.CurrencyGreaterThan != nil {
		v.Set("currency-greater-than", strconv.FormatUint(*q.CurrencyGreaterThan, 10))
	}
	if q.CurrencyLessThan != nil {
		v.Set("currency-less-than", strconv.FormatUint(*q.CurrencyLessThan, 10))
	}
	limit := q.Limit
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	v.Set("limit", strconv.FormatUint(limit, 10))
	if q.NextToken != "" {
		v.Set("next", q.NextToken)
	}
	return v
}
