package algod

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rawblock/algostream/internal/transport"
	"github.com/rawblock/algostream/pkg/models"
)

const tokenHeader = "X-Algo-API-Token"

// The wait-for-block endpoint long-polls on the node side, so this client
// needs a materially longer HTTP timeout than an ordinary request.
const requestTimeout = 90 * time.Second

// Client is a REST client for a node's block-oriented API.
type Client struct {
	http *transport.Client
}

// Config carries the node connection settings.
type Config struct {
	URL   string
	Token string
}

// NewClient builds a client and verifies the connection by fetching status.
func NewClient(cfg Config) (*Client, error) {
	tc, err := transport.NewClient(cfg.URL, tokenHeader, cfg.Token, requestTimeout)
	if err != nil {
		return nil, err
	}
	c := &Client{http: tc}

	status, err := c.Status(context.Background())
	if err != nil {
		return nil, fmt.Errorf("node unreachable at %s: %w", cfg.URL, err)
	}
	log.Printf("[Algod] Connected to node at %s. Current round: %d", cfg.URL, status.LastRound)
	return c, nil
}

// Status returns the node's current chain status.
func (c *Client) Status(ctx context.Context) (models.NodeStatus, error) {
	var status models.NodeStatus
	err := c.http.GetJSON(ctx, "/v2/status", nil, &status, nil)
	return status, err
}

// StatusAfterBlock blocks on the node side until a round strictly greater
// than round exists, then returns the status. The node bounds the wait on
// the wire, typically at tens of seconds.
func (c *Client) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	var status models.NodeStatus
	path := fmt.Sprintf("/v2/status/wait-for-block-after/%d", round)
	err := c.http.GetJSON(ctx, path, nil, &status, nil)
	return status, err
}

// Block retrieves the raw block for a round.
func (c *Client) Block(ctx context.Context, round uint64) (*models.Block, error) {
	if round == 0 {
		return nil, &transport.InvalidRoundError{Round: round}
	}

	var resp struct {
		Block models.Block `json:"block"`
	}
	path := fmt.Sprintf("/v2/blocks/%d", round)
	err := c.http.GetJSON(ctx, path, nil, &resp, func(status int, _ string) error {
		if status == http.StatusNotFound {
			return &transport.InvalidRoundError{Round: round}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp.Block, nil
}
