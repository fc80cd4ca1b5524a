package subscriber

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/algostream/pkg/models"
)

// SyncBehaviour selects the catch-up policy when the watermark trails the tip.
type SyncBehaviour string

const (
	// CatchupWithHistory uses the history source to close large gaps, then
	// the block source near the tip.
	CatchupWithHistory SyncBehaviour = "catchup-with-indexer"
	// SyncOldest processes from the watermark forward via the block source.
	SyncOldest SyncBehaviour = "sync-oldest"
	// SyncOldestStartNow behaves like SyncOldest, except that the very first
	// run of a fresh subscription jumps straight to the tip.
	SyncOldestStartNow SyncBehaviour = "sync-oldest-start-now"
	// SkipSyncNewest always jumps the watermark to the tip without syncing.
	SkipSyncNewest SyncBehaviour = "skip-sync-newest"
	// Fail raises when the gap to the tip exceeds the per-poll limit.
	Fail SyncBehaviour = "fail"
)

// ConfigurationError marks an invalid subscription configuration. It fails
// construction and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Defaults applied by Config.withDefaults.
const (
	defaultFetchWorkers        = 30
	defaultWaitForBlockTimeout = 60 * time.Second
	defaultErrorBackoff        = 5 * time.Second
)

// Config describes one subscription: what to match, how to catch up, and how
// the loop paces itself. Filters and event schemas are immutable after the
// subscriber is constructed.
type Config struct {
	// Filters are evaluated against every canonical transaction; result
	// groups and dispatch follow declaration order.
	Filters []models.NamedFilter

	// EventSchemas is the union of declared event schemas used by all
	// filters in this subscription.
	EventSchemas []models.EventSchema

	// MaxRoundsToSync bounds one block-source plan.
	MaxRoundsToSync uint64

	// MaxHistoryRoundsToSync bounds one history-source plan.
	MaxHistoryRoundsToSync uint64

	SyncBehaviour SyncBehaviour

	// Frequency is the inter-poll sleep in continuous mode.
	Frequency time.Duration

	// WaitForBlockWhenAtTip makes the loop long-poll the node for the next
	// round instead of sleeping once it has caught up.
	WaitForBlockWhenAtTip bool

	// FetchWorkers is the fan-out width for parallel block retrieval.
	// Defaults to 30.
	FetchWorkers int

	// WaitForBlockTimeout bounds one tip long-poll. Defaults to 60s.
	WaitForBlockTimeout time.Duration

	// ErrorBackoff is the pause after a failed poll in continuous mode.
	// Defaults to 5s.
	ErrorBackoff time.Duration
}

func (c *Config) withDefaults() {
	if c.FetchWorkers == 0 {
		c.FetchWorkers = defaultFetchWorkers
	}
	if c.WaitForBlockTimeout == 0 {
		c.WaitForBlockTimeout = defaultWaitForBlockTimeout
	}
	if c.ErrorBackoff == 0 {
		c.ErrorBackoff = defaultErrorBackoff
	}
}

// Validate rejects configurations the engine cannot run: non-positive
// limits and durations, unrecognized behaviours, unnamed or duplicate
// filters, and event schemas over unsupported argument types.
func (c *Config) Validate() error {
	switch c.SyncBehaviour {
	case CatchupWithHistory, SyncOldest, SyncOldestStartNow, SkipSyncNewest, Fail:
	default:
		return &ConfigurationError{Field: "sync-behaviour", Reason: fmt.Sprintf("unrecognized value %q", c.SyncBehaviour)}
	}
	if c.MaxRoundsToSync == 0 {
		return &ConfigurationError{Field: "max-rounds-to-sync", Reason: "must be positive"}
	}
	if c.SyncBehaviour == CatchupWithHistory && c.MaxHistoryRoundsToSync == 0 {
		return &ConfigurationError{Field: "max-history-rounds-to-sync", Reason: "must be positive"}
	}
	if c.Frequency <= 0 {
		return &ConfigurationError{Field: "frequency", Reason: "must be positive"}
	}
	if c.FetchWorkers < 0 {
		return &ConfigurationError{Field: "fetch-workers", Reason: "must not be negative"}
	}
	if c.WaitForBlockTimeout < 0 {
		return &ConfigurationError{Field: "wait-for-block-timeout", Reason: "must not be negative"}
	}
	if c.ErrorBackoff < 0 {
		return &ConfigurationError{Field: "error-backoff", Reason: "must not be negative"}
	}

	seen := make(map[string]bool, len(c.Filters))
	for _, nf := range c.Filters {
		if nf.Name == "" {
			return &ConfigurationError{Field: "filters", Reason: "filter name must not be empty"}
		}
		if seen[nf.Name] {
			return &ConfigurationError{Field: "filters", Reason: fmt.Sprintf("duplicate filter name %q", nf.Name)}
		}
		seen[nf.Name] = true
	}

	for _, schema := range c.EventSchemas {
		if schema.Name == "" {
			return &ConfigurationError{Field: "event-schemas", Reason: "event name must not be empty"}
		}
		for _, arg := range schema.Args {
			if !supportedEventArgType(arg.Type) {
				return &ConfigurationError{
					Field:  "event-schemas",
					Reason: fmt.Sprintf("event %q: unsupported argument type %q", schema.Name, arg.Type),
				}
			}
		}
	}
	return nil
}

func supportedEventArgType(t string) bool {
	switch t {
	case "uint64", "uint32", "byte", "address", "string":
		return true
	}
	if strings.HasPrefix(t, "byte[") && strings.HasSuffix(t, "]") {
		n, err := strconv.Atoi(t[5 : len(t)-1])
		return err == nil && n > 0
	}
	return false
}
