package models

// Filter is a compound predicate over canonical transactions. Every field is
// independently optional; a zero-value Filter matches every transaction.
// Scalar fields where zero is a meaningful value use pointers to distinguish
// "unset" from "zero".
type Filter struct {
	Type       TransactionType `json:"tx-type,omitempty"`
	Sender     string          `json:"sender,omitempty"`
	Receiver   string          `json:"receiver,omitempty"`
	NotePrefix []byte          `json:"note-prefix,omitempty"`

	AppID   *uint64 `json:"app-id,omitempty"`
	AssetID *uint64 `json:"asset-id,omitempty"`

	MinAmount *uint64 `json:"min-amount,omitempty"`
	MaxAmount *uint64 `json:"max-amount,omitempty"`

	AppCreate   *bool `json:"app-create,omitempty"`
	AssetCreate *bool `json:"asset-create,omitempty"`

	AppOnComplete string `json:"app-on-complete,omitempty"`

	// MethodSignature matches when the first application argument's leading
	// 4 bytes equal the selector derived from this signature.
	MethodSignature string `json:"method-signature,omitempty"`

	BalanceChanges []BalanceChangeFilter `json:"balance-changes,omitempty"`
	Arc28Events    []Arc28EventFilter    `json:"arc28-events,omitempty"`

	// CustomFilter is the user-supplied final test; it runs last.
	CustomFilter func(*Transaction) bool `json:"-"`
}

// BalanceChangeFilter matches a transaction that has at least one balance
// change satisfying all constraints present on this entry.
type BalanceChangeFilter struct {
	Address   string  `json:"address,omitempty"`
	AssetID   *uint64 `json:"asset-id,omitempty"`
	MinAmount *int64  `json:"min-amount,omitempty"`
	MaxAmount *int64  `json:"max-amount,omitempty"`
	Roles     []Role  `json:"roles,omitempty"`
}

// Arc28EventFilter matches a transaction that has at least one decoded event
// satisfying the name constraints and every required argument value.
type Arc28EventFilter struct {
	GroupName string         `json:"group-name,omitempty"`
	EventName string         `json:"event-name,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

// Mapper transforms a matched transaction before dispatch. The output is
// opaque to the engine.
type Mapper func(*Transaction) any

// NamedFilter pairs a filter with its routing key on the event bus.
type NamedFilter struct {
	Name   string
	Filter Filter
	Mapper Mapper
}
