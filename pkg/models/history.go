package models

// HistoryQuery is the coarse pre-filter parameter set understood by the
// history source. Zero values mean "parameter omitted"; the currency bounds
// use pointers because zero is a valid bound.
type HistoryQuery struct {
	MinRound uint64
	MaxRound uint64

	Address     string
	AddressRole string // "sender", "receiver" or "freeze-target"

	TxType        TransactionType
	AssetID       uint64
	ApplicationID uint64
	NotePrefix    []byte

	CurrencyGreaterThan *uint64
	CurrencyLessThan    *uint64

	Limit     uint64
	NextToken string
}

// HistoryPage is one page of a paginated transaction search. NextToken is
// empty on the final page.
type HistoryPage struct {
	CurrentRound uint64        `json:"current-round"`
	NextToken    string        `json:"next-token,omitempty"`
	Transactions []Transaction `json:"transactions"`
}
