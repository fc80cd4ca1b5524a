package models

import "encoding/json"

// TransactionType is the on-wire transaction type tag.
type TransactionType string

const (
	TypePay           TransactionType = "pay"
	TypeAssetTransfer TransactionType = "axfer"
	TypeAssetConfig   TransactionType = "acfg"
	TypeAppCall       TransactionType = "appl"
	TypeKeyReg        TransactionType = "keyreg"
	TypeAssetFreeze   TransactionType = "afrz"
)

// Role describes how an address participates in a balance change.
type Role string

const (
	RoleSender         Role = "Sender"
	RoleReceiver       Role = "Receiver"
	RoleCloseTo        Role = "CloseTo"
	RoleAssetCreator   Role = "AssetCreator"
	RoleAssetDestroyer Role = "AssetDestroyer"
)

// BalanceChange is a synthesized signed delta for one (address, asset) pair.
// AssetID 0 denotes the native asset; for asset 0 the amount includes fees.
type BalanceChange struct {
	Address string `json:"address"`
	AssetID uint64 `json:"asset-id"`
	Amount  int64  `json:"amount"`
	Roles   []Role `json:"roles"`
}

// Arc28Event is a decoded application log event.
type Arc28Event struct {
	GroupName string         `json:"group-name"`
	EventName string         `json:"event-name"`
	Signature string         `json:"event-signature"`
	Args      map[string]any `json:"args"`
}

// Transaction is the canonical per-transaction record the engine produces and
// filters on. Field names follow the long-form REST representation so that
// records decoded from the history source and records normalized from raw
// blocks are structurally identical. BalanceChanges and Arc28Events are never
// received from upstream; they are synthesized during enrichment.
// BalanceChanges cover the transaction together with its entire
// inner-transaction subtree; Arc28Events hold only the events decoded from
// this transaction's own logs, while each inner transaction carries its own.
type Transaction struct {
	ID               string          `json:"id"`
	Type             TransactionType `json:"tx-type"`
	Sender           string          `json:"sender"`
	ConfirmedRound   uint64          `json:"confirmed-round"`
	RoundTime        int64           `json:"round-time"`
	Fee              uint64          `json:"fee"`
	FirstValid       uint64          `json:"first-valid"`
	LastValid        uint64          `json:"last-valid"`
	GenesisID        string          `json:"genesis-id,omitempty"`
	GenesisHash      []byte          `json:"genesis-hash,omitempty"`
	IntraRoundOffset uint64          `json:"intra-round-offset"`

	Group   []byte `json:"group,omitempty"`
	Lease   []byte `json:"lease,omitempty"`
	RekeyTo string `json:"rekey-to,omitempty"`
	Note    []byte `json:"note,omitempty"`

	// Exactly one of these is set, matching Type.
	Payment       *PaymentTransaction       `json:"payment-transaction,omitempty"`
	AssetTransfer *AssetTransferTransaction `json:"asset-transfer-transaction,omitempty"`
	AssetConfig   *AssetConfigTransaction   `json:"asset-config-transaction,omitempty"`
	Application   *ApplicationTransaction   `json:"application-transaction,omitempty"`
	Keyreg        *KeyregTransaction        `json:"keyreg-transaction,omitempty"`
	AssetFreeze   *AssetFreezeTransaction   `json:"asset-freeze-transaction,omitempty"`

	CreatedAssetIndex       uint64 `json:"created-asset-index,omitempty"`
	CreatedApplicationIndex uint64 `json:"created-application-index,omitempty"`

	Logs             [][]byte        `json:"logs,omitempty"`
	GlobalStateDelta json.RawMessage `json:"global-state-delta,omitempty"`
	LocalStateDelta  json.RawMessage `json:"local-state-delta,omitempty"`

	InnerTxns []Transaction `json:"inner-txns,omitempty"`

	BalanceChanges []BalanceChange `json:"balance-changes,omitempty"`
	Arc28Events    []Arc28Event    `json:"arc28-events,omitempty"`
}

// PaymentTransaction carries the pay-specific fields.
type PaymentTransaction struct {
	Receiver         string `json:"receiver"`
	Amount           uint64 `json:"amount"`
	CloseRemainderTo string `json:"close-remainder-to,omitempty"`
	CloseAmount      uint64 `json:"close-amount,omitempty"`
}

// AssetTransferTransaction carries the axfer-specific fields. Sender is the
// clawback source address and is only set on clawback transfers.
type AssetTransferTransaction struct {
	AssetID     uint64 `json:"asset-id"`
	Amount      uint64 `json:"amount"`
	Receiver    string `json:"receiver"`
	Sender      string `json:"sender,omitempty"`
	CloseTo     string `json:"close-to,omitempty"`
	CloseAmount uint64 `json:"close-amount,omitempty"`
}

// AssetParams holds asset configuration parameters.
type AssetParams struct {
	Total         uint64 `json:"total"`
	Decimals      uint32 `json:"decimals"`
	DefaultFrozen bool   `json:"default-frozen,omitempty"`
	UnitName      string `json:"unit-name,omitempty"`
	Name          string `json:"name,omitempty"`
	URL           string `json:"url,omitempty"`
	MetadataHash  []byte `json:"metadata-hash,omitempty"`
	Manager       string `json:"manager,omitempty"`
	Reserve       string `json:"reserve,omitempty"`
	Freeze        string `json:"freeze,omitempty"`
	Clawback      string `json:"clawback,omitempty"`
}

// AssetConfigTransaction carries the acfg-specific fields. AssetID 0 with
// Params set is a creation; AssetID set with Params absent is a destruction.
type AssetConfigTransaction struct {
	AssetID uint64       `json:"asset-id,omitempty"`
	Params  *AssetParams `json:"params,omitempty"`
}

// StateSchema declares application state allocation.
type StateSchema struct {
	NumUint      uint64 `json:"num-uint"`
	NumByteSlice uint64 `json:"num-byte-slice"`
}

// OnCompletion values carried by application transactions.
const (
	OnCompleteNoOp       = "noop"
	OnCompleteOptIn      = "optin"
	OnCompleteCloseOut   = "closeout"
	OnCompleteClearState = "clearstate"
	OnCompleteUpdate     = "update"
	OnCompleteDelete     = "delete"
)

// ApplicationTransaction carries the appl-specific fields.
type ApplicationTransaction struct {
	ApplicationID     uint64       `json:"application-id"`
	OnCompletion      string       `json:"on-completion"`
	ApplicationArgs   [][]byte     `json:"application-args,omitempty"`
	Accounts          []string     `json:"accounts,omitempty"`
	ForeignApps       []uint64     `json:"foreign-apps,omitempty"`
	ForeignAssets     []uint64     `json:"foreign-assets,omitempty"`
	ApprovalProgram   []byte       `json:"approval-program,omitempty"`
	ClearStateProgram []byte       `json:"clear-state-program,omitempty"`
	GlobalStateSchema *StateSchema `json:"global-state-schema,omitempty"`
	LocalStateSchema  *StateSchema `json:"local-state-schema,omitempty"`
	ExtraProgramPages uint64       `json:"extra-program-pages,omitempty"`
}

// KeyregTransaction carries the keyreg-specific fields.
type KeyregTransaction struct {
	VoteParticipationKey      []byte `json:"vote-participation-key,omitempty"`
	SelectionParticipationKey []byte `json:"selection-participation-key,omitempty"`
	VoteFirstValid            uint64 `json:"vote-first-valid,omitempty"`
	VoteLastValid             uint64 `json:"vote-last-valid,omitempty"`
	VoteKeyDilution           uint64 `json:"vote-key-dilution,omitempty"`
	NonParticipation          bool   `json:"non-participation,omitempty"`
}

// AssetFreezeTransaction carries the afrz-specific fields.
type AssetFreezeTransaction struct {
	AssetID         uint64 `json:"asset-id"`
	Address         string `json:"address"`
	NewFreezeStatus bool   `json:"new-freeze-status"`
}
