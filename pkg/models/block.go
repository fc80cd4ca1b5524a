package models

import "encoding/json"

// Block is a raw block as served by the node API. Field names are the
// compact wire names; the normalizer maps them to the canonical long form.
type Block struct {
	Round       uint64             `json:"rnd"`
	Timestamp   int64              `json:"ts"`
	GenesisID   string             `json:"gen"`
	GenesisHash []byte             `json:"gh"`
	Txns        []SignedTxnInBlock `json:"txns,omitempty"`
}

// SignedTxnInBlock is one signed transaction as embedded in a raw block.
// Caid and Apid at this level are the indices of an asset or application
// created by the transaction, distinct from the ids inside the body.
type SignedTxnInBlock struct {
	Txn  RawTransaction `json:"txn"`
	Dt   *ApplyData     `json:"dt,omitempty"`
	Caid uint64         `json:"caid,omitempty"`
	Apid uint64         `json:"apid,omitempty"`
	Hgi  bool           `json:"hgi,omitempty"`

	// Txid is a precomputed id some sources attach. When absent the
	// normalizer derives one deterministically.
	Txid string `json:"txid,omitempty"`
}

// ApplyData carries execution results attached to a signed transaction:
// close amounts, application logs, state deltas, and inner transactions.
type ApplyData struct {
	ClosingAmount      uint64             `json:"camt,omitempty"`
	AssetClosingAmount uint64             `json:"aca,omitempty"`
	Logs               [][]byte           `json:"lg,omitempty"`
	GlobalDelta        json.RawMessage    `json:"gd,omitempty"`
	LocalDeltas        json.RawMessage    `json:"ld,omitempty"`
	InnerTxns          []SignedTxnInBlock `json:"itx,omitempty"`
}

// RawTransaction is a transaction body in compact wire form. The type tag
// decides which of the type-qualified field groups is meaningful.
type RawTransaction struct {
	Type        string `json:"type"`
	Sender      string `json:"snd"`
	Fee         uint64 `json:"fee,omitempty"`
	FirstValid  uint64 `json:"fv,omitempty"`
	LastValid   uint64 `json:"lv,omitempty"`
	GenesisID   string `json:"gen,omitempty"`
	GenesisHash []byte `json:"gh,omitempty"`
	Note        []byte `json:"note,omitempty"`
	Lease       []byte `json:"lx,omitempty"`
	Group       []byte `json:"grp,omitempty"`
	RekeyTo     string `json:"rekey,omitempty"`

	// pay
	Receiver         string `json:"rcv,omitempty"`
	Amount           uint64 `json:"amt,omitempty"`
	CloseRemainderTo string `json:"close,omitempty"`

	// axfer
	XferAsset     uint64 `json:"xaid,omitempty"`
	AssetAmount   uint64 `json:"aamt,omitempty"`
	AssetReceiver string `json:"arcv,omitempty"`
	AssetSender   string `json:"asnd,omitempty"`
	AssetCloseTo  string `json:"aclose,omitempty"`

	// acfg
	ConfigAsset uint64          `json:"caid,omitempty"`
	AssetParams *RawAssetParams `json:"apar,omitempty"`

	// appl
	ApplicationID   uint64          `json:"apid,omitempty"`
	OnCompletion    uint64          `json:"apan,omitempty"`
	ApplicationArgs [][]byte        `json:"apaa,omitempty"`
	Accounts        []string        `json:"apat,omitempty"`
	ForeignApps     []uint64        `json:"apfa,omitempty"`
	ForeignAssets   []uint64        `json:"apas,omitempty"`
	ApprovalProgram []byte          `json:"apap,omitempty"`
	ClearProgram    []byte          `json:"apsu,omitempty"`
	GlobalSchema    *RawStateSchema `json:"apgs,omitempty"`
	LocalSchema     *RawStateSchema `json:"apls,omitempty"`
	ExtraPages      uint64          `json:"apep,omitempty"`

	// keyreg
	VoteKey          []byte `json:"votekey,omitempty"`
	SelectionKey     []byte `json:"selkey,omitempty"`
	VoteFirst        uint64 `json:"votefst,omitempty"`
	VoteLast         uint64 `json:"votelst,omitempty"`
	VoteKeyDilution  uint64 `json:"votekd,omitempty"`
	Nonparticipation bool   `json:"nonpart,omitempty"`

	// afrz
	FreezeAsset   uint64 `json:"faid,omitempty"`
	FreezeAccount string `json:"fadd,omitempty"`
	AssetFrozen   bool   `json:"afrz,omitempty"`
}

// RawAssetParams is the compact wire form of asset parameters.
type RawAssetParams struct {
	Total         uint64 `json:"t,omitempty"`
	Decimals      uint32 `json:"dc,omitempty"`
	DefaultFrozen bool   `json:"df,omitempty"`
	UnitName      string `json:"un,omitempty"`
	AssetName     string `json:"an,omitempty"`
	URL           string `json:"au,omitempty"`
	MetadataHash  []byte `json:"am,omitempty"`
	Manager       string `json:"m,omitempty"`
	Reserve       string `json:"r,omitempty"`
	Freeze        string `json:"f,omitempty"`
	Clawback      string `json:"c,omitempty"`
}

// RawStateSchema is the compact wire form of a state schema.
type RawStateSchema struct {
	NumUint      uint64 `json:"nui,omitempty"`
	NumByteSlice uint64 `json:"nbs,omitempty"`
}

// NodeStatus is the node's view of the chain tip.
type NodeStatus struct {
	LastRound                 uint64 `json:"last-round"`
	TimeSinceLastRound        int64  `json:"time-since-last-round"`
	CatchupTime               int64  `json:"catchup-time"`
	LastVersion               string `json:"last-version"`
	NextVersion               string `json:"next-version,omitempty"`
	NextVersionRound          uint64 `json:"next-version-round,omitempty"`
	NextVersionSupported      bool   `json:"next-version-supported,omitempty"`
	StoppedAtUnsupportedRound bool   `json:"stopped-at-unsupported-round,omitempty"`
}
