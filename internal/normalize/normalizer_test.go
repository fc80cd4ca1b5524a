package normalize

import (
	"reflect"
	"testing"

	"github.com/rawblock/algostream/pkg/models"
)

func testBlock(txns ...models.SignedTxnInBlock) *models.Block {
	return &models.Block{
		Round:       1001,
		Timestamp:   1700000000,
		GenesisID:   "testnet-v1.0",
		GenesisHash: []byte("genesis-hash"),
		Txns:        txns,
	}
}

func TestBlockTransactions_PaymentMapping(t *testing.T) {
	block := testBlock(models.SignedTxnInBlock{
		Txid: "PAY1",
		Txn: models.RawTransaction{
			Type:             "pay",
			Sender:           "SENDER",
			Receiver:         "RECEIVER",
			Amount:           5000,
			CloseRemainderTo: "CLOSE_TO",
			Fee:              1000,
			FirstValid:       1000,
			LastValid:        2000,
			Note:             []byte("hello"),
			Group:            []byte("group-id"),
		},
		Dt: &models.ApplyData{ClosingAmount: 250},
	})

	txns := BlockTransactions(block)
	if len(txns) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(txns))
	}
	tx := txns[0]

	if tx.ID != "PAY1" || tx.Type != models.TypePay || tx.Sender != "SENDER" {
		t.Errorf("Header mapping wrong: %+v", tx)
	}
	if tx.ConfirmedRound != 1001 || tx.RoundTime != 1700000000 || tx.GenesisID != "testnet-v1.0" {
		t.Errorf("Block metadata not applied: round %d time %d genesis %q", tx.ConfirmedRound, tx.RoundTime, tx.GenesisID)
	}
	if tx.Fee != 1000 || tx.FirstValid != 1000 || tx.LastValid != 2000 {
		t.Errorf("Common fields wrong: fee %d fv %d lv %d", tx.Fee, tx.FirstValid, tx.LastValid)
	}
	if string(tx.Note) != "hello" || string(tx.Group) != "group-id" {
		t.Errorf("Opaque fields wrong: note %q group %q", tx.Note, tx.Group)
	}
	p := tx.Payment
	if p == nil || p.Receiver != "RECEIVER" || p.Amount != 5000 || p.CloseRemainderTo != "CLOSE_TO" || p.CloseAmount != 250 {
		t.Errorf("Payment payload wrong: %+v", p)
	}
}

func TestBlockTransactions_AssetTransferMapping(t *testing.T) {
	block := testBlock(models.SignedTxnInBlock{
		Txn: models.RawTransaction{
			Type:          "axfer",
			Sender:        "CLAWBACK_ADMIN",
			XferAsset:     42,
			AssetAmount:   99,
			AssetReceiver: "RCV",
			AssetSender:   "VICTIM",
			AssetCloseTo:  "CLOSE",
		},
		Dt: &models.ApplyData{AssetClosingAmount: 7},
	})

	tx := BlockTransactions(block)[0]
	a := tx.AssetTransfer
	if a == nil || a.AssetID != 42 || a.Amount != 99 || a.Receiver != "RCV" || a.Sender != "VICTIM" || a.CloseTo != "CLOSE" || a.CloseAmount != 7 {
		t.Errorf("Asset transfer payload wrong: %+v", a)
	}
}

func TestBlockTransactions_AssetConfigCreation(t *testing.T) {
	block := testBlock(models.SignedTxnInBlock{
		Caid: 4321,
		Txn: models.RawTransaction{
			Type:   "acfg",
			Sender: "CREATOR",
			AssetParams: &models.RawAssetParams{
				Total:     1_000_000,
				Decimals:  6,
				UnitName:  "TOK",
				AssetName: "Token",
				Manager:   "CREATOR",
			},
		},
	})

	tx := BlockTransactions(block)[0]
	if tx.CreatedAssetIndex != 4321 {
		t.Errorf("CreatedAssetIndex = %d, want 4321", tx.CreatedAssetIndex)
	}
	params := tx.AssetConfig.Params
	if params == nil || params.Total != 1_000_000 || params.Decimals != 6 || params.UnitName != "TOK" || params.Name != "Token" {
		t.Errorf("Asset params wrong: %+v", params)
	}
}

func TestBlockTransactions_ApplicationMapping(t *testing.T) {
	block := testBlock(models.SignedTxnInBlock{
		Apid: 777,
		Txn: models.RawTransaction{
			Type:            "appl",
			Sender:          "CALLER",
			ApplicationArgs: [][]byte{[]byte("arg0")},
			Accounts:        []string{"ACCT"},
			ForeignApps:     []uint64{11},
			ForeignAssets:   []uint64{22},
			GlobalSchema:    &models.RawStateSchema{NumUint: 3, NumByteSlice: 4},
			ExtraPages:      1,
		},
		Dt: &models.ApplyData{
			Logs: [][]byte{[]byte("log-entry")},
		},
	})

	tx := BlockTransactions(block)[0]
	app := tx.Application
	if app == nil || app.OnCompletion != models.OnCompleteNoOp {
		t.Fatalf("Application payload wrong: %+v", app)
	}
	if len(app.ApplicationArgs) != 1 || string(app.ApplicationArgs[0]) != "arg0" {
		t.Errorf("Args wrong: %+v", app.ApplicationArgs)
	}
	if app.GlobalStateSchema == nil || app.GlobalStateSchema.NumUint != 3 || app.GlobalStateSchema.NumByteSlice != 4 {
		t.Errorf("Schema wrong: %+v", app.GlobalStateSchema)
	}
	if tx.CreatedApplicationIndex != 777 {
		t.Errorf("CreatedApplicationIndex = %d, want 777", tx.CreatedApplicationIndex)
	}
	if len(tx.Logs) != 1 || string(tx.Logs[0]) != "log-entry" {
		t.Errorf("Logs not promoted: %+v", tx.Logs)
	}
}

func TestOnCompletionName(t *testing.T) {
	want := map[uint64]string{
		0: "noop", 1: "optin", 2: "closeout", 3: "clearstate", 4: "update", 5: "delete",
		99: "noop",
	}
	for code, name := range want {
		if got := onCompletionName(code); got != name {
			t.Errorf("onCompletionName(%d) = %q, want %q", code, got, name)
		}
	}
}

func TestBlockTransactions_FlattenedOffsets(t *testing.T) {
	// Tree: A (two inners, the first with one inner of its own), then B.
	// Flattened pre-order: A=0, A.1=1, A.1.1=2, A.2=3, B=4.
	inner11 := models.SignedTxnInBlock{Txid: "A11", Txn: models.RawTransaction{Type: "pay", Sender: "X"}}
	inner1 := models.SignedTxnInBlock{
		Txid: "A1",
		Txn:  models.RawTransaction{Type: "appl", Sender: "X"},
		Dt:   &models.ApplyData{InnerTxns: []models.SignedTxnInBlock{inner11}},
	}
	inner2 := models.SignedTxnInBlock{Txid: "A2", Txn: models.RawTransaction{Type: "pay", Sender: "X"}}
	parent := models.SignedTxnInBlock{
		Txid: "A",
		Txn:  models.RawTransaction{Type: "appl", Sender: "X"},
		Dt:   &models.ApplyData{InnerTxns: []models.SignedTxnInBlock{inner1, inner2}},
	}
	second := models.SignedTxnInBlock{Txid: "B", Txn: models.RawTransaction{Type: "pay", Sender: "Y"}}

	txns := BlockTransactions(testBlock(parent, second))
	if len(txns) != 2 {
		t.Fatalf("Expected 2 top-level transactions, got %d", len(txns))
	}

	offsets := map[string]uint64{}
	var walk func(tx *models.Transaction)
	walk = func(tx *models.Transaction) {
		offsets[tx.ID] = tx.IntraRoundOffset
		for i := range tx.InnerTxns {
			walk(&tx.InnerTxns[i])
		}
	}
	walk(&txns[0])
	walk(&txns[1])

	want := map[string]uint64{"A": 0, "A1": 1, "A11": 2, "A2": 3, "B": 4}
	if !reflect.DeepEqual(offsets, want) {
		t.Errorf("Offsets = %v, want %v", offsets, want)
	}

	// Inner order preserved.
	if txns[0].InnerTxns[0].ID != "A1" || txns[0].InnerTxns[1].ID != "A2" {
		t.Errorf("Inner order not preserved: %s, %s", txns[0].InnerTxns[0].ID, txns[0].InnerTxns[1].ID)
	}
}

func TestDeriveID_Deterministic(t *testing.T) {
	raw := &models.RawTransaction{Type: "pay", Sender: "SENDER", Receiver: "RECEIVER", Amount: 5000, Fee: 1000}

	first := DeriveID(raw)
	second := DeriveID(raw)
	if first != second {
		t.Errorf("DeriveID not deterministic: %q vs %q", first, second)
	}
	if len(first) != 52 {
		t.Errorf("DeriveID length = %d, want 52", len(first))
	}

	other := &models.RawTransaction{Type: "pay", Sender: "SENDER", Receiver: "RECEIVER", Amount: 5001, Fee: 1000}
	if DeriveID(other) == first {
		t.Error("Different bodies produced the same id")
	}
}

func TestBlockTransactions_NormalizationIsIdempotent(t *testing.T) {
	block := testBlock(
		models.SignedTxnInBlock{
			Txn: models.RawTransaction{Type: "pay", Sender: "A", Receiver: "B", Amount: 100, Fee: 1000},
		},
		models.SignedTxnInBlock{
			Txn: models.RawTransaction{Type: "afrz", Sender: "F", FreezeAsset: 9, FreezeAccount: "T", AssetFrozen: true},
		},
	)

	first := BlockTransactions(block)
	second := BlockTransactions(block)
	if !reflect.DeepEqual(first, second) {
		t.Error("Normalizing the same block twice produced different results")
	}
}
