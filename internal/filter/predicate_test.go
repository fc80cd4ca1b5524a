package filter

import (
	"testing"

	"github.com/rawblock/algostream/pkg/models"
)

func uint64Ptr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64    { return &v }
func boolPtr(v bool) *bool       { return &v }

func payTx(sender, receiver string, amount uint64) *models.Transaction {
	return &models.Transaction{
		Type:    models.TypePay,
		Sender:  sender,
		Fee:     1000,
		Note:    []byte("order:1234"),
		Payment: &models.PaymentTransaction{Receiver: receiver, Amount: amount},
	}
}

func TestMatches_FieldPredicates(t *testing.T) {
	tx := payTx("SENDER", "RECEIVER", 5000)

	tests := []struct {
		name   string
		filter models.Filter
		want   bool
	}{
		{"empty filter matches everything", models.Filter{}, true},
		{"type match", models.Filter{Type: models.TypePay}, true},
		{"type mismatch", models.Filter{Type: models.TypeAppCall}, false},
		{"sender match", models.Filter{Sender: "SENDER"}, true},
		{"sender mismatch", models.Filter{Sender: "OTHER"}, false},
		{"receiver match", models.Filter{Receiver: "RECEIVER"}, true},
		{"receiver mismatch", models.Filter{Receiver: "OTHER"}, false},
		{"note prefix match", models.Filter{NotePrefix: []byte("order:")}, true},
		{"note prefix mismatch", models.Filter{NotePrefix: []byte("invoice:")}, false},
		{"min amount inclusive", models.Filter{MinAmount: uint64Ptr(5000)}, true},
		{"min amount exceeded", models.Filter{MinAmount: uint64Ptr(5001)}, false},
		{"max amount inclusive", models.Filter{MaxAmount: uint64Ptr(5000)}, true},
		{"max amount exceeded", models.Filter{MaxAmount: uint64Ptr(4999)}, false},
		{"amount window", models.Filter{MinAmount: uint64Ptr(1000), MaxAmount: uint64Ptr(10000)}, true},
		{"app id on a payment fails", models.Filter{AppID: uint64Ptr(7)}, false},
		{"asset id on a payment fails", models.Filter{AssetID: uint64Ptr(42)}, false},
		{"on-complete on a payment fails", models.Filter{AppOnComplete: models.OnCompleteNoOp}, false},
		{"compound all match", models.Filter{Type: models.TypePay, Sender: "SENDER", MinAmount: uint64Ptr(1000)}, true},
		{"compound one mismatch", models.Filter{Type: models.TypePay, Sender: "OTHER", MinAmount: uint64Ptr(1000)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(&tt.filter, tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_AmountRequiresAnAmountField(t *testing.T) {
	keyreg := &models.Transaction{Type: models.TypeKeyReg, Sender: "V", Keyreg: &models.KeyregTransaction{}}
	f := models.Filter{MinAmount: uint64Ptr(0)}
	if Matches(&f, keyreg) {
		t.Error("Amount-bounded filter matched a transaction without an amount")
	}
}

func TestMatches_ApplicationPredicates(t *testing.T) {
	sel := models.SignatureSelector("transfer(address,uint64)void")
	appl := &models.Transaction{
		Type:   models.TypeAppCall,
		Sender: "CALLER",
		Application: &models.ApplicationTransaction{
			ApplicationID:   123,
			OnCompletion:    models.OnCompleteOptIn,
			ApplicationArgs: [][]byte{append(sel[:], 0xFF)},
		},
	}
	create := &models.Transaction{
		Type:                    models.TypeAppCall,
		Sender:                  "CREATOR",
		CreatedApplicationIndex: 999,
		Application:             &models.ApplicationTransaction{OnCompletion: models.OnCompleteNoOp},
	}

	tests := []struct {
		name   string
		filter models.Filter
		tx     *models.Transaction
		want   bool
	}{
		{"app id match", models.Filter{AppID: uint64Ptr(123)}, appl, true},
		{"app id mismatch", models.Filter{AppID: uint64Ptr(124)}, appl, false},
		{"app id matches created index", models.Filter{AppID: uint64Ptr(999)}, create, true},
		{"app create true", models.Filter{AppCreate: boolPtr(true)}, create, true},
		{"app create false on create", models.Filter{AppCreate: boolPtr(false)}, create, false},
		{"app create true on call", models.Filter{AppCreate: boolPtr(true)}, appl, false},
		{"on complete match", models.Filter{AppOnComplete: models.OnCompleteOptIn}, appl, true},
		{"on complete mismatch", models.Filter{AppOnComplete: models.OnCompleteDelete}, appl, false},
		{"method signature match", models.Filter{MethodSignature: "transfer(address,uint64)void"}, appl, true},
		{"method signature mismatch", models.Filter{MethodSignature: "mint(uint64)void"}, appl, false},
		{"method signature without args", models.Filter{MethodSignature: "transfer(address,uint64)void"}, create, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(&tt.filter, tt.tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_AssetPredicates(t *testing.T) {
	axfer := &models.Transaction{
		Type:          models.TypeAssetTransfer,
		Sender:        "S",
		AssetTransfer: &models.AssetTransferTransaction{AssetID: 42, Amount: 10, Receiver: "R"},
	}
	create := &models.Transaction{
		Type:              models.TypeAssetConfig,
		Sender:            "C",
		CreatedAssetIndex: 4321,
		AssetConfig:       &models.AssetConfigTransaction{Params: &models.AssetParams{Total: 1}},
	}

	if !Matches(&models.Filter{AssetID: uint64Ptr(42)}, axfer) {
		t.Error("Asset id did not match the transfer")
	}
	if Matches(&models.Filter{AssetID: uint64Ptr(43)}, axfer) {
		t.Error("Wrong asset id matched")
	}
	if !Matches(&models.Filter{AssetID: uint64Ptr(4321)}, create) {
		t.Error("Asset id did not match the created index")
	}
	if !Matches(&models.Filter{AssetCreate: boolPtr(true)}, create) {
		t.Error("Asset create did not match")
	}
	if Matches(&models.Filter{AssetCreate: boolPtr(true)}, axfer) {
		t.Error("Asset create matched a plain transfer")
	}
}

func TestMatches_BalanceChangeConstraints(t *testing.T) {
	tx := payTx("SENDER", "RECEIVER", 5000)
	tx.BalanceChanges = []models.BalanceChange{
		{Address: "SENDER", AssetID: 0, Amount: -6000, Roles: []models.Role{models.RoleSender}},
		{Address: "RECEIVER", AssetID: 0, Amount: 5000, Roles: []models.Role{models.RoleReceiver}},
	}

	tests := []struct {
		name  string
		entry models.BalanceChangeFilter
		want  bool
	}{
		{"address match", models.BalanceChangeFilter{Address: "RECEIVER"}, true},
		{"address mismatch", models.BalanceChangeFilter{Address: "NOBODY"}, false},
		{"role intersection", models.BalanceChangeFilter{Roles: []models.Role{models.RoleCloseTo, models.RoleSender}}, true},
		{"role disjoint", models.BalanceChangeFilter{Roles: []models.Role{models.RoleAssetCreator}}, false},
		{"amount window hit", models.BalanceChangeFilter{MinAmount: int64Ptr(1000), MaxAmount: int64Ptr(10000)}, true},
		{"amount window miss", models.BalanceChangeFilter{MinAmount: int64Ptr(10000)}, false},
		{"all constraints on one record", models.BalanceChangeFilter{
			Address: "SENDER", AssetID: uint64Ptr(0), MaxAmount: int64Ptr(-5000), Roles: []models.Role{models.RoleSender},
		}, true},
		{"constraints split across records fail", models.BalanceChangeFilter{
			Address: "SENDER", MinAmount: int64Ptr(5000),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.Filter{BalanceChanges: []models.BalanceChangeFilter{tt.entry}}
			if got := Matches(&f, tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_EventConstraints(t *testing.T) {
	tx := &models.Transaction{
		Type: models.TypeAppCall,
		Arc28Events: []models.Arc28Event{
			{
				GroupName: "TestEvents",
				EventName: "Transfer",
				Signature: "Transfer(address,address,uint64)",
				Args:      map[string]any{"from": "QUJD", "amount": uint64(1000)},
			},
		},
	}

	tests := []struct {
		name  string
		entry models.Arc28EventFilter
		want  bool
	}{
		{"group and name", models.Arc28EventFilter{GroupName: "TestEvents", EventName: "Transfer"}, true},
		{"wrong group", models.Arc28EventFilter{GroupName: "Other"}, false},
		{"wrong name", models.Arc28EventFilter{EventName: "Mint"}, false},
		{"arg equality", models.Arc28EventFilter{EventName: "Transfer", Args: map[string]any{"amount": uint64(1000)}}, true},
		{"arg equality with int literal", models.Arc28EventFilter{Args: map[string]any{"amount": 1000}}, true},
		{"arg mismatch", models.Arc28EventFilter{Args: map[string]any{"amount": 1001}}, false},
		{"missing arg", models.Arc28EventFilter{Args: map[string]any{"to": "ZZZ"}}, false},
		{"string arg", models.Arc28EventFilter{Args: map[string]any{"from": "QUJD"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.Filter{Arc28Events: []models.Arc28EventFilter{tt.entry}}
			if got := Matches(&f, tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_CustomFilterRunsLast(t *testing.T) {
	tx := payTx("SENDER", "RECEIVER", 5000)

	called := false
	f := models.Filter{
		Sender:       "SOMEBODY_ELSE",
		CustomFilter: func(*models.Transaction) bool { called = true; return true },
	}
	if Matches(&f, tx) {
		t.Error("Filter matched despite sender mismatch")
	}
	if called {
		t.Error("Custom filter ran before an earlier predicate failed")
	}

	f = models.Filter{
		Sender:       "SENDER",
		CustomFilter: func(tx *models.Transaction) bool { return tx.Payment.Amount > 10000 },
	}
	if Matches(&f, tx) {
		t.Error("Custom filter verdict ignored")
	}
}
