// Package filter evaluates compound predicates over canonical transactions
// and translates them into the coarse pre-filter queries the history source
// understands.
package filter

import (
	"bytes"

	"github.com/rawblock/algostream/pkg/models"
)

// Matches evaluates f against tx. All set fields must hold; evaluation
// short-circuits on the first failing predicate and the user callback runs
// last. A field the transaction does not carry fails the corresponding
// predicate rather than erroring.
func Matches(f *models.Filter, tx *models.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Sender != "" && tx.Sender != f.Sender {
		return false
	}
	if f.Receiver != "" && receiverOf(tx) != f.Receiver {
		return false
	}
	if len(f.NotePrefix) > 0 && !bytes.HasPrefix(tx.Note, f.NotePrefix) {
		return false
	}
	if f.AppID != nil && !matchesAppID(tx, *f.AppID) {
		return false
	}
	if f.AssetID != nil && !matchesAssetID(tx, *f.AssetID) {
		return false
	}
	if f.MinAmount != nil || f.MaxAmount != nil {
		amount, ok := amountOf(tx)
		if !ok {
			return false
		}
		if f.MinAmount != nil && amount < *f.MinAmount {
			return false
		}
		if f.MaxAmount != nil && amount > *f.MaxAmount {
			return false
		}
	}
	if f.AppCreate != nil && (tx.CreatedApplicationIndex != 0) != *f.AppCreate {
		return false
	}
	if f.AssetCreate != nil && (tx.CreatedAssetIndex != 0) != *f.AssetCreate {
		return false
	}
	if f.AppOnComplete != "" {
		if tx.Application == nil || tx.Application.OnCompletion != f.AppOnComplete {
			return false
		}
	}
	if f.MethodSignature != "" && !matchesMethod(tx, f.MethodSignature) {
		return false
	}
	if len(f.BalanceChanges) > 0 && !matchesBalanceChanges(f.BalanceChanges, tx.BalanceChanges) {
		return false
	}
	if len(f.Arc28Events) > 0 && !matchesEvents(f.Arc28Events, tx.Arc28Events) {
		return false
	}
	if f.CustomFilter != nil && !f.CustomFilter(tx) {
		return false
	}
	return true
}

func receiverOf(tx *models.Transaction) string {
	switch {
	case tx.Payment != nil:
		return tx.Payment.Receiver
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.Receiver
	default:
		return ""
	}
}

func amountOf(tx *models.Transaction) (uint64, bool) {
	switch {
	case tx.Payment != nil:
		return tx.Payment.Amount, true
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.Amount, true
	default:
		return 0, false
	}
}

// matchesAppID accepts both calls to an existing application and the
// transaction that created it, whose body carries id zero.
func matchesAppID(tx *models.Transaction, appID uint64) bool {
	if tx.CreatedApplicationIndex == appID {
		return true
	}
	return tx.Application != nil && tx.Application.ApplicationID == appID
}

func matchesAssetID(tx *models.Transaction, assetID uint64) bool {
	if tx.CreatedAssetIndex == assetID {
		return true
	}
	switch {
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.AssetID == assetID
	case tx.AssetConfig != nil:
		return tx.AssetConfig.AssetID == assetID
	case tx.AssetFreeze != nil:
		return tx.AssetFreeze.AssetID == assetID
	default:
		return false
	}
}

func matchesMethod(tx *models.Transaction, signature string) bool {
	if tx.Application == nil || len(tx.Application.ApplicationArgs) == 0 {
		return false
	}
	first := tx.Application.ApplicationArgs[0]
	if len(first) < 4 {
		return false
	}
	sel := models.SignatureSelector(signature)
	return bytes.Equal(first[:4], sel[:])
}

func matchesBalanceChanges(entries []models.BalanceChangeFilter, changes []models.BalanceChange) bool {
	for _, entry := range entries {
		for _, change := range changes {
			if balanceChangeSatisfies(entry, change) {
				return true
			}
		}
	}
	return false
}

func balanceChangeSatisfies(entry models.BalanceChangeFilter, change models.BalanceChange) bool {
	if entry.Address != "" && change.Address != entry.Address {
		return false
	}
	if entry.AssetID != nil && change.AssetID != *entry.AssetID {
		return false
	}
	if entry.MinAmount != nil && change.Amount < *entry.MinAmount {
		return false
	}
	if entry.MaxAmount != nil && change.Amount > *entry.MaxAmount {
		return false
	}
	if len(entry.Roles) > 0 && !rolesIntersect(entry.Roles, change.Roles) {
		return false
	}
	return true
}

func rolesIntersect(wanted, have []models.Role) bool {
	for _, w := range wanted {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func matchesEvents(entries []models.Arc28EventFilter, events []models.Arc28Event) bool {
	for _, entry := range entries {
		for _, event := range events {
			if eventSatisfies(entry, event) {
				return true
			}
		}
	}
	return false
}

func eventSatisfies(entry models.Arc28EventFilter, event models.Arc28Event) bool {
	if entry.GroupName != "" && event.GroupName != entry.GroupName {
		return false
	}
	if entry.EventName != "" && event.EventName != entry.EventName {
		return false
	}
	for name, want := range entry.Args {
		have, ok := event.Args[name]
		if !ok || !valuesEqual(want, have) {
			return false
		}
	}
	return true
}

// valuesEqual compares a required argument value against a decoded one.
// Decoded numerics are uint64, uint32 or byte depending on the declared
// type; requirements written as any Go integer kind compare by value.
func valuesEqual(want, have any) bool {
	wantN, wantIsNum := asUint64(want)
	haveN, haveIsNum := asUint64(have)
	if wantIsNum && haveIsNum {
		return wantN == haveN
	}
	wantS, wantIsStr := want.(string)
	haveS, haveIsStr := have.(string)
	if wantIsStr && haveIsStr {
		return wantS == haveS
	}
	return false
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int8:
		return asUint64(int64(n))
	case int16:
		return asUint64(int64(n))
	case int32:
		return asUint64(int64(n))
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
