// Package enrich synthesizes the derived views of a canonical transaction:
// per-(address, asset) balance deltas and decoded application events. Balance
// deltas cover a transaction together with its inner-transaction subtree;
// decoded events are attached to the transaction whose logs they came from.
package enrich

import (
	"sort"

	"github.com/rawblock/algostream/pkg/models"
)

type balanceKey struct {
	address string
	assetID uint64
}

type balanceAcc struct {
	amount int64
	roles  map[models.Role]bool
}

// roleOrder fixes the order roles are reported in.
var roleOrder = []models.Role{
	models.RoleSender,
	models.RoleReceiver,
	models.RoleCloseTo,
	models.RoleAssetCreator,
	models.RoleAssetDestroyer,
}

// ApplyBalanceChanges computes and attaches balance changes to tx and every
// transaction in its inner subtree. Each node's changes cover that node plus
// its own descendants, so the root reflects the whole tree.
func ApplyBalanceChanges(tx *models.Transaction) {
	buildBalances(tx)
}

func buildBalances(tx *models.Transaction) map[balanceKey]*balanceAcc {
	acc := make(map[balanceKey]*balanceAcc)

	add := func(address string, assetID uint64, amount int64, role models.Role) {
		if address == "" {
			return
		}
		key := balanceKey{address: address, assetID: assetID}
		entry, ok := acc[key]
		if !ok {
			entry = &balanceAcc{roles: make(map[models.Role]bool)}
			acc[key] = entry
		}
		entry.amount += amount
		entry.roles[role] = true
	}

	// Every transaction pays its fee from the sender in the native asset.
	add(tx.Sender, 0, -int64(tx.Fee), models.RoleSender)

	switch {
	case tx.Payment != nil:
		p := tx.Payment
		add(tx.Sender, 0, -int64(p.Amount), models.RoleSender)
		add(p.Receiver, 0, int64(p.Amount), models.RoleReceiver)
		if p.CloseRemainderTo != "" && p.CloseAmount > 0 {
			add(tx.Sender, 0, -int64(p.CloseAmount), models.RoleSender)
			add(p.CloseRemainderTo, 0, int64(p.CloseAmount), models.RoleCloseTo)
		}

	case tx.AssetTransfer != nil:
		a := tx.AssetTransfer
		// Clawback transfers move funds from the named asset sender.
		actualSender := a.Sender
		if actualSender == "" {
			actualSender = tx.Sender
		}
		add(actualSender, a.AssetID, -int64(a.Amount), models.RoleSender)
		add(a.Receiver, a.AssetID, int64(a.Amount), models.RoleReceiver)
		if a.CloseTo != "" && a.CloseAmount > 0 {
			add(actualSender, a.AssetID, -int64(a.CloseAmount), models.RoleSender)
			add(a.CloseTo, a.AssetID, int64(a.CloseAmount), models.RoleCloseTo)
		}

	case tx.AssetConfig != nil:
		c := tx.AssetConfig
		if tx.CreatedAssetIndex != 0 && c.Params != nil {
			add(tx.Sender, tx.CreatedAssetIndex, int64(c.Params.Total), models.RoleAssetCreator)
		} else if c.AssetID != 0 && c.Params == nil {
			add(tx.Sender, c.AssetID, 0, models.RoleAssetDestroyer)
		}
	}

	for i := range tx.InnerTxns {
		child := buildBalances(&tx.InnerTxns[i])
		for key, entry := range child {
			parent, ok := acc[key]
			if !ok {
				parent = &balanceAcc{roles: make(map[models.Role]bool)}
				acc[key] = parent
			}
			parent.amount += entry.amount
			for role := range entry.roles {
				parent.roles[role] = true
			}
		}
	}

	tx.BalanceChanges = finalize(acc)
	return acc
}

// finalize converts the accumulator into the reported slice: one entry per
// (address, asset) pair, sorted for stable output, zero amounts reported
// only for asset destruction.
func finalize(acc map[balanceKey]*balanceAcc) []models.BalanceChange {
	out := make([]models.BalanceChange, 0, len(acc))
	for key, entry := range acc {
		if entry.amount == 0 && !entry.roles[models.RoleAssetDestroyer] {
			continue
		}
		roles := make([]models.Role, 0, len(entry.roles))
		for _, role := range roleOrder {
			if entry.roles[role] {
				roles = append(roles, role)
			}
		}
		out = append(out, models.BalanceChange{
			Address: key.address,
			AssetID: key.assetID,
			Amount:  entry.amount,
			Roles:   roles,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}
