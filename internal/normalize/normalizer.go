// Package normalize converts raw block-shaped data into the canonical
// transaction model: long-form field names, recursively flattened inner
// transactions with stable intra-round offsets, and promoted execution
// results (logs, state deltas, created indices).
package normalize

import (
	"github.com/rawblock/algostream/pkg/models"
)

// BlockMetadata is the per-block bundle stamped onto every transaction.
type BlockMetadata struct {
	Round       uint64
	Timestamp   int64
	GenesisID   string
	GenesisHash []byte
}

// MetadataOf extracts the metadata bundle from a raw block.
func MetadataOf(b *models.Block) BlockMetadata {
	return BlockMetadata{
		Round:       b.Round,
		Timestamp:   b.Timestamp,
		GenesisID:   b.GenesisID,
		GenesisHash: b.GenesisHash,
	}
}

// BlockTransactions converts every signed transaction in a raw block into a
// canonical transaction, inner transactions attached. Offsets are assigned in
// flattened pre-order: a parent precedes its children and each child takes
// the next position after the subtree of its previous sibling, so the first
// inner transaction always sits at parent offset + 1.
func BlockTransactions(b *models.Block) []models.Transaction {
	meta := MetadataOf(b)
	out := make([]models.Transaction, 0, len(b.Txns))
	offset := uint64(0)
	for i := range b.Txns {
		out = append(out, convert(&b.Txns[i], meta, &offset))
	}
	return out
}

func convert(stxn *models.SignedTxnInBlock, meta BlockMetadata, offset *uint64) models.Transaction {
	raw := &stxn.Txn

	tx := models.Transaction{
		Type:             models.TransactionType(raw.Type),
		Sender:           raw.Sender,
		ConfirmedRound:   meta.Round,
		RoundTime:        meta.Timestamp,
		Fee:              raw.Fee,
		FirstValid:       raw.FirstValid,
		LastValid:        raw.LastValid,
		GenesisID:        meta.GenesisID,
		GenesisHash:      meta.GenesisHash,
		IntraRoundOffset: *offset,
		Group:            raw.Group,
		Lease:            raw.Lease,
		RekeyTo:          raw.RekeyTo,
		Note:             raw.Note,
	}
	*offset++

	// Transactions committed with their own genesis fields keep them.
	if raw.GenesisID != "" {
		tx.GenesisID = raw.GenesisID
	}
	if len(raw.GenesisHash) > 0 {
		tx.GenesisHash = raw.GenesisHash
	}

	if stxn.Txid != "" {
		tx.ID = stxn.Txid
	} else {
		tx.ID = DeriveID(raw)
	}

	switch tx.Type {
	case models.TypePay:
		tx.Payment = &models.PaymentTransaction{
			Receiver:         raw.Receiver,
			Amount:           raw.Amount,
			CloseRemainderTo: raw.CloseRemainderTo,
		}
		if stxn.Dt != nil {
			tx.Payment.CloseAmount = stxn.Dt.ClosingAmount
		}

	case models.TypeAssetTransfer:
		tx.AssetTransfer = &models.AssetTransferTransaction{
			AssetID:  raw.XferAsset,
			Amount:   raw.AssetAmount,
			Receiver: raw.AssetReceiver,
			Sender:   raw.AssetSender,
			CloseTo:  raw.AssetCloseTo,
		}
		if stxn.Dt != nil {
			tx.AssetTransfer.CloseAmount = stxn.Dt.AssetClosingAmount
		}

	case models.TypeAssetConfig:
		tx.AssetConfig = &models.AssetConfigTransaction{
			AssetID: raw.ConfigAsset,
			Params:  convertAssetParams(raw.AssetParams),
		}
		tx.CreatedAssetIndex = stxn.Caid

	case models.TypeAppCall:
		tx.Application = &models.ApplicationTransaction{
			ApplicationID:     raw.ApplicationID,
			OnCompletion:      onCompletionName(raw.OnCompletion),
			ApplicationArgs:   raw.ApplicationArgs,
			Accounts:          raw.Accounts,
			ForeignApps:       raw.ForeignApps,
			ForeignAssets:     raw.ForeignAssets,
			ApprovalProgram:   raw.ApprovalProgram,
			ClearStateProgram: raw.ClearProgram,
			GlobalStateSchema: convertStateSchema(raw.GlobalSchema),
			LocalStateSchema:  convertStateSchema(raw.LocalSchema),
			ExtraProgramPages: raw.ExtraPages,
		}
		tx.CreatedApplicationIndex = stxn.Apid
		if stxn.Dt != nil {
			tx.Logs = stxn.Dt.Logs
			tx.GlobalStateDelta = stxn.Dt.GlobalDelta
			tx.LocalStateDelta = stxn.Dt.LocalDeltas
		}

	case models.TypeKeyReg:
		tx.Keyreg = &models.KeyregTransaction{
			VoteParticipationKey:      raw.VoteKey,
			SelectionParticipationKey: raw.SelectionKey,
			VoteFirstValid:            raw.VoteFirst,
			VoteLastValid:             raw.VoteLast,
			VoteKeyDilution:           raw.VoteKeyDilution,
			NonParticipation:          raw.Nonparticipation,
		}

	case models.TypeAssetFreeze:
		tx.AssetFreeze = &models.AssetFreezeTransaction{
			AssetID:         raw.FreezeAsset,
			Address:         raw.FreezeAccount,
			NewFreezeStatus: raw.AssetFrozen,
		}
	}

	if stxn.Dt != nil && len(stxn.Dt.InnerTxns) > 0 {
		tx.InnerTxns = make([]models.Transaction, 0, len(stxn.Dt.InnerTxns))
		for i := range stxn.Dt.InnerTxns {
			tx.InnerTxns = append(tx.InnerTxns, convert(&stxn.Dt.InnerTxns[i], meta, offset))
		}
	}

	return tx
}

func convertAssetParams(p *models.RawAssetParams) *models.AssetParams {
	if p == nil {
		return nil
	}
	return &models.AssetParams{
		Total:         p.Total,
		Decimals:      p.Decimals,
		DefaultFrozen: p.DefaultFrozen,
		UnitName:      p.UnitName,
		Name:          p.AssetName,
		URL:           p.URL,
		MetadataHash:  p.MetadataHash,
		Manager:       p.Manager,
		Reserve:       p.Reserve,
		Freeze:        p.Freeze,
		Clawback:      p.Clawback,
	}
}

func convertStateSchema(s *models.RawStateSchema) *models.StateSchema {
	if s == nil {
		return nil
	}
	return &models.StateSchema{NumUint: s.NumUint, NumByteSlice: s.NumByteSlice}
}

// onCompletionName maps the numeric on-completion code to its long form.
// Zero (and anything unknown) is "noop", matching the wire default.
func onCompletionName(code uint64) string {
	switch code {
	case 1:
		return models.OnCompleteOptIn
	case 2:
		return models.OnCompleteCloseOut
	case 3:
		return models.OnCompleteClearState
	case 4:
		return models.OnCompleteUpdate
	case 5:
		return models.OnCompleteDelete
	default:
		return models.OnCompleteNoOp
	}
}
