package filter

import "github.com/rawblock/algostream/pkg/models"

// PreFilterQuery translates a filter into the coarsest query the history
// source supports over [from, to]. The result is a necessary condition only:
// fields the source cannot pre-filter on are omitted and enforced by the
// full predicate pass afterwards. When both sender and receiver are set the
// sender becomes the address parameter and the receiver stays a post-filter
// constraint.
func PreFilterQuery(f *models.Filter, from, to uint64) models.HistoryQuery {
	q := models.HistoryQuery{
		MinRound: from,
		MaxRound: to,
		TxType:   f.Type,
	}
	if f.Sender != "" {
		q.Address = f.Sender
	} else if f.Receiver != "" {
		q.Address = f.Receiver
	}
	if len(f.NotePrefix) > 0 {
		q.NotePrefix = f.NotePrefix
	}
	if f.AppID != nil {
		q.ApplicationID = *f.AppID
	}
	if f.AssetID != nil {
		q.AssetID = *f.AssetID
	}
	if f.MinAmount != nil {
		v := *f.MinAmount
		q.CurrencyGreaterThan = &v
	}
	if f.MaxAmount != nil {
		v := *f.MaxAmount
		q.CurrencyLessThan = &v
	}
	return q
}
