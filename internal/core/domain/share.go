package domain

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// ShareState is the serializable subset of swap progress that lets a flow
// resume from a shared link or a restart. It never carries the secret: the
// secret is re-derived at claim time.
type ShareState struct {
	CommitId         string
	TxId             string
	Source           string
	Destination      string
	SourceAsset      string
	DestinationAsset string
	Amount           decimal.Decimal
	Address          string
	Solver           string
	SrcContract      string
	DestContract     string
}

// Encode serializes the state into URL query parameters.
func (s ShareState) Encode() url.Values {
	v := url.Values{}
	v.Set("commitId", s.CommitId)
	v.Set("txId", s.TxId)
	v.Set("source", s.Source)
	v.Set("destination", s.Destination)
	v.Set("source_asset", s.SourceAsset)
	v.Set("destination_asset", s.DestinationAsset)
	v.Set("amount", s.Amount.String())
	v.Set("address", s.Address)
	v.Set("solver", s.Solver)
	v.Set("srcContract", s.SrcContract)
	v.Set("destContract", s.DestContract)
	return v
}

// DecodeShareState parses swap progress out of URL query parameters.
func DecodeShareState(v url.Values) (ShareState, error) {
	s := ShareState{
		CommitId:         v.Get("commitId"),
		TxId:             v.Get("txId"),
		Source:           v.Get("source"),
		Destination:      v.Get("destination"),
		SourceAsset:      v.Get("source_asset"),
		DestinationAsset: v.Get("destination_asset"),
		Address:          v.Get("address"),
		Solver:           v.Get("solver"),
		SrcContract:      v.Get("srcContract"),
		DestContract:     v.Get("destContract"),
	}
	if s.CommitId == "" {
		return ShareState{}, fmt.Errorf("missing commitId")
	}
	if raw := v.Get("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return ShareState{}, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		s.Amount = amount
	}
	return s, nil
}
