package domain

// TransactionType identifies a transaction record reported by the solver.
type TransactionType string

const (
	TxTypeHTLCCommit     TransactionType = "HTLCCommit"
	TxTypeHTLCLock       TransactionType = "HTLCLock"
	TxTypeHTLCAddLockSig TransactionType = "HTLCAddLockSig"
	TxTypeHTLCRedeem     TransactionType = "HTLCRedeem"
	TxTypeHTLCRefund     TransactionType = "HTLCRefund"
)

// SolverTransaction is one transaction the solver claims to have observed
// or submitted for a swap.
type SolverTransaction struct {
	Type    TransactionType `json:"type"`
	Hash    string          `json:"hash"`
	Network string          `json:"network"`
}

// SolverSwap is the off-chain solver's view of a swap. It is advisory only:
// safety-critical decisions always prefer on-chain Commit data.
type SolverSwap struct {
	SourceNetwork              string              `json:"sourceNetwork"`
	SourceAsset                string              `json:"sourceAsset"`
	DestinationNetwork         string              `json:"destinationNetwork"`
	DestinationAsset           string              `json:"destinationAsset"`
	DestinationAddress         string              `json:"destinationAddress"`
	SourceContractAddress      string              `json:"sourceContractAddress"`
	DestinationContractAddress string              `json:"destinationContractAddress"`
	Transactions               []SolverTransaction `json:"transactions"`
}

// Transaction returns the first transaction of the given type on the given
// network, or nil. An empty network matches any.
func (s *SolverSwap) Transaction(txType TransactionType, network string) *SolverTransaction {
	if s == nil {
		return nil
	}
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		if tx.Type != txType {
			continue
		}
		if network == "" || tx.Network == network {
			return tx
		}
	}
	return nil
}
