package domain

// WalletNamespace is the state-store namespace holding wallet ledgers.
const WalletNamespace = "wallet"

// RecentKeyLimit bounds the ring of applied keys persisted with a wallet.
const RecentKeyLimit = 256

// MutationKind names the three ways a wallet balance can change.
type MutationKind string

const (
	MutationCredit MutationKind = "credit"
	MutationDebit  MutationKind = "debit"
	MutationReset  MutationKind = "reset"
)

// LastTransaction is the most recent mutation applied to a wallet.
type LastTransaction struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId,omitempty"`
	Amount    int64  `json:"amount"`    // Signed: negative for debits
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// WalletState is the persisted ledger of one client.
type WalletState struct {
	Balance         int64            `json:"balance"`
	IsProcessing    bool             `json:"-"` // Runtime only, true while a mutation holds the lock
	LastTransaction *LastTransaction `json:"lastTransaction,omitempty"`
	RecentKeys      []string         `json:"recentKeys,omitempty"`
}

// IsReplay reports whether key repeats the last applied transaction.
func (w *WalletState) IsReplay(key string) bool {
	return key != "" && w.LastTransaction != nil && w.LastTransaction.SessionID == key
}

// RecentlyApplied reports whether key is in the applied-key ring.
func (w *WalletState) RecentlyApplied(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range w.RecentKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Apply records tx and moves the balance by its signed amount.
func (w *WalletState) Apply(tx LastTransaction) {
	w.Balance += tx.Amount
	w.LastTransaction = &tx
	if tx.SessionID == "" {
		return
	}
	w.RecentKeys = append(w.RecentKeys, tx.SessionID)
	if over := len(w.RecentKeys) - RecentKeyLimit; over > 0 {
		w.RecentKeys = append([]string(nil), w.RecentKeys[over:]...)
	}
}

// Clone returns a deep copy safe to mutate or hand to other goroutines.
func (w WalletState) Clone() WalletState {
	cp := w
	if w.LastTransaction != nil {
		tx := *w.LastTransaction
		cp.LastTransaction = &tx
	}
	if w.RecentKeys != nil {
		cp.RecentKeys = append([]string(nil), w.RecentKeys...)
	}
	return cp
}

// MutationStatus is the tri-state outcome of a credit or debit.
type MutationStatus string

const (
	MutationApplied   MutationStatus = "applied"
	MutationDuplicate MutationStatus = "duplicate"
	MutationRejected  MutationStatus = "rejected"
)

// RejectReason explains a rejected mutation.
type RejectReason string

const (
	RejectInvalidAmount     RejectReason = "invalid_amount"
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	RejectStorageFailure    RejectReason = "storage_failure"
	RejectCanceled          RejectReason = "canceled"
	RejectInternal          RejectReason = "internal"
)

// MutationResult is what the ledger reports for every mutation attempt.
type MutationResult struct {
	Status      MutationStatus   `json:"status"`
	Reason      RejectReason     `json:"reason,omitempty"`
	Balance     int64            `json:"balance"`
	Transaction *LastTransaction `json:"transaction,omitempty"`
}

// Applied reports whether the mutation changed the balance.
func (r *MutationResult) Applied() bool {
	return r != nil && r.Status == MutationApplied
}

// Duplicate reports whether the mutation was recognized as a replay.
func (r *MutationResult) Duplicate() bool {
	return r != nil && r.Status == MutationDuplicate
}

func AppliedResult(balance int64, tx LastTransaction) *MutationResult {
	return &MutationResult{Status: MutationApplied, Balance: balance, Transaction: &tx}
}

func DuplicateResult(balance int64) *MutationResult {
	return &MutationResult{Status: MutationDuplicate, Balance: balance}
}

func RejectedResult(balance int64, reason RejectReason) *MutationResult {
	return &MutationResult{Status: MutationRejected, Reason: reason, Balance: balance}
}
