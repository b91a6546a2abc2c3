package ltc

import "time"

// CodeRef pins the code that produced a decision.
type CodeRef struct {
	Repository string `json:"repository"`
	Revision   string `json:"revision"`
}

// Solver names the computation engine that ran the decision.
type Solver struct {
	Backend string `json:"backend"`
	Version string `json:"version"`
}

// Timing is the millisecond breakdown of a decision.
type Timing struct {
	Total  float64 `json:"total"`
	Solver float64 `json:"solver"`
}

// Receipts holds the external anchoring references of an entry.
// Both fields are null until the entry has been anchored.
// The stored entry bytes always carry the null pair: receipts are
// populated on read from a separate anchor record, never by rewriting
// the entry.
type Receipts struct {
	ContentAddress *string `json:"content_address"`
	LedgerTx       *string `json:"ledger_tx"`
}

// Entry is one immutable codex record. Once appended it is never
// mutated in place.
type Entry struct {
	ID                 ID        `json:"ltc_id"`
	Timestamp          time.Time `json:"timestamp"`
	RequestFingerprint string    `json:"request_fingerprint,omitempty"`
	PolicyID           string    `json:"policy_id"`
	CodeRef            CodeRef   `json:"code_ref"`
	Solver             Solver    `json:"solver"`
	Inputs             Payload   `json:"inputs"`
	Outputs            Payload   `json:"outputs"`
	TimingMS           Timing    `json:"timing_ms"`
	EnergyEstimateJ    *float64  `json:"energy_estimate_j,omitempty"`
	Receipts           Receipts  `json:"receipts"`
	Explanation        string    `json:"explanation,omitempty"`
	Redactions         []string  `json:"redactions"`

	// ContentHash covers every field above except Receipts.
	ContentHash Ref `json:"content_hash"`
}

// Draft is the caller-supplied precursor of an Entry.
// System-derived fields (id, timestamp, redactions, content hash)
// are filled by Build.
type Draft struct {
	RequestFingerprint string   `json:"request_fingerprint,omitempty"`
	PolicyID           string   `json:"policy_id"`
	CodeRef            CodeRef  `json:"code_ref"`
	Solver             Solver   `json:"solver"`
	Inputs             Payload  `json:"inputs"`
	Outputs            Payload  `json:"outputs"`
	TimingMS           Timing   `json:"timing_ms"`
	EnergyEstimateJ    *float64 `json:"energy_estimate_j,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

// AnchorReceipt is the append-style record that carries an entry's
// anchoring references. It lives in a separate receipts partition,
// keyed by the entry id; the entry's own bytes are never rewritten.
type AnchorReceipt struct {
	LTCID          ID        `json:"ltc_id"`
	ContentAddress string    `json:"content_address"`
	LedgerTx       string    `json:"ledger_tx,omitempty"`
	AnchoredAt     time.Time `json:"anchored_at"`
}
