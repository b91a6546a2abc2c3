package ltc

import (
	"crypto/sha256"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"github.com/pkg/errors"
)

// canonicalEntry holds the caller-supplied content of an Entry: no
// ltc_id or timestamp (system-assigned identity, unique even for
// duplicate content), no receipts (assigned after hashing), no
// content_hash (the digest cannot cover itself). Two entries with the
// same content serialize to the same bytes.
type canonicalEntry struct {
	RequestFingerprint string   `json:"request_fingerprint,omitempty"`
	PolicyID           string   `json:"policy_id"`
	CodeRef            CodeRef  `json:"code_ref"`
	Solver             Solver   `json:"solver"`
	Inputs             Payload  `json:"inputs"`
	Outputs            Payload  `json:"outputs"`
	TimingMS           Timing   `json:"timing_ms"`
	EnergyEstimateJ    *float64 `json:"energy_estimate_j,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
	Redactions         []string `json:"redactions"`
}

// CanonicalBytes serializes e's content deterministically: canonical
// JSON with stable field ordering and normalized number formatting,
// excluding identity (ltc_id, timestamp), receipts, and the content
// hash. These are the bytes that get hashed and anchored.
func CanonicalBytes(e *Entry) ([]byte, error) {
	ce := canonicalEntry{
		RequestFingerprint: e.RequestFingerprint,
		PolicyID:           e.PolicyID,
		CodeRef:            e.CodeRef,
		Solver:             e.Solver,
		Inputs:             e.Inputs,
		Outputs:            e.Outputs,
		TimingMS:           e.TimingMS,
		EnergyEstimateJ:    e.EnergyEstimateJ,
		Explanation:        e.Explanation,
		Redactions:         e.Redactions,
	}
	b, err := canonicaljson.Marshal(ce)
	return b, errors.Wrap(err, "marshaling canonical entry")
}

// Digest computes the content hash of e.
// Entries with identical content produce identical digests;
// that is the basis of anchor-side deduplication.
func Digest(e *Entry) (Ref, error) {
	b, err := CanonicalBytes(e)
	if err != nil {
		return Zero, err
	}
	return sha256.Sum256(b), nil
}

// VerifyIntegrity recomputes e's digest and compares it with the
// stored content hash, returning an *IntegrityError on mismatch.
func VerifyIntegrity(e *Entry) error {
	got, err := Digest(e)
	if err != nil {
		return err
	}
	if got != e.ContentHash {
		return &IntegrityError{ID: e.ID, Want: e.ContentHash, Got: got}
	}
	return nil
}
