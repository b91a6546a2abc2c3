package ltc

import "time"

// Build validates a redacted draft and produces an immutable Entry.
// Mandatory fields are policy_id, code_ref, solver, inputs, and outputs;
// a missing one yields a *ValidationError and nothing else happens.
//
// The entry timestamp carries microsecond precision, matching the
// precision embedded in the id, so that partition filename order and
// timestamp order agree.
func Build(d *Draft, redactions []string, now time.Time) (*Entry, error) {
	var missing []string
	if d.PolicyID == "" {
		missing = append(missing, "policy_id")
	}
	if d.CodeRef.Repository == "" || d.CodeRef.Revision == "" {
		missing = append(missing, "code_ref")
	}
	if d.Solver.Backend == "" || d.Solver.Version == "" {
		missing = append(missing, "solver")
	}
	if d.Inputs.IsZero() {
		missing = append(missing, "inputs")
	}
	if d.Outputs.IsZero() {
		missing = append(missing, "outputs")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	now = now.UTC().Truncate(time.Microsecond)
	id, err := NewID(now)
	if err != nil {
		return nil, err
	}

	if redactions == nil {
		redactions = []string{}
	}

	e := &Entry{
		ID:                 id,
		Timestamp:          now,
		RequestFingerprint: d.RequestFingerprint,
		PolicyID:           d.PolicyID,
		CodeRef:            d.CodeRef,
		Solver:             d.Solver,
		Inputs:             d.Inputs.Clone(),
		Outputs:            d.Outputs.Clone(),
		TimingMS:           d.TimingMS,
		EnergyEstimateJ:    d.EnergyEstimateJ,
		Explanation:        d.Explanation,
		Redactions:         redactions,
	}

	e.ContentHash, err = Digest(e)
	if err != nil {
		return nil, err
	}
	return e, nil
}
