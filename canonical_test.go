package ltc

import (
	"encoding/json"
	"testing"
	"time"
)

func testDraft() *Draft {
	var inputs, outputs Payload
	inputs.Set("acv", 25000)
	inputs.Set("intent_score", 0.74)
	outputs.Set("score", 0.87)
	outputs.Set("tier", "A")
	return &Draft{
		RequestFingerprint: "req-9f3a",
		PolicyID:           "sales.leads.v1",
		CodeRef:            CodeRef{Repository: "quantaleap/scoring", Revision: "4be91c2"},
		Solver:             Solver{Backend: "heuristic.greedy", Version: "0.1.0"},
		Inputs:             inputs,
		Outputs:            outputs,
		TimingMS:           Timing{Total: 12.5, Solver: 3.1},
		Explanation:        "greedy heuristic over intent features",
	}
}

func TestDigestReproducible(t *testing.T) {
	e, err := Build(testDraft(), nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	// Recomputing from the in-memory entry matches the stored hash.
	if err := VerifyIntegrity(e); err != nil {
		t.Fatal(err)
	}

	// Recomputing after a JSON round trip (the storage path) matches too.
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got Entry
	err = json.Unmarshal(b, &got)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyIntegrity(&got); err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != e.ContentHash {
		t.Errorf("hash changed across round trip: %s vs %s", got.ContentHash, e.ContentHash)
	}
}

func TestDigestExcludesReceipts(t *testing.T) {
	e, err := Build(testDraft(), nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	before, err := Digest(e)
	if err != nil {
		t.Fatal(err)
	}

	addr := "sha256:deadbeef"
	tx := "tx-1"
	e.Receipts = Receipts{ContentAddress: &addr, LedgerTx: &tx}

	after, err := Digest(e)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Error("receipts participated in the content hash")
	}
}

func TestVerifyIntegrityTampered(t *testing.T) {
	e, err := Build(testDraft(), nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	e.Outputs.Set("score", 0.99)

	err = VerifyIntegrity(e)
	ie, ok := err.(*IntegrityError)
	if !ok {
		t.Fatalf("got %v, want *IntegrityError", err)
	}
	if ie.ID != e.ID {
		t.Errorf("got id %s, want %s", ie.ID, e.ID)
	}
	if ie.Want == ie.Got {
		t.Error("tampered entry reported matching digests")
	}
}

func TestIdenticalContentIdenticalDigest(t *testing.T) {
	e1, err := Build(testDraft(), nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	e2, err := Build(testDraft(), nil, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	if e1.ID == e2.ID {
		t.Fatal("two builds produced the same id")
	}
	if e1.ContentHash != e2.ContentHash {
		t.Errorf("identical content produced different content_hashes: %s / %s", e1.ContentHash, e2.ContentHash)
	}

	b1, err := CanonicalBytes(e1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := CanonicalBytes(e2)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Errorf("identical content serialized differently:\n%s\n%s", b1, b2)
	}
}

func TestBuildValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Draft)
		want   string
	}{
		{"policy", func(d *Draft) { d.PolicyID = "" }, "policy_id"},
		{"coderef", func(d *Draft) { d.CodeRef.Revision = "" }, "code_ref"},
		{"solver", func(d *Draft) { d.Solver.Backend = "" }, "solver"},
		{"inputs", func(d *Draft) { d.Inputs = Payload{} }, "inputs"},
		{"outputs", func(d *Draft) { d.Outputs = Payload{} }, "outputs"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := testDraft()
			c.mutate(d)
			_, err := Build(d, nil, time.Now())
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("got %v, want *ValidationError", err)
			}
			found := false
			for _, m := range ve.Missing {
				if m == c.want {
					found = true
				}
			}
			if !found {
				t.Errorf("missing fields %v do not include %s", ve.Missing, c.want)
			}
		})
	}
}

func TestBuildTimestampUTC(t *testing.T) {
	est := time.FixedZone("UTC-5", -5*60*60)
	e, err := Build(testDraft(), nil, time.Date(2026, 8, 30, 20, 0, 0, 999, est))
	if err != nil {
		t.Fatal(err)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %s", e.Timestamp)
	}
	if e.Timestamp.Nanosecond()%1000 != 0 {
		t.Errorf("timestamp not truncated to microseconds: %s", e.Timestamp)
	}
}
