// Package redact masks sensitive fields of decision drafts according
// to a declarative policy, prior to persistence.
package redact

import (
	"os"
	"regexp"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/quantaleap/ltc"
)

// DefaultMarker replaces redacted values unless the policy overrides it.
const DefaultMarker = "[REDACTED]"

// Rule matches payload fields by exact name or by key pattern.
type Rule struct {
	Field   string `yaml:"field,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
}

// Policy is a declarative set of redaction rules.
type Policy struct {
	Marker string `yaml:"marker,omitempty"`
	Rules  []Rule `yaml:"rules"`
}

// LoadPolicy reads a Policy from a YAML file.
func LoadPolicy(path string) (*Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading policy file %s", path)
	}
	var p Policy
	err = yaml.Unmarshal(b, &p)
	return &p, errors.Wrapf(err, "parsing policy file %s", path)
}

// sensitiveRE is the heuristic for fields that look sensitive but
// match no rule. Hits produce warnings, never errors.
var sensitiveRE = regexp.MustCompile(`(?i)(email|phone|ssn|password|secret|token|api_?key|credit_?card)`)

// Redactor applies a compiled Policy to drafts.
type Redactor struct {
	marker   string
	fields   map[string]bool
	patterns []*regexp.Regexp
}

// New compiles a policy into a Redactor. A nil policy yields a
// redactor with no rules; per-call extra fields still apply.
func New(p *Policy) (*Redactor, error) {
	if p == nil {
		p = &Policy{}
	}

	r := &Redactor{
		marker: p.Marker,
		fields: make(map[string]bool),
	}
	if r.marker == "" {
		r.marker = DefaultMarker
	}

	for _, rule := range p.Rules {
		if rule.Field != "" {
			r.fields[rule.Field] = true
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, errors.Wrapf(err, "compiling pattern %q", rule.Pattern)
			}
			r.patterns = append(r.patterns, re)
		}
	}
	return r, nil
}

// Marker returns the value that replaces redacted fields.
func (r *Redactor) Marker() string {
	return r.marker
}

// Redact applies the policy, plus any extra exact field names, to the
// draft's inputs and outputs. It returns a cleaned copy (the caller's
// draft is untouched), the names of redacted fields in application
// order, and warnings for sensitive-looking fields no rule covered.
//
// Redaction is additive and conservative: values are masked, never
// removed, so consumers keep seeing the fields' existence. Masking an
// already-masked value is a no-op.
func (r *Redactor) Redact(d *ltc.Draft, extra ...string) (*ltc.Draft, []string, []string) {
	cleaned := *d
	cleaned.Inputs = d.Inputs.Clone()
	cleaned.Outputs = d.Outputs.Clone()

	sw := &sweep{
		r:      r,
		extra:  make(map[string]bool, len(extra)),
		seen:   make(map[string]bool),
		warned: make(map[string]bool),
	}
	for _, f := range extra {
		sw.extra[f] = true
	}

	sw.payload(&cleaned.Inputs)
	sw.payload(&cleaned.Outputs)

	return &cleaned, sw.names, sw.warnings
}

// sweep is one Redact invocation's walk over both payloads.
type sweep struct {
	r        *Redactor
	extra    map[string]bool
	names    []string
	warnings []string
	seen     map[string]bool
	warned   map[string]bool
}

func (s *sweep) payload(p *ltc.Payload) {
	for _, k := range p.Keys() {
		k := k
		v, _ := p.Get(k)
		s.value(k, v, func(masked interface{}) { p.Set(k, masked) })
	}
}

// object walks nested keys in sorted order so that the redaction
// record, and with it the content hash, is deterministic.
func (s *sweep) object(m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		k := k
		s.value(k, m[k], func(masked interface{}) { m[k] = masked })
	}
}

func (s *sweep) value(key string, v interface{}, set func(interface{})) {
	switch t := v.(type) {
	case map[string]interface{}:
		s.object(t)
	case []interface{}:
		// A matching rule masks the whole array; otherwise objects
		// inside it are still swept.
		if s.matches(key) {
			s.field(key, v, set)
			return
		}
		s.warn(key)
		s.slice(t)
	default:
		s.field(key, v, set)
	}
}

func (s *sweep) slice(a []interface{}) {
	for _, v := range a {
		switch t := v.(type) {
		case map[string]interface{}:
			s.object(t)
		case []interface{}:
			s.slice(t)
		}
	}
}

func (s *sweep) warn(key string) {
	if sensitiveRE.MatchString(key) && !s.warned[key] {
		s.warned[key] = true
		s.warnings = append(s.warnings, key)
	}
}

func (s *sweep) field(key string, val interface{}, set func(interface{})) {
	if !s.matches(key) {
		s.warn(key)
		return
	}

	if str, ok := val.(string); ok && str == s.r.marker {
		return // already masked
	}

	set(s.r.marker)
	if !s.seen[key] {
		s.seen[key] = true
		s.names = append(s.names, key)
	}
}

func (s *sweep) matches(key string) bool {
	if s.r.fields[key] || s.extra[key] {
		return true
	}
	for _, re := range s.r.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}
