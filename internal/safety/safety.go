// Package safety runs a regex-based content pass over narrative text
// before it is first committed. Unsafe passages are substituted, recorded,
// and never retried.
package safety

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// ContentKind labels the narrative surface being checked.
type ContentKind string

const (
	ContentEventTitle       ContentKind = "event_title"
	ContentEventDescription ContentKind = "event_description"
	ContentDecisionText     ContentKind = "decision_text"
)

// Result reports the outcome of a content pass.
type Result struct {
	// Safe reports that no rule matched.
	Safe bool
	// Risks names the rules that matched.
	Risks []string
	// Replacement is the text with matched passages substituted. Equal to
	// the input when Safe.
	Replacement string
}

// rule pairs a named risk with the pattern that detects it and the text
// substituted over matches.
type rule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// defaultRules covers the categories the engine screens narrative text
// for. Patterns are deliberately coarse; the filter substitutes rather
// than rejects, so a false positive softens prose instead of losing it.
var defaultRules = []rule{
	{
		name:        "graphic_violence",
		pattern:     regexp.MustCompile(`(?i)\b(disembowel|decapitat\w*|mutilat\w*|eviscerat\w*)\b`),
		replacement: "gravely wounds",
	},
	{
		name:        "self_harm",
		pattern:     regexp.MustCompile(`(?i)\b(suicide|self[- ]harm)\b`),
		replacement: "despair",
	},
	{
		name:        "explicit_content",
		pattern:     regexp.MustCompile(`(?i)\b(explicit|graphic sexual)\b`),
		replacement: "intimate",
	},
	{
		name:        "slur_placeholder",
		pattern:     regexp.MustCompile(`(?i)\{\{slur\}\}`),
		replacement: "[removed]",
	},
}

// Record is one remembered unsafe occurrence.
type Record struct {
	Kind      ContentKind
	WorldID   string
	Risks     []string
	Original  string
	Filtered  string
	CheckedAt time.Time
}

// Feedback is a caller-supplied judgement on a past filtering decision,
// used to tune rules out of band.
type Feedback struct {
	WorldID    string
	Kind       ContentKind
	Text       string
	Acceptable bool
	Note       string
	ReceivedAt time.Time
}

// Filter screens narrative text against a rule set and remembers every
// unsafe occurrence.
type Filter struct {
	mu       sync.Mutex
	rules    []rule
	records  []Record
	feedback []Feedback
	now      func() time.Time
}

// Option adjusts filter construction.
type Option func(*Filter)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFilter builds a filter with the default rule set.
func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		rules: defaultRules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Validate runs the content pass over text. When any rule matches, the
// occurrence is recorded and the returned replacement carries the
// substituted text.
func (f *Filter) Validate(text string, kind ContentKind, worldID string) Result {
	result := Result{Safe: true, Replacement: text}
	if strings.TrimSpace(text) == "" {
		return result
	}

	for _, r := range f.rules {
		if !r.pattern.MatchString(result.Replacement) {
			continue
		}
		result.Safe = false
		result.Risks = append(result.Risks, r.name)
		result.Replacement = r.pattern.ReplaceAllString(result.Replacement, r.replacement)
	}

	if !result.Safe {
		f.mu.Lock()
		f.records = append(f.records, Record{
			Kind:      kind,
			WorldID:   worldID,
			Risks:     result.Risks,
			Original:  text,
			Filtered:  result.Replacement,
			CheckedAt: f.now().UTC(),
		})
		f.mu.Unlock()
	}
	return result
}

// RecordFeedback stores a judgement on past filtering for later review.
func (f *Filter) RecordFeedback(fb Feedback) {
	fb.ReceivedAt = f.now().UTC()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
}

// Records returns the remembered unsafe occurrences, oldest first.
func (f *Filter) Records() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

// FeedbackLog returns the received feedback, oldest first.
func (f *Filter) FeedbackLog() []Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Feedback, len(f.feedback))
	copy(out, f.feedback)
	return out
}
