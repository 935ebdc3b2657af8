// Package priority implements rule-based triage for maintenance tickets.
// A ticket's description and system name are scored against keyword tables
// (pattern tiers, intensity modifiers, system and scope multipliers, urgency
// bonuses) and mapped to a priority band with a response-time SLA. The
// pipeline is deterministic: the same text always produces the same result.
package priority

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrMissingDescription is returned when a request has no description to
// analyze.
var ErrMissingDescription = errors.New("priority: missing required field: description")

// Band is a triage priority level, highest first.
type Band string

// Priority bands.
const (
	BandCritical Band = "CRITICAL"
	BandHigh     Band = "HIGH"
	BandMedium   Band = "MEDIUM"
	BandLow      Band = "LOW"
	BandRoutine  Band = "ROUTINE"
)

// Request is one maintenance request to triage.
type Request struct {
	RequestID   string `json:"request_id,omitempty"`
	Description string `json:"description"`
	System      string `json:"system,omitempty"`
	Requester   string `json:"requester,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Analysis explains how a score was assembled.
type Analysis struct {
	MatchedPatterns  []string `json:"matched_patterns"`
	ModifiersApplied []string `json:"modifiers_applied"`
	SystemFound      string   `json:"system_found"`
	SystemMultiplier float64  `json:"system_multiplier"`
	ScopeFound       string   `json:"scope_found"`
	ScopeMultiplier  float64  `json:"scope_multiplier"`
	UrgencyBonus     float64  `json:"urgency_bonus"`
	UrgencyTerms     []string `json:"urgency_terms"`
	BaseScore        float64  `json:"base_score"`
	Confidence       string   `json:"confidence"`
}

// Details echoes the triaged request back to the caller.
type Details struct {
	Description string `json:"description"`
	System      string `json:"system"`
	Requester   string `json:"requester"`
	Timestamp   string `json:"timestamp"`
}

// Result is the triage outcome for one request.
type Result struct {
	RequestID   string   `json:"request_id,omitempty"`
	Priority    Band     `json:"priority"`
	Score       float64  `json:"priority_score"`
	Description string   `json:"priority_description"`
	SLA         string   `json:"sla"`
	Analysis    Analysis `json:"analysis"`
	Details     Details  `json:"request_details"`
}

// BandCounts tallies results per priority band.
type BandCounts struct {
	Critical int `json:"CRITICAL"`
	High     int `json:"HIGH"`
	Medium   int `json:"MEDIUM"`
	Low      int `json:"LOW"`
	Routine  int `json:"ROUTINE"`
}

// BatchResult is the outcome of triaging a batch, sorted by score descending.
type BatchResult struct {
	TotalRequests int        `json:"total_requests"`
	Results       []*Result  `json:"requests"`
	Summary       BandCounts `json:"priority_summary"`
}

// Scorer triages requests against its keyword tables. The zero value is not
// usable; construct with NewScorer. A Scorer is immutable after construction
// and safe for concurrent use.
type Scorer struct {
	critical []patternGroup
	high     []patternGroup
	medium   []patternGroup

	negations    map[string]bool
	intensifiers []modifier
	diminishers  []modifier
	systems      []weightedTerm
	scopes       []weightedTerm
	urgency      []urgencyRule
}

// NewScorer returns a Scorer loaded with the standard triage tables.
func NewScorer() *Scorer {
	return &Scorer{
		critical:     defaultCriticalPatterns,
		high:         defaultHighPatterns,
		medium:       defaultMediumPatterns,
		negations:    defaultNegations,
		intensifiers: defaultIntensifiers,
		diminishers:  defaultDiminishers,
		systems:      defaultSystemWeights,
		scopes:       defaultScopeWeights,
		urgency:      defaultUrgencyRules,
	}
}

// Analyze triages one request.
//
// Pipeline: pattern tiers are scored with negation lookback (critical and
// high tiers only), intensity modifiers multiply the raw pattern score in
// table order, the strongest system and scope keywords each contribute one
// multiplier, and urgency expressions add a flat bonus:
//
//	final = (patterns * modifiers) * system * scope + urgency
//
// Any surviving critical keyword forces the CRITICAL band regardless of the
// numeric score.
func (s *Scorer) Analyze(req Request) (*Result, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrMissingDescription
	}

	text := strings.ToLower(req.Description + " " + req.System)
	words := tokenize(text)

	baseScore, matched := s.scorePatterns(text, words)
	modified, modifiers := s.applyModifiers(text, baseScore)
	systemMult, systemFound := strongestTerm(text, s.systems, "general")
	scopeMult, scopeFound := strongestTerm(text, s.scopes, "single user")
	urgencyBonus, urgencyTerms := s.detectUrgency(text)

	finalScore := modified*systemMult*scopeMult + urgencyBonus
	band := bandFor(finalScore, matched)
	desc, sla := bandMeta(band)

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	reported := matched
	if len(reported) > maxReportedPatterns {
		reported = reported[:maxReportedPatterns]
	}

	return &Result{
		RequestID:   req.RequestID,
		Priority:    band,
		Score:       round2(finalScore),
		Description: desc,
		SLA:         sla,
		Analysis: Analysis{
			MatchedPatterns:  reported,
			ModifiersApplied: modifiers,
			SystemFound:      systemFound,
			SystemMultiplier: systemMult,
			ScopeFound:       scopeFound,
			ScopeMultiplier:  scopeMult,
			UrgencyBonus:     urgencyBonus,
			UrgencyTerms:     urgencyTerms,
			BaseScore:        round2(baseScore),
			Confidence:       confidence(len(matched)),
		},
		Details: Details{
			Description: req.Description,
			System:      req.System,
			Requester:   req.Requester,
			Timestamp:   timestamp,
		},
	}, nil
}

// AnalyzeBatch triages a batch of requests. Requests without an ID get a
// positional REQ-<n> ID. Results come back sorted by score, highest first,
// with a per-band tally. A request that cannot be analyzed fails the batch.
func (s *Scorer) AnalyzeBatch(reqs []Request) (*BatchResult, error) {
	batch := &BatchResult{
		TotalRequests: len(reqs),
		Results:       make([]*Result, 0, len(reqs)),
	}

	for i, req := range reqs {
		if req.RequestID == "" {
			req.RequestID = fmt.Sprintf("REQ-%d", i+1)
		}
		result, err := s.Analyze(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", req.RequestID, err)
		}
		batch.Results = append(batch.Results, result)

		switch result.Priority {
		case BandCritical:
			batch.Summary.Critical++
		case BandHigh:
			batch.Summary.High++
		case BandMedium:
			batch.Summary.Medium++
		case BandLow:
			batch.Summary.Low++
		case BandRoutine:
			batch.Summary.Routine++
		}
	}

	sort.SliceStable(batch.Results, func(i, j int) bool {
		return batch.Results[i].Score > batch.Results[j].Score
	})

	return batch, nil
}

// scorePatterns sums the tier weight of every phrase found in the text.
// Critical and high phrases are suppressed when negated; medium phrases
// always count.
func (s *Scorer) scorePatterns(text string, words []string) (float64, []string) {
	score := 0.0
	matched := []string{}

	tiers := []struct {
		groups    []patternGroup
		weight    float64
		label     string
		negatable bool
	}{
		{s.critical, criticalMatchScore, "CRITICAL", true},
		{s.high, highMatchScore, "HIGH", true},
		{s.medium, mediumMatchScore, "MEDIUM", false},
	}

	for _, tier := range tiers {
		for _, group := range tier.groups {
			for _, phrase := range group.phrases {
				if !strings.Contains(text, phrase) {
					continue
				}
				if tier.negatable && s.isNegated(words, phrase) {
					continue
				}
				score += tier.weight
				matched = append(matched, tier.label+":"+phrase)
			}
		}
	}

	return score, matched
}

// isNegated reports whether a negation word appears within negationWindow
// tokens before the phrase's first token. Lookback anchors on that token's
// first occurrence in the word slice; a phrase whose first token never
// appears as a standalone word (it matched inside a longer word) is treated
// as not negated.
func (s *Scorer) isNegated(words []string, phrase string) bool {
	first := phrase
	if i := strings.IndexByte(phrase, ' '); i >= 0 {
		first = phrase[:i]
	}

	pos := -1
	for i, w := range words {
		if w == first {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	start := pos - negationWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < pos; i++ {
		if s.negations[words[i]] {
			return true
		}
	}
	return false
}

// applyModifiers multiplies the raw pattern score by every intensifier and
// diminisher present in the text, in table order.
func (s *Scorer) applyModifiers(text string, base float64) (float64, []string) {
	score := base
	applied := []string{}

	for _, m := range s.intensifiers {
		if strings.Contains(text, m.word) {
			score *= m.multiplier
			applied = append(applied, fmt.Sprintf("Intensifier: %s (x%.1f)", m.word, m.multiplier))
		}
	}
	for _, m := range s.diminishers {
		if strings.Contains(text, m.word) {
			score *= m.multiplier
			applied = append(applied, fmt.Sprintf("Diminisher: %s (x%.1f)", m.word, m.multiplier))
		}
	}

	return score, applied
}

// detectUrgency sums the bonus of every urgency rule matching the text.
func (s *Scorer) detectUrgency(text string) (float64, []string) {
	bonus := 0.0
	terms := []string{}

	for _, rule := range s.urgency {
		if rule.re.MatchString(text) {
			bonus += rule.bonus
			terms = append(terms, rule.label)
		}
	}

	return bonus, terms
}

// strongestTerm returns the highest weight among matching terms, defaulting
// to 1.0/fallback when nothing matches. Strictly-greater comparison keeps
// the earliest of tied terms.
func strongestTerm(text string, terms []weightedTerm, fallback string) (float64, string) {
	weight := 1.0
	found := fallback
	for _, t := range terms {
		if strings.Contains(text, t.term) && t.weight > weight {
			weight = t.weight
			found = t.term
		}
	}
	return weight, found
}

// bandFor maps a final score to its band. An unnegated critical pattern
// forces CRITICAL even below the numeric threshold.
func bandFor(score float64, matched []string) Band {
	for _, m := range matched {
		if strings.HasPrefix(m, "CRITICAL:") {
			return BandCritical
		}
	}
	switch {
	case score >= criticalThreshold:
		return BandCritical
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	case score >= lowThreshold:
		return BandLow
	default:
		return BandRoutine
	}
}

// bandMeta returns the human description and response SLA for a band.
func bandMeta(b Band) (desc, sla string) {
	switch b {
	case BandCritical:
		return "P0 - Critical: Immediate Response Required", "15 minutes"
	case BandHigh:
		return "P1 - High: Respond within 1 hour", "1 hour"
	case BandMedium:
		return "P2 - Medium: Respond within 4 hours", "4 hours"
	case BandLow:
		return "P3 - Low: Respond within 24 hours", "24 hours"
	default:
		return "P4 - Routine: Scheduled maintenance", "48-72 hours"
	}
}

// confidence rates how well-evidenced a result is by its match count.
func confidence(matches int) string {
	switch {
	case matches >= 2:
		return "high"
	case matches == 1:
		return "medium"
	default:
		return "low"
	}
}

// tokenize lowercases and strips punctuation, returning the word slice used
// for negation lookback. Phrase matching itself runs on the raw lowercased
// text, punctuation included.
func tokenize(text string) []string {
	return strings.Fields(nonAlnum.ReplaceAllString(text, " "))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
