package priority

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_ProductionOutage(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "Production server is completely down and all users cannot access the system",
		System:      "Production Server",
		Requester:   "IT Admin",
	})
	require.NoError(t, err)

	// Two critical patterns (10 each), production x2.5, all users x3.0.
	assert.Equal(t, BandCritical, result.Priority)
	assert.Equal(t, 150.0, result.Score)
	assert.Equal(t, "15 minutes", result.SLA)
	assert.Equal(t, "P0 - Critical: Immediate Response Required", result.Description)

	assert.Equal(t, 20.0, result.Analysis.BaseScore)
	assert.Contains(t, result.Analysis.MatchedPatterns, "CRITICAL:down")
	assert.Contains(t, result.Analysis.MatchedPatterns, "CRITICAL:cannot access")
	assert.Equal(t, "production", result.Analysis.SystemFound)
	assert.Equal(t, 2.5, result.Analysis.SystemMultiplier)
	assert.Equal(t, "all users", result.Analysis.ScopeFound)
	assert.Equal(t, 3.0, result.Analysis.ScopeMultiplier)
	assert.Equal(t, "high", result.Analysis.Confidence)
}

func TestAnalyze_MinorGlitchIsRoutine(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "Minor glitch in application, happens occasionally",
		System:      "Application",
	})
	require.NoError(t, err)

	// Two medium matches (3 each) diminished by "minor" (x0.6) and
	// "occasionally" (x0.7), then the application multiplier (x1.5).
	assert.Equal(t, BandRoutine, result.Priority)
	assert.InDelta(t, 3.78, result.Score, 0.001)
	assert.Equal(t, "48-72 hours", result.SLA)

	assert.Equal(t, []string{"MEDIUM:occasional", "MEDIUM:glitch"}, result.Analysis.MatchedPatterns)
	assert.Equal(t, []string{
		"Diminisher: minor (x0.6)",
		"Diminisher: occasionally (x0.7)",
	}, result.Analysis.ModifiersApplied)
	assert.Equal(t, "application", result.Analysis.SystemFound)
	assert.Equal(t, "single user", result.Analysis.ScopeFound)
}

func TestAnalyze_SlowEmailForDepartment(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "Email is very slow for the entire department",
		System:      "Email Server",
	})
	require.NoError(t, err)

	// One high match (6), server x2.0 beats email x1.8, entire department
	// x2.5: 6 * 2.0 * 2.5 = 30.
	assert.Equal(t, BandHigh, result.Priority)
	assert.Equal(t, 30.0, result.Score)
	assert.Equal(t, "1 hour", result.SLA)
	assert.Equal(t, []string{"HIGH:very slow"}, result.Analysis.MatchedPatterns)
	assert.Equal(t, "server", result.Analysis.SystemFound)
	assert.Equal(t, "entire department", result.Analysis.ScopeFound)
	assert.Equal(t, "medium", result.Analysis.Confidence)
}

func TestAnalyze_FacilityEmergencyWithUrgencyBonus(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "Water leaking from ceiling in server room - urgent!",
		System:      "Building Infrastructure",
	})
	require.NoError(t, err)

	// urgent (critical, 10) + water leak + leaking (high, 6 each) = 22,
	// intensified by "urgent" (x1.5) = 33, server room x2.3, plus the
	// urgency bonus of 5: 33*2.3 + 5 = 80.9.
	assert.Equal(t, BandCritical, result.Priority)
	assert.InDelta(t, 80.9, result.Score, 0.001)
	assert.Equal(t, []string{"CRITICAL:urgent", "HIGH:water leak", "HIGH:leaking"}, result.Analysis.MatchedPatterns)
	assert.Equal(t, "server room", result.Analysis.SystemFound)
	assert.Equal(t, 5.0, result.Analysis.UrgencyBonus)
	assert.Equal(t, []string{"emergency|urgent|critical|asap|immediately|right now"}, result.Analysis.UrgencyTerms)
}

func TestAnalyze_NegationSuppressesCriticalKeyword(t *testing.T) {
	s := NewScorer()

	negated, err := s.Analyze(Request{Description: "system is not down"})
	require.NoError(t, err)
	assert.Equal(t, BandRoutine, negated.Priority)
	assert.Equal(t, 0.0, negated.Score)
	assert.Empty(t, negated.Analysis.MatchedPatterns)
	assert.Equal(t, "low", negated.Analysis.Confidence)

	plain, err := s.Analyze(Request{Description: "system is down"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CRITICAL:down"}, plain.Analysis.MatchedPatterns)
	assert.Greater(t, plain.Score, negated.Score)
}

func TestAnalyze_NegationWindowIsThreeTokens(t *testing.T) {
	s := NewScorer()

	// "not" sits four tokens before "down": outside the lookback window.
	result, err := s.Analyze(Request{Description: "not sure but everything went down"})
	require.NoError(t, err)
	assert.Contains(t, result.Analysis.MatchedPatterns, "CRITICAL:down")
}

func TestAnalyze_CriticalKeywordForcesBandBelowThreshold(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{Description: "system is down"})
	require.NoError(t, err)

	// Score 10 is well under the 40-point threshold, but an unnegated
	// critical keyword forces the band.
	assert.Less(t, result.Score, criticalThreshold)
	assert.Equal(t, BandCritical, result.Priority)
	assert.Equal(t, "15 minutes", result.SLA)
}

func TestAnalyze_ScopeWidensScore(t *testing.T) {
	s := NewScorer()

	single, err := s.Analyze(Request{Description: "printer error"})
	require.NoError(t, err)
	wide, err := s.Analyze(Request{Description: "printer error for all users"})
	require.NoError(t, err)

	assert.Greater(t, wide.Score, single.Score)
	assert.Equal(t, 3.0, wide.Analysis.ScopeMultiplier)
	assert.Equal(t, 1.0, single.Analysis.ScopeMultiplier)
}

func TestAnalyze_StrongestMultiplierWins(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{Description: "database error on the production cluster"})
	require.NoError(t, err)

	// Both "database" (x2.2) and "production" (x2.5) appear; only the
	// strongest applies.
	assert.Equal(t, "production", result.Analysis.SystemFound)
	assert.Equal(t, 2.5, result.Analysis.SystemMultiplier)
}

func TestAnalyze_Deterministic(t *testing.T) {
	s := NewScorer()
	req := Request{
		Description: "VPN connection keeps dropping, cannot connect since this morning",
		System:      "Network",
		Timestamp:   "2026-08-20T09:00:00Z",
	}

	first, err := s.Analyze(req)
	require.NoError(t, err)
	second, err := s.Analyze(req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_MissingDescription(t *testing.T) {
	s := NewScorer()

	_, err := s.Analyze(Request{System: "Email"})
	assert.ErrorIs(t, err, ErrMissingDescription)

	_, err = s.Analyze(Request{Description: "   "})
	assert.ErrorIs(t, err, ErrMissingDescription)
}

func TestAnalyze_MatchedPatternsCapped(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "down outage offline unavailable crashed breach hacked malware virus deleted corrupted emergency fire flood",
	})
	require.NoError(t, err)

	assert.Len(t, result.Analysis.MatchedPatterns, 10)
	assert.Greater(t, result.Analysis.BaseScore, 100.0)
}

func TestAnalyze_JSONShape(t *testing.T) {
	s := NewScorer()

	result, err := s.Analyze(Request{
		Description: "need access to the shared drive",
		RequestID:   "REQ-7",
		Requester:   "student",
		Timestamp:   "2026-08-20T09:00:00Z",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "REQ-7", decoded["request_id"])
	assert.Contains(t, decoded, "priority")
	assert.Contains(t, decoded, "priority_score")
	assert.Contains(t, decoded, "priority_description")
	assert.Contains(t, decoded, "sla")

	analysis, ok := decoded["analysis"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{
		"matched_patterns", "modifiers_applied", "system_found",
		"system_multiplier", "scope_found", "scope_multiplier",
		"urgency_bonus", "urgency_terms", "base_score", "confidence",
	} {
		assert.Contains(t, analysis, key)
	}
	assert.NotNil(t, analysis["matched_patterns"], "empty lists must marshal as [], not null")
	assert.NotNil(t, analysis["urgency_terms"])

	details, ok := decoded["request_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "student", details["requester"])
	assert.Equal(t, "2026-08-20T09:00:00Z", details["timestamp"])
}

func TestAnalyzeBatch(t *testing.T) {
	s := NewScorer()

	batch, err := s.AnalyzeBatch([]Request{
		{Description: "Need to install new software on my laptop", System: "Workstation"},
		{Description: "Production database is down for everyone", System: "Database"},
		{Description: "Minor glitch in application, happens occasionally", System: "Application"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, batch.TotalRequests)
	require.Len(t, batch.Results, 3)

	// Sorted by score, highest first.
	assert.Equal(t, BandCritical, batch.Results[0].Priority)
	assert.Equal(t, "REQ-2", batch.Results[0].RequestID)
	for i := 1; i < len(batch.Results); i++ {
		assert.GreaterOrEqual(t, batch.Results[i-1].Score, batch.Results[i].Score)
	}

	assert.Equal(t, BandCounts{Critical: 1, Routine: 2}, batch.Summary)
}

func TestAnalyzeBatch_PreservesExplicitIDs(t *testing.T) {
	s := NewScorer()

	batch, err := s.AnalyzeBatch([]Request{
		{RequestID: "TICKET-99", Description: "printer jam"},
	})
	require.NoError(t, err)
	assert.Equal(t, "TICKET-99", batch.Results[0].RequestID)
}

func TestAnalyzeBatch_FailsOnMissingDescription(t *testing.T) {
	s := NewScorer()

	_, err := s.AnalyzeBatch([]Request{
		{Description: "printer jam"},
		{System: "Email"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDescription)
	assert.Contains(t, err.Error(), "REQ-2")
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	s := NewScorer()

	batch, err := s.AnalyzeBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.TotalRequests)
	assert.Empty(t, batch.Results)
	assert.Equal(t, BandCounts{}, batch.Summary)
}
