package priority

import "regexp"

// Scoring weights and banding thresholds.
const (
	criticalMatchScore = 10.0
	highMatchScore     = 6.0
	mediumMatchScore   = 3.0

	criticalThreshold = 40.0
	highThreshold     = 25.0
	mediumThreshold   = 12.0
	lowThreshold      = 5.0

	// negationWindow is how many tokens before a keyword are scanned for a
	// negation word.
	negationWindow = 3

	// maxReportedPatterns caps the matched-pattern list in results; the full
	// count still drives the confidence rating.
	maxReportedPatterns = 10
)

// patternGroup is one semantic category of trigger phrases. Phrases match as
// substrings of the lowercased description+system text, so "occasional" also
// fires on "occasionally".
type patternGroup struct {
	category string
	phrases  []string
}

// weightedTerm maps a keyword to its impact multiplier. Order matters: when
// two terms tie, the earlier one is reported.
type weightedTerm struct {
	term   string
	weight float64
}

// modifier scales the raw pattern score when its word appears anywhere in
// the text. Every matching modifier applies, in table order.
type modifier struct {
	word       string
	multiplier float64
}

// urgencyRule adds a flat bonus when its expression matches.
type urgencyRule struct {
	re    *regexp.Regexp
	bonus float64
	label string
}

var defaultCriticalPatterns = []patternGroup{
	{"outage", []string{"down", "outage", "offline", "unavailable", "crashed", "not responding"}},
	{"security", []string{"breach", "hacked", "ransomware", "malware", "virus", "unauthorized access"}},
	{"data_loss", []string{"data loss", "deleted", "corrupted", "backup failed", "cannot recover"}},
	{"emergency", []string{"emergency", "urgent", "critical", "fire", "flood", "gas leak", "electrical hazard"}},
	{"access_blocked", []string{"cannot access", "locked out", "denied", "blocked", "forbidden"}},
	{"total_failure", []string{"complete failure", "total loss", "entire system", "all services"}},
}

var defaultHighPatterns = []patternGroup{
	{"major_error", []string{"error", "failing", "broken", "not working", "malfunctioning"}},
	{"performance", []string{"very slow", "extremely slow", "timeout", "hanging", "freezing"}},
	{"connectivity", []string{"connection", "network issue", "vpn", "cannot connect"}},
	{"auth_issues", []string{"cannot login", "login failed", "password", "authentication"}},
	{"facility_urgent", []string{"water leak", "leaking", "hvac", "no cooling", "no heating", "pipe burst"}},
}

var defaultMediumPatterns = []patternGroup{
	{"requests", []string{"install", "upgrade", "update", "configure", "setup"}},
	{"minor_issues", []string{"sometimes", "intermittent", "occasional", "glitch"}},
	{"access_request", []string{"need access", "request access", "permission"}},
}

// Negation words that suppress a critical or high keyword when they appear
// within negationWindow tokens before it.
var defaultNegations = map[string]bool{
	"not":     true,
	"no":      true,
	"none":    true,
	"neither": true,
	"never":   true,
	"nobody":  true,
}

var defaultIntensifiers = []modifier{
	{"extreme", 2.0},
	{"critical", 1.8},
	{"severe", 1.7},
	{"major", 1.6},
	{"urgent", 1.5},
	{"serious", 1.4},
	{"important", 1.3},
	{"significant", 1.3},
}

var defaultDiminishers = []modifier{
	{"minor", 0.6},
	{"small", 0.7},
	{"slight", 0.7},
	{"little", 0.8},
	{"maybe", 0.8},
	{"possibly", 0.8},
	{"occasionally", 0.7},
}

var defaultSystemWeights = []weightedTerm{
	{"production", 2.5},
	{"prod", 2.5},
	{"live", 2.3},
	{"database", 2.2},
	{"db", 2.2},
	{"server", 2.0},
	{"network", 2.0},
	{"security", 2.3},
	{"firewall", 2.2},
	{"domain controller", 2.2},
	{"active directory", 2.1},
	{"backup", 2.0},
	{"email", 1.8},
	{"vpn", 1.8},
	{"web", 1.7},
	{"application", 1.5},
	{"app", 1.5},
	{"workstation", 1.3},
	{"laptop", 1.2},
	{"desktop", 1.2},
	{"printer", 1.1},
	{"scanner", 1.1},
	{"building", 2.0},
	{"infrastructure", 1.9},
	{"facility", 1.8},
	{"data center", 2.5},
	{"server room", 2.3},
	{"electrical", 2.2},
	{"hvac", 2.0},
	{"plumbing", 1.9},
	{"basement", 1.6},
}

var defaultScopeWeights = []weightedTerm{
	{"all users", 3.0},
	{"everyone", 3.0},
	{"entire company", 3.0},
	{"entire department", 2.5},
	{"whole team", 2.3},
	{"department", 2.2},
	{"multiple users", 2.0},
	{"several users", 1.8},
	{"team", 1.7},
	{"few users", 1.3},
	{"one user", 1.0},
}

var defaultUrgencyRules = []urgencyRule{
	{
		re:    regexp.MustCompile(`\b(emergency|urgent|critical|asap|immediately|right now)\b`),
		bonus: 5.0,
		label: "emergency|urgent|critical|asap|immediately|right now",
	},
	{
		re:    regexp.MustCompile(`\b(can't work|cannot work|blocking|stopped|stuck)\b`),
		bonus: 4.0,
		label: "can't work|cannot work|blocking|stopped|stuck",
	},
	{
		re:    regexp.MustCompile(`\b(today|this morning|this afternoon|now)\b`),
		bonus: 2.5,
		label: "today|this morning|this afternoon|now",
	},
	{
		re:    regexp.MustCompile(`\b(soon|quickly|priority|important)\b`),
		bonus: 1.5,
		label: "soon|quickly|priority|important",
	},
}

// nonAlnum strips everything but lowercase alphanumerics and whitespace when
// building the token slice used for negation lookback.
var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)
