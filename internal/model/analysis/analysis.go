package analysis

// CredibilityLevel grades how trustworthy a claim looks.
type CredibilityLevel string

const (
	HighlyCredible CredibilityLevel = "highly_credible"
	Credible       CredibilityLevel = "credible"
	Questionable   CredibilityLevel = "questionable"
	LikelyFake     CredibilityLevel = "likely_fake"
	Fake           CredibilityLevel = "fake"
)

// Valid reports whether l is one of the known levels.
func (l CredibilityLevel) Valid() bool {
	switch l {
	case HighlyCredible, Credible, Questionable, LikelyFake, Fake:
		return true
	}
	return false
}

// FactCheck is the structured verdict for a claim.
type FactCheck struct {
	Verdict     string           `json:"verdict"`
	Credibility CredibilityLevel `json:"credibility_level"`
	Confidence  float64          `json:"confidence_score"`
	Reasoning   string           `json:"reasoning"`
	KeyFindings []string         `json:"key_findings"`
}

// Sentiment labels the bias, tone and polarity of a text.
type Sentiment struct {
	Bias      string `json:"bias"`
	Tone      string `json:"tone"`
	Sentiment string `json:"sentiment"`
}

// StatCheck is the verdict for a single statistic.
type StatCheck struct {
	Status    string `json:"status"`
	Reasoning string `json:"reasoning"`
}

// Report is the outcome of the standalone content analysis endpoint.
type Report struct {
	FactCheck *FactCheck `json:"fact_check,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Language  string     `json:"language"`
	Status    string     `json:"status"`
	Errors    []string   `json:"errors,omitempty"`
}

const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)
