package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/analysis/tone"
	"github.com/zhouzirui/truthfinder/backend/internal/model/analysis"
	"github.com/zhouzirui/truthfinder/backend/internal/model/social"
	"github.com/zhouzirui/truthfinder/backend/internal/service/ai"
	socialsvc "github.com/zhouzirui/truthfinder/backend/internal/service/social"
)

const (
	DefaultSocialResults = 10
	MaxSocialResults     = 100
)

// Builtin returns every built-in capability. searcher may be nil when no
// social provider is configured.
func Builtin(gen ai.Generator, searcher socialsvc.Searcher, logger *zap.Logger) []Capability {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []Capability{
		&summarizer{gen: gen},
		&factChecker{gen: gen},
		&sentimentAnalyzer{gen: gen},
		keywordExtractor{},
		&statVerifier{gen: gen},
		reportComposer{},
		&socialSearcher{searcher: searcher, logger: logger.Named("social_search")},
	}
}

type summarizer struct{ gen ai.Generator }

func (*summarizer) Name() Name { return Summarize }

func (s *summarizer) Invoke(ctx context.Context, args Args) (Result, error) {
	text, err := args.require(ArgText)
	if err != nil {
		return Result{}, err
	}
	summary, err := s.gen.Generate(ctx, ai.SummarizePrompt(text))
	if err != nil {
		return Result{}, err
	}
	return Result{Text: summary, Data: summary}, nil
}

type factChecker struct{ gen ai.Generator }

func (*factChecker) Name() Name { return FactCheck }

func (f *factChecker) Invoke(ctx context.Context, args Args) (Result, error) {
	claim, err := args.require(ArgClaim)
	if err != nil {
		return Result{}, err
	}
	raw, err := f.gen.Generate(ctx, ai.FactCheckPrompt(claim, args.String(ArgContext)))
	if err != nil {
		return Result{}, err
	}

	check := ParseFactCheck(raw)
	return Result{Text: RenderFactCheck(check), Data: check}, nil
}

// ParseFactCheck reads the JSON object embedded in raw, falling back to a
// keyword heuristic when no valid object is present.
func ParseFactCheck(raw string) analysis.FactCheck {
	var parsed struct {
		Verdict     string   `json:"verdict"`
		Credibility string   `json:"credibility_level"`
		Confidence  *float64 `json:"confidence_score"`
		Reasoning   string   `json:"reasoning"`
		KeyFindings []string `json:"key_findings"`
	}

	if obj, ok := embeddedJSON(raw); ok && json.Unmarshal([]byte(obj), &parsed) == nil {
		check := analysis.FactCheck{
			Verdict:     strings.TrimSpace(parsed.Verdict),
			Credibility: analysis.CredibilityLevel(strings.ToLower(strings.TrimSpace(parsed.Credibility))),
			Confidence:  0.5,
			Reasoning:   strings.TrimSpace(parsed.Reasoning),
			KeyFindings: parsed.KeyFindings,
		}
		if !check.Credibility.Valid() {
			check.Credibility = analysis.Questionable
		}
		if parsed.Confidence != nil {
			check.Confidence = clamp01(*parsed.Confidence)
		}
		if check.Verdict == "" {
			check.Verdict = verdictFor(check.Credibility)
		}
		if check.Reasoning == "" {
			check.Reasoning = "Analysis completed"
		}
		if check.KeyFindings == nil {
			check.KeyFindings = []string{}
		}
		return check
	}

	return fallbackFactCheck(raw)
}

func fallbackFactCheck(raw string) analysis.FactCheck {
	lower := strings.ToLower(raw)
	level := analysis.Questionable
	for _, marker := range []string{"fake", "false", "misleading", "fabricated"} {
		if strings.Contains(lower, marker) {
			level = analysis.LikelyFake
			break
		}
	}

	reasoning := strings.TrimSpace(raw)
	if runes := []rune(reasoning); len(runes) > 500 {
		reasoning = string(runes[:500]) + "..."
	}
	if reasoning == "" {
		reasoning = "The analysis did not return a readable verdict."
	}

	return analysis.FactCheck{
		Verdict:     verdictFor(level),
		Credibility: level,
		Confidence:  0.5,
		Reasoning:   reasoning,
		KeyFindings: []string{},
	}
}

func verdictFor(level analysis.CredibilityLevel) string {
	switch level {
	case analysis.HighlyCredible, analysis.Credible:
		return "likely true"
	case analysis.LikelyFake, analysis.Fake:
		return "likely false"
	default:
		return "unverified"
	}
}

// RenderFactCheck formats a verdict for chat output.
func RenderFactCheck(check analysis.FactCheck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verdict: %s (%s, confidence %.0f%%)\n", check.Verdict, check.Credibility, check.Confidence*100)
	b.WriteString("Reasoning: ")
	b.WriteString(check.Reasoning)
	for _, finding := range check.KeyFindings {
		b.WriteString("\n- ")
		b.WriteString(finding)
	}
	return b.String()
}

const undetermined = "undetermined"

type sentimentAnalyzer struct{ gen ai.Generator }

func (*sentimentAnalyzer) Name() Name { return Sentiment }

func (s *sentimentAnalyzer) Invoke(ctx context.Context, args Args) (Result, error) {
	text, err := args.require(ArgText)
	if err != nil {
		return Result{}, err
	}
	raw, err := s.gen.Generate(ctx, ai.SentimentPrompt(text))
	if err != nil {
		return Result{}, err
	}

	labels := analysis.Sentiment{Bias: undetermined, Tone: undetermined, Sentiment: undetermined}
	if obj, ok := embeddedJSON(raw); ok {
		var parsed analysis.Sentiment
		if json.Unmarshal([]byte(obj), &parsed) == nil {
			labels.Bias = orDefault(parsed.Bias, labels.Bias)
			labels.Tone = orDefault(parsed.Tone, labels.Tone)
			labels.Sentiment = orDefault(parsed.Sentiment, labels.Sentiment)
		}
	}
	// labels the model left out come from the lexicon
	if lexicon := tone.Analyze(text); lexicon.Score > 0 {
		if labels.Tone == undetermined {
			labels.Tone = string(lexicon.Tone)
		}
		if labels.Sentiment == undetermined {
			labels.Sentiment = string(lexicon.Sentiment)
		}
	}

	text = fmt.Sprintf("Bias: %s\nTone: %s\nSentiment: %s", labels.Bias, labels.Tone, labels.Sentiment)
	return Result{Text: text, Data: labels}, nil
}

type keywordExtractor struct{}

func (keywordExtractor) Name() Name { return ExtractKeywords }

func (keywordExtractor) Invoke(_ context.Context, args Args) (Result, error) {
	text, err := args.require(ArgText)
	if err != nil {
		return Result{}, err
	}

	keywords := ExtractKeywordList(text, args.Int(ArgMaxItems, DefaultMaxKeywords))
	if len(keywords) == 0 {
		return Result{Text: "No keywords found.", Data: keywords}, nil
	}
	return Result{Text: "Keywords: " + strings.Join(keywords, ", "), Data: keywords}, nil
}

type statVerifier struct{ gen ai.Generator }

func (*statVerifier) Name() Name { return VerifyStat }

func (s *statVerifier) Invoke(ctx context.Context, args Args) (Result, error) {
	stat, err := args.require(ArgStat)
	if err != nil {
		return Result{}, err
	}
	raw, err := s.gen.Generate(ctx, ai.VerifyStatPrompt(stat))
	if err != nil {
		return Result{}, err
	}

	check := analysis.StatCheck{Status: "unknown", Reasoning: strings.TrimSpace(raw)}
	if obj, ok := embeddedJSON(raw); ok {
		var parsed analysis.StatCheck
		if json.Unmarshal([]byte(obj), &parsed) == nil {
			check.Status = orDefault(strings.ToLower(parsed.Status), check.Status)
			check.Reasoning = orDefault(parsed.Reasoning, check.Reasoning)
		}
	}

	return Result{Text: fmt.Sprintf("Status: %s\nReasoning: %s", check.Status, check.Reasoning), Data: check}, nil
}

type reportComposer struct{}

func (reportComposer) Name() Name { return ComposeReport }

func (reportComposer) Invoke(_ context.Context, args Args) (Result, error) {
	summary := orDefault(args.String(ArgSummary), "Not available.")
	verdict := orDefault(args.String(ArgVerdict), "Not available.")
	keywords := args.Strings(ArgKeywords)

	keywordLine := "None."
	if len(keywords) > 0 {
		keywordLine = strings.Join(keywords, ", ")
	}

	report := "# Final Report\n\n" +
		"**Summary:** " + summary + "\n\n" +
		"**Verdict:** " + verdict + "\n\n" +
		"**Keywords:** " + keywordLine + "\n"
	return Result{Text: report, Data: report}, nil
}

type socialSearcher struct {
	searcher socialsvc.Searcher
	logger   *zap.Logger
}

func (*socialSearcher) Name() Name { return SocialSearch }

// Invoke never fails on provider trouble; it logs and returns no posts.
func (s *socialSearcher) Invoke(ctx context.Context, args Args) (Result, error) {
	query, err := args.require(ArgQuery)
	if err != nil {
		return Result{}, err
	}

	limit := args.Int(ArgMaxResults, DefaultSocialResults)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSocialResults {
		limit = MaxSocialResults
	}

	posts := []social.Post{}
	switch {
	case s.searcher == nil:
		s.logger.Warn("social provider not configured, returning no posts")
	default:
		found, err := s.searcher.Search(ctx, query, limit)
		if err != nil {
			s.logger.Warn("social search failed, returning no posts", zap.Error(err))
			break
		}
		if len(found) > limit {
			found = found[:limit]
		}
		if len(found) == 0 {
			s.logger.Info("social search returned no posts", zap.String("query", query))
		}
		posts = append(posts, found...)
	}

	return Result{Text: RenderPostList(posts), Data: posts}, nil
}

// RenderPostList formats posts as a markdown list. It returns "" when posts is empty.
func RenderPostList(posts []social.Post) string {
	var b strings.Builder
	for i, post := range posts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- @%s: %s", post.AuthorUsername, post.Text)
		if post.URL != "" {
			fmt.Fprintf(&b, " (%s)", post.URL)
		}
	}
	return b.String()
}

// embeddedJSON returns the span from the first '{' to the last '}'.
func embeddedJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
