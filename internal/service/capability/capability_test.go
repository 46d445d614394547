package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/truthfinder/backend/internal/model/analysis"
	"github.com/zhouzirui/truthfinder/backend/internal/model/social"
	socialsvc "github.com/zhouzirui/truthfinder/backend/internal/service/social"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Name() string { return "stub" }

func (s stubGenerator) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

type stubSearcher struct {
	posts     []social.Post
	err       error
	lastLimit int
}

func (s *stubSearcher) Search(_ context.Context, _ string, limit int) ([]social.Post, error) {
	s.lastLimit = limit
	return s.posts, s.err
}

type namedCapability struct {
	name Name
	fn   func(context.Context, Args) (Result, error)
}

func (n namedCapability) Name() Name { return n.name }

func (n namedCapability) Invoke(ctx context.Context, args Args) (Result, error) {
	return n.fn(ctx, args)
}

func newRegistry(t *testing.T, gen stubGenerator, searcher *stubSearcher) *Registry {
	t.Helper()
	var s socialsvc.Searcher
	if searcher != nil {
		s = searcher
	}
	reg, err := NewRegistry(nil, Builtin(gen, s, nil)...)
	require.NoError(t, err)
	return reg
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(nil, keywordExtractor{}, keywordExtractor{})
	assert.ErrorIs(t, err, ErrDuplicateCapability)
}

func TestRegistryUnknownCapability(t *testing.T) {
	reg := newRegistry(t, stubGenerator{}, nil)
	_, err := reg.Invoke(context.Background(), "translate", Args{})
	assert.ErrorIs(t, err, ErrUnknownCapability)
}

func TestRegistryListsBuiltins(t *testing.T) {
	reg := newRegistry(t, stubGenerator{}, nil)
	assert.Equal(t, []Name{ComposeReport, ExtractKeywords, FactCheck, Sentiment, SocialSearch, Summarize, VerifyStat}, reg.Names())
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg, err := NewRegistry(nil, namedCapability{name: "boom", fn: func(context.Context, Args) (Result, error) {
		panic("nil map write")
	}})
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "boom", nil)
	assert.ErrorIs(t, err, ErrCapabilityPanic)
}

func TestInvokeAllCollectsEachOutcome(t *testing.T) {
	var finished atomic.Int32
	slow := namedCapability{name: "slow", fn: func(ctx context.Context, _ Args) (Result, error) {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
		finished.Add(1)
		return Result{Text: "slow done"}, nil
	}}
	failing := namedCapability{name: "failing", fn: func(context.Context, Args) (Result, error) {
		return Result{}, errors.New("provider down")
	}}

	reg, err := NewRegistry(nil, slow, failing)
	require.NoError(t, err)

	outcomes := reg.InvokeAll(context.Background(), []Call{{Name: "failing"}, {Name: "slow"}, {Name: "missing"}})
	require.Len(t, outcomes, 3)

	assert.Equal(t, Name("failing"), outcomes[0].Name)
	assert.Error(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, "slow done", outcomes[1].Result.Text)
	assert.ErrorIs(t, outcomes[2].Err, ErrUnknownCapability)
	assert.EqualValues(t, 1, finished.Load())
}

func TestInvokeAllRunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	barrier := func(context.Context, Args) (Result, error) {
		wg.Done()
		wg.Wait()
		return Result{Text: "met"}, nil
	}
	reg, err := NewRegistry(nil, namedCapability{name: "a", fn: barrier}, namedCapability{name: "b", fn: barrier})
	require.NoError(t, err)

	done := make(chan []Outcome, 1)
	go func() { done <- reg.InvokeAll(context.Background(), []Call{{Name: "a"}, {Name: "b"}}) }()

	select {
	case outcomes := <-done:
		assert.Equal(t, "met", outcomes[0].Result.Text)
		assert.Equal(t, "met", outcomes[1].Result.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("calls did not run concurrently")
	}
}

func TestSummarizeRequiresText(t *testing.T) {
	reg := newRegistry(t, stubGenerator{reply: "short"}, nil)

	_, err := reg.Invoke(context.Background(), Summarize, Args{})
	assert.ErrorIs(t, err, ErrMissingArgument)

	res, err := reg.Invoke(context.Background(), Summarize, Args{ArgText: "long article"})
	require.NoError(t, err)
	assert.Equal(t, "short", res.Text)
}

func TestFactCheckParsesEmbeddedJSON(t *testing.T) {
	reply := "Here is my analysis:\n```json\n" +
		`{"verdict": "misleading", "credibility_level": "likely_fake", "confidence_score": 0.82, "reasoning": "No outlet confirms it.", "key_findings": ["no sources"]}` +
		"\n```"
	reg := newRegistry(t, stubGenerator{reply: reply}, nil)

	res, err := reg.Invoke(context.Background(), FactCheck, Args{ArgClaim: "the moon is hollow"})
	require.NoError(t, err)

	check, ok := res.Data.(analysis.FactCheck)
	require.True(t, ok)
	assert.Equal(t, "misleading", check.Verdict)
	assert.Equal(t, analysis.LikelyFake, check.Credibility)
	assert.InDelta(t, 0.82, check.Confidence, 1e-9)
	assert.Equal(t, []string{"no sources"}, check.KeyFindings)
	assert.Contains(t, res.Text, "Verdict: misleading (likely_fake, confidence 82%)")
}

func TestParseFactCheckNormalizesFields(t *testing.T) {
	check := ParseFactCheck(`{"credibility_level": "SUPER_TRUE", "confidence_score": 7}`)
	assert.Equal(t, analysis.Questionable, check.Credibility)
	assert.Equal(t, 1.0, check.Confidence)
	assert.Equal(t, "unverified", check.Verdict)
	assert.NotNil(t, check.KeyFindings)
}

func TestParseFactCheckFallback(t *testing.T) {
	check := ParseFactCheck("This claim appears to be fabricated by a parody site.")
	assert.Equal(t, analysis.LikelyFake, check.Credibility)
	assert.Equal(t, 0.5, check.Confidence)
	assert.Equal(t, "likely false", check.Verdict)

	check = ParseFactCheck("Several outlets report the same figures.")
	assert.Equal(t, analysis.Questionable, check.Credibility)
	assert.Equal(t, "unverified", check.Verdict)
}

func TestSentimentLabels(t *testing.T) {
	reg := newRegistry(t, stubGenerator{reply: `{"bias": "left-leaning", "tone": "alarmist", "sentiment": "negative"}`}, nil)

	res, err := reg.Invoke(context.Background(), Sentiment, Args{ArgText: "text"})
	require.NoError(t, err)
	assert.Equal(t, analysis.Sentiment{Bias: "left-leaning", Tone: "alarmist", Sentiment: "negative"}, res.Data)

	reg = newRegistry(t, stubGenerator{reply: "hard to say"}, nil)
	res, err = reg.Invoke(context.Background(), Sentiment, Args{ArgText: "text"})
	require.NoError(t, err)
	assert.Equal(t, "undetermined", res.Data.(analysis.Sentiment).Tone)

	res, err = reg.Invoke(context.Background(), Sentiment, Args{ArgText: "Shocking bombshell: scandal exposed!!"})
	require.NoError(t, err)
	labels := res.Data.(analysis.Sentiment)
	assert.Equal(t, "sensational", labels.Tone)
	assert.Equal(t, "negative", labels.Sentiment)
	assert.Equal(t, "undetermined", labels.Bias)
}

func TestGenerationErrorPropagates(t *testing.T) {
	boom := errors.New("timeout")
	reg := newRegistry(t, stubGenerator{err: boom}, nil)

	for _, name := range []Name{Summarize, Sentiment} {
		_, err := reg.Invoke(context.Background(), name, Args{ArgText: "text"})
		assert.ErrorIs(t, err, boom, name)
	}
	_, err := reg.Invoke(context.Background(), VerifyStat, Args{ArgStat: "90% of people"})
	assert.ErrorIs(t, err, boom)
}

func TestVerifyStat(t *testing.T) {
	reg := newRegistry(t, stubGenerator{reply: `{"status": "Outdated", "reasoning": "Figure is from 2009."}`}, nil)

	res, err := reg.Invoke(context.Background(), VerifyStat, Args{ArgStat: "unemployment is 9%"})
	require.NoError(t, err)
	assert.Equal(t, analysis.StatCheck{Status: "outdated", Reasoning: "Figure is from 2009."}, res.Data)
}

func TestExtractKeywordsIsDeterministic(t *testing.T) {
	text := "Flood warning: the river flood reached the bridge. Bridge closed, flood crews at the river."
	got := ExtractKeywordList(text, 3)
	assert.Equal(t, []string{"flood", "river", "bridge"}, got)
	assert.Equal(t, got, ExtractKeywordList(text, 3))

	reg := newRegistry(t, stubGenerator{}, nil)
	res, err := reg.Invoke(context.Background(), ExtractKeywords, Args{ArgText: "to be or not"})
	require.NoError(t, err)
	assert.Equal(t, "No keywords found.", res.Text)
}

func TestComposeReportEmbedsInputs(t *testing.T) {
	reg := newRegistry(t, stubGenerator{}, nil)

	res, err := reg.Invoke(context.Background(), ComposeReport, Args{
		ArgSummary:  "Storm hit the coast.",
		ArgVerdict:  "Verdict: likely true",
		ArgKeywords: []string{"storm", "coast"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "# Final Report")
	assert.Contains(t, res.Text, "**Summary:** Storm hit the coast.")
	assert.Contains(t, res.Text, "**Verdict:** Verdict: likely true")
	assert.Contains(t, res.Text, "**Keywords:** storm, coast")
}

func TestSocialSearchClampsLimit(t *testing.T) {
	searcher := &stubSearcher{posts: []social.Post{{ID: "1", AuthorUsername: "a", Text: "t"}}}
	reg := newRegistry(t, stubGenerator{}, searcher)

	_, err := reg.Invoke(context.Background(), SocialSearch, Args{ArgQuery: "q", ArgMaxResults: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxSocialResults, searcher.lastLimit)

	_, err = reg.Invoke(context.Background(), SocialSearch, Args{ArgQuery: "q", ArgMaxResults: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.lastLimit)

	res, err := reg.Invoke(context.Background(), SocialSearch, Args{ArgQuery: "q"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSocialResults, searcher.lastLimit)
	assert.Len(t, res.Data, 1)
}

func TestSocialSearchDegradesToEmpty(t *testing.T) {
	reg := newRegistry(t, stubGenerator{}, &stubSearcher{err: errors.New("rate limited")})
	res, err := reg.Invoke(context.Background(), SocialSearch, Args{ArgQuery: "q"})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Empty(t, res.Text)

	reg = newRegistry(t, stubGenerator{}, nil)
	res, err = reg.Invoke(context.Background(), SocialSearch, Args{ArgQuery: "q"})
	require.NoError(t, err)
	posts, ok := res.Data.([]social.Post)
	require.True(t, ok)
	assert.Empty(t, posts)
}

func TestArgsHelpers(t *testing.T) {
	args := Args{"n": "12", "f": 3.0, "list": []any{"a", 1, "b"}, "one": "x"}
	assert.Equal(t, 12, args.Int("n", 0))
	assert.Equal(t, 3, args.Int("f", 0))
	assert.Equal(t, 7, args.Int("missing", 7))
	assert.Equal(t, []string{"a", "b"}, args.Strings("list"))
	assert.Equal(t, []string{"x"}, args.Strings("one"))
	assert.Empty(t, args.String("n2"))
}
