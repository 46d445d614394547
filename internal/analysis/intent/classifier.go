package intent

import (
	"strings"
	"unicode"
)

// Decision 表示一条消息的路由意图，每条消息恰好一个。
type Decision string

const (
	Memory       Decision = "memory"
	Identity     Decision = "identity"
	Greeting     Decision = "greeting"
	Summarize    Decision = "summarize"
	VerifyStat   Decision = "verify_stat"
	FactCheck    Decision = "fact_check"
	Bias         Decision = "bias"
	Investigate  Decision = "investigate"
	Report       Decision = "report"
	Keywords     Decision = "keywords"
	SocialEvent  Decision = "social_event"
	SocialSearch Decision = "social_search"
	Fallback     Decision = "fallback"
)

// rule 是一组关键词及其命中时的意图。
type rule struct {
	decision Decision
	keywords []string
}

// rules 按优先级排列，第一个命中的规则获胜。
var rules = []rule{
	{Identity, []string{
		"who are you", "what are you", "what's your name", "what is your name", "tell me about yourself",
		"who is truthfinder", "what is truthfinder", "what is your work", "what is your purpose", "who made you",
	}},
	{Greeting, []string{"hello", "hi", "hey", "salaam", "assalam", "greetings", "good morning", "good evening"}},
	{Summarize, []string{"summarize", "summarise", "summary", "short version", "tl;dr", "tldr"}},
	{VerifyStat, []string{"statistic", "statistics", "stat", "verify stat", "this number", "these numbers"}},
	{FactCheck, []string{
		"fact check", "fact-check", "factcheck", "is it true", "is this true", "verify", "real or fake",
		"true or false", "debunk",
	}},
	{Bias, []string{"bias", "biased", "political bias", "tone", "sentiment"}},
	{Investigate, []string{"investigate", "investigation", "deep check", "dig into"}},
	{Report, []string{"report", "generate report", "final report"}},
	{Keywords, []string{"keywords", "keyword", "extract", "entities"}},
	{SocialEvent, []string{
		"news", "breaking", "happened", "event", "incident", "attack", "war", "earthquake", "election",
		"trending", "protest", "riot", "conflict", "explosion", "disaster", "crisis", "shooting", "flood",
		"storm", "fire", "accident", "strike", "emergency", "headline", "article", "misinformation", "fake",
	}},
	{SocialSearch, []string{"twitter", "tweet", "tweets", "social media"}},
}

var normalizedRules = func() []rule {
	out := make([]rule, len(rules))
	for i, r := range rules {
		keywords := make([]string, 0, len(r.keywords))
		for _, kw := range r.keywords {
			keywords = append(keywords, " "+Normalize(kw)+" ")
		}
		out[i] = rule{decision: r.decision, keywords: keywords}
	}
	return out
}()

// Classification 是分类结果。只有 Decision 为 Memory 时 Memory 字段有效。
type Classification struct {
	Decision Decision
	Memory   MemoryOp
}

// Classify 对已清洗的文本做确定性分类：记忆句式优先，然后按规则表顺序匹配整词或短语。
func Classify(text string) Classification {
	if op, ok := ParseMemory(text); ok {
		return Classification{Decision: Memory, Memory: op}
	}
	return Classification{Decision: Match(text)}
}

// Match 只做关键词规则匹配，不考虑记忆句式。
func Match(text string) Decision {
	padded := " " + Normalize(text) + " "
	if strings.TrimSpace(padded) == "" {
		return Fallback
	}

	for _, r := range normalizedRules {
		for _, kw := range r.keywords {
			if strings.Contains(padded, kw) {
				return r.decision
			}
		}
	}
	return Fallback
}

// Normalize 转小写，把除字母、数字和撇号以外的字符折叠为单个空格。
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case r == '\'' || r == '’':
			b.WriteRune('\'')
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
