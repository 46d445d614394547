package guardrail

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxInputLength bounds sanitized input, counted in runes.
const MaxInputLength = 2000

// RedactedOutput replaces generated text that trips the denylist.
const RedactedOutput = "This response was withheld because it touched on unsafe content."

// Reason classifies why a message was rejected.
type Reason string

const (
	ReasonEmpty           Reason = "empty"
	ReasonBlockedContent  Reason = "blocked_content"
	ReasonPromptInjection Reason = "prompt_injection"
)

var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrBlockedContent  = errors.New("message contains blocked content")
	ErrPromptInjection = errors.New("message looks like a prompt injection attempt")
)

var reasonErrors = map[Reason]error{
	ReasonEmpty:           ErrEmptyMessage,
	ReasonBlockedContent:  ErrBlockedContent,
	ReasonPromptInjection: ErrPromptInjection,
}

// ReasonOf maps a rejection error back to its reason.
func ReasonOf(err error) (Reason, bool) {
	for reason, sentinel := range reasonErrors {
		if errors.Is(err, sentinel) {
			return reason, true
		}
	}
	return "", false
}

// Verdict is the outcome of Validate. A zero Reason means the text was accepted.
type Verdict struct {
	Text   string
	Reason Reason
}

// Accepted reports whether the message may proceed to routing.
func (v Verdict) Accepted() bool {
	return v.Reason == ""
}

// Err returns the sentinel error for a rejected verdict, nil otherwise.
func (v Verdict) Err() error {
	if v.Accepted() {
		return nil
	}
	return reasonErrors[v.Reason]
}

var defaultDenylist = []string{
	"how to make a bomb",
	"build a bomb",
	"make explosives",
	"pipe bomb",
	"child sexual abuse",
	"child porn",
	"suicide method",
	"how to kill myself",
	"self-harm instructions",
	"buy stolen credit cards",
	"credit card dump",
	"synthesize meth",
	"nerve agent recipe",
	"join isis",
}

var defaultInjectionPatterns = []string{
	`ignore\s+(all\s+|any\s+)?(of\s+)?(the\s+|your\s+)?(previous|prior|above|earlier)\s+(instructions|prompts|rules)`,
	`disregard\s+(all\s+|any\s+)?(of\s+)?(the\s+|your\s+)?(previous|prior|above|earlier|your)\s+(instructions|prompts|rules)`,
	`forget\s+(all\s+)?(your|the|previous)\s+(instructions|rules)`,
	`\byou\s+are\s+now\b`,
	`\bpretend\s+(to\s+be|you\s+are)\b`,
	`\bact\s+as\s+if\s+you\b`,
	`(reveal|print|show)\s+(me\s+)?(your|the)\s+system\s+prompt`,
	`\[\s*(system|inst|instruction|instructions|admin|developer|assistant|override|jailbreak)\b[^\]]*\]`,
	`<<\s*sys\s*>>`,
	`\bdan\s+mode\b`,
}

// Filter validates chat input against a denylist and manipulation patterns.
// It holds no mutable state and is safe for concurrent use.
type Filter struct {
	denylist []string
	patterns []*regexp.Regexp
}

// New builds a Filter from the built-in lists extended by policy.
func New(policy Policy) (*Filter, error) {
	denylist := make([]string, 0, len(defaultDenylist)+len(policy.Denylist))
	for _, term := range append(append([]string(nil), defaultDenylist...), policy.Denylist...) {
		term = foldSpace(strings.ToLower(term))
		if term != "" {
			denylist = append(denylist, term)
		}
	}

	sources := append(append([]string(nil), defaultInjectionPatterns...), policy.InjectionPatterns...)
	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("invalid injection pattern %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}

	return &Filter{denylist: denylist, patterns: patterns}, nil
}

// Default returns a Filter with only the built-in lists.
func Default() *Filter {
	f, err := New(Policy{})
	if err != nil {
		panic(err)
	}
	return f
}

// Sanitize strips control and markup characters and truncates to MaxInputLength runes.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	count := 0
	for _, r := range raw {
		if count >= MaxInputLength {
			break
		}
		if stripped(r) {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

func stripped(r rune) bool {
	switch r {
	case '\n', '\t':
		return false
	case '<', '>', '"', unicode.ReplacementChar:
		return true
	}
	// zero-width and bidi controls are Cf
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}

// Validate classifies sanitized text. Order: empty, blocked content, prompt injection.
func (f *Filter) Validate(cleaned string) Verdict {
	trimmed := strings.TrimSpace(cleaned)
	if trimmed == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	if f.blocked(trimmed) {
		return Verdict{Reason: ReasonBlockedContent}
	}
	for _, re := range f.patterns {
		if re.MatchString(trimmed) {
			return Verdict{Reason: ReasonPromptInjection}
		}
	}
	return Verdict{Text: cleaned}
}

// FilterOutput replaces the entire output with RedactedOutput when it contains blocked content.
func (f *Filter) FilterOutput(text string) string {
	if f.blocked(text) {
		return RedactedOutput
	}
	return text
}

// foldSpace collapses every whitespace run to a single space.
func foldSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (f *Filter) blocked(text string) bool {
	lowered := foldSpace(strings.ToLower(text))
	for _, term := range f.denylist {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
