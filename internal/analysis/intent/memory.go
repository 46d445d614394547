package intent

import (
	"regexp"
	"strings"
)

// MemoryKind 区分记住与回忆。
type MemoryKind string

const (
	Remember MemoryKind = "remember"
	Recall   MemoryKind = "recall"
)

// LocationKey 是居住地事实使用的键。
const LocationKey = "location"

const maxValueWords = 5

// MemoryOp 描述一次会话事实的读写。Key 使用下划线连接的小写形式。
type MemoryOp struct {
	Kind  MemoryKind
	Key   string
	Value string
}

var (
	recallLocationPattern = regexp.MustCompile(`(?i)^(?:where do i live|where am i from)$`)
	recallPattern         = regexp.MustCompile(`(?i)^what(?:'s|’s| is) my ([a-z]+(?: [a-z]+)?)$`)
	locationPattern       = regexp.MustCompile(`(?i)^(?:i live in|i am from|i'm from|i’m from) (.+)$`)
	rememberPattern       = regexp.MustCompile(`(?i)^my ([a-z]+(?: [a-z]+)?) is (.+)$`)
	valuePattern          = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}' .-]*$`)
)

// ParseMemory 识别锚定在整句上的记忆句式，例如 "my favorite color is blue"、
// "i live in Lahore"、"what is my favorite color"。键最多两个词，值最多五个词。
func ParseMemory(text string) (MemoryOp, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, ".!? ")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return MemoryOp{}, false
	}

	if recallLocationPattern.MatchString(s) {
		return MemoryOp{Kind: Recall, Key: LocationKey}, true
	}

	if m := recallPattern.FindStringSubmatch(s); m != nil {
		return MemoryOp{Kind: Recall, Key: factKey(m[1])}, true
	}

	if m := locationPattern.FindStringSubmatch(s); m != nil {
		if value, ok := factValue(m[1]); ok {
			return MemoryOp{Kind: Remember, Key: LocationKey, Value: value}, true
		}
		return MemoryOp{}, false
	}

	if m := rememberPattern.FindStringSubmatch(s); m != nil {
		if value, ok := factValue(m[2]); ok {
			return MemoryOp{Kind: Remember, Key: factKey(m[1]), Value: value}, true
		}
	}

	return MemoryOp{}, false
}

// Label 把键还原为可读形式。
func (op MemoryOp) Label() string {
	return strings.ReplaceAll(op.Key, "_", " ")
}

func factKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}

func factValue(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || len(strings.Fields(value)) > maxValueWords || !valuePattern.MatchString(value) {
		return "", false
	}
	return value, true
}
