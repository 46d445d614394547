package tone

import (
	"strings"
	"unicode"
)

// Label 表示新闻文本的语气或情感倾向标签。
type Label string

const (
	Neutral     Label = "neutral"
	Alarmist    Label = "alarmist"
	Sensational Label = "sensational"
	Emotional   Label = "emotional"
	Formal      Label = "formal"

	Positive Label = "positive"
	Negative Label = "negative"
)

// Decision 给出词典打分得到的语气与情感结果。Score 为零表示没有可用信号。
type Decision struct {
	Tone      Label
	Sentiment Label
	Score     int
}

var toneBuckets = map[Label][]string{
	Alarmist: {
		"catastrophe", "catastrophic", "collapse", "panic", "doomed", "imminent", "threat", "danger",
		"dangerous", "crisis", "apocalypse", "chaos", "emergency", "warning", "terrifying", "deadly",
	},
	Sensational: {
		"shocking", "unbelievable", "you won't believe", "bombshell", "explosive", "jaw-dropping",
		"insane", "mind-blowing", "exposed", "secret", "stunning", "breaking",
	},
	Emotional: {
		"heartbreaking", "outrage", "outraged", "furious", "devastated", "tragic", "tragedy", "disgusting",
		"shameful", "heartwarming", "tears", "betrayed",
	},
	Formal: {
		"according to", "officials said", "reported", "statement", "spokesperson", "data shows",
		"announced", "confirmed", "study", "survey", "per cent", "percent",
	},
}

var sentimentBuckets = map[Label][]string{
	Positive: {
		"success", "successful", "win", "wins", "improve", "improved", "growth", "recovery", "hope",
		"celebrate", "relief", "praised", "good", "great", "safe", "peace", "agreement",
	},
	Negative: {
		"death", "deaths", "killed", "dead", "injured", "attack", "war", "loss", "decline", "fraud",
		"fake", "scandal", "failure", "crash", "violence", "protest", "riot", "flood", "fire", "bad",
	},
}

// exclamationBoost 感叹号按个数为煽动性语气加分。
const exclamationBoost = 2

// Analyze 根据关键词命中与标点给出语气和情感，无信号时返回 Neutral。
func Analyze(text string) Decision {
	normalized := normalize(text)
	if strings.TrimSpace(normalized) == "" {
		return Decision{Tone: Neutral, Sentiment: Neutral}
	}

	toneScores := score(normalized, toneBuckets)
	if n := strings.Count(text, "!"); n > 1 {
		toneScores[Sensational] += n * exclamationBoost
	}
	sentimentScores := score(normalized, sentimentBuckets)

	toneLabel, toneScore := best(toneScores, []Label{Alarmist, Sensational, Emotional, Formal})
	sentimentLabel, sentimentScore := best(sentimentScores, []Label{Negative, Positive})
	if sentimentScores[Positive] == sentimentScores[Negative] {
		sentimentLabel = Neutral
	}

	return Decision{Tone: toneLabel, Sentiment: sentimentLabel, Score: toneScore + sentimentScore}
}

// normalize 小写化并把标点替换为空格，首尾补空格以便整词匹配。
func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '\'' || r == '’':
			return '\''
		case r == '-':
			return r
		default:
			return ' '
		}
	}, text)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}

func score(normalized string, buckets map[Label][]string) map[Label]int {
	scores := make(map[Label]int, len(buckets))
	for label, keywords := range buckets {
		for _, word := range keywords {
			if strings.Contains(normalized, " "+word+" ") {
				scores[label] += 3
			}
		}
	}
	return scores
}

// best 按 order 顺序打破平局，保证结果确定。
func best(scores map[Label]int, order []Label) (Label, int) {
	bestLabel := Neutral
	bestScore := 0
	for _, label := range order {
		if s := scores[label]; s > bestScore {
			bestLabel = label
			bestScore = s
		}
	}
	return bestLabel, bestScore
}
