package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/truthfinder/backend/internal/model/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/model/social"
)

// HistoryWindow is how many prior turns are replayed into open generation.
const HistoryWindow = 10

const personaPreamble = "You are TruthFinder, an AI assistant that analyzes news, detects misinformation, summarizes content, " +
	"and explains findings. You never mention Google or Gemini. Stay in character as TruthFinder."

// ConversationPrompt wraps message in the persona preamble and the most recent turns of history.
func ConversationPrompt(history []chat.Turn, message string) string {
	var b strings.Builder
	b.WriteString(personaPreamble)
	b.WriteString("\n")

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	for _, turn := range history {
		b.WriteString(speaker(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", message)
	return b.String()
}

func speaker(role chat.Role) string {
	if role == chat.RoleAgent {
		return "Assistant"
	}
	return "User"
}

// SocialEventPrompt asks for an answer grounded in the user's question and recent posts.
func SocialEventPrompt(question, socialContext string) string {
	return "You are TruthFinder, an AI assistant that analyzes news events using both news and social media data. " +
		"Below is a user question about a recent event, and some recent posts about the topic. " +
		"Use both sources to provide a comprehensive, up-to-date answer.\n\n" +
		"User question: " + question + "\n\n" +
		"Recent posts:\n" + socialContext + "\n\n" +
		"Answer:"
}

// SummarizePrompt asks for a short summary of text.
func SummarizePrompt(text string) string {
	return "You are a summarizer agent. Summarize the following article or news text into a short and clear summary.\n\n" +
		"Text:\n'''" + text + "'''\n\n" +
		"Return a 3-5 sentence summary."
}

// FactCheckPrompt asks for a JSON verdict. socialContext may be empty.
func FactCheckPrompt(claim, socialContext string) string {
	if strings.TrimSpace(socialContext) == "" {
		socialContext = "No social media data available for analysis."
	}
	return `You are an expert fact-checker and news analyst. Analyze the following content for credibility and truthfulness.

CONTENT TO ANALYZE:
` + claim + `

RELATED SOCIAL MEDIA CONTEXT:
` + socialContext + `

Respond with a single JSON object in this format:

{
    "verdict": "short verdict such as real, fake, misleading or unverified",
    "credibility_level": "highly_credible" | "credible" | "questionable" | "likely_fake" | "fake",
    "confidence_score": number between 0 and 1,
    "reasoning": "explanation of your assessment",
    "key_findings": ["finding1", "finding2"]
}`
}

// SentimentPrompt asks for bias, tone and sentiment labels as JSON.
func SentimentPrompt(text string) string {
	return `Analyze the sentiment, tone and possible political bias of the following text.

Text:
'''` + text + `'''

Respond with a single JSON object: {"bias": "...", "tone": "...", "sentiment": "..."}`
}

// VerifyStatPrompt asks whether a statistic is outdated, missing or fabricated.
func VerifyStatPrompt(stat string) string {
	return `Check whether the following statistic or number is accurate, outdated, missing context or fabricated.

Statistic:
'''` + stat + `'''

Respond with a single JSON object: {"status": "accurate" | "outdated" | "misleading" | "fabricated" | "unknown", "reasoning": "..."}`
}

// RenderPosts formats posts as numbered context lines for prompts.
func RenderPosts(posts []social.Post) string {
	var b strings.Builder
	for i, post := range posts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Post %d by @%s: %s\nEngagement: %d likes, %d reposts",
			i+1, post.AuthorUsername, post.Text, post.Metrics.LikeCount, post.Metrics.RetweetCount)
	}
	return b.String()
}
