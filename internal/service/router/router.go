package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/analysis/intent"
	"github.com/zhouzirui/truthfinder/backend/internal/model/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/model/social"
	"github.com/zhouzirui/truthfinder/backend/internal/service/ai"
	"github.com/zhouzirui/truthfinder/backend/internal/service/capability"
)

// Fixed responses.
const (
	IdentityResponse = "I am TruthFinder, your AI-powered news assistant. " +
		"I specialize in summarizing, fact-checking, bias detection, investigation, and generating reports " +
		"on news articles or claims. I aim to help people spot misinformation and make informed decisions."
	GreetingResponse = "Hello! I'm TruthFinder. How can I help you with news, fact-checking, or analysis today?"

	// GenerationFailedResponse replaces failed or empty open generation.
	GenerationFailedResponse = "Sorry, this topic seems too sensitive for the AI to respond to. " +
		"Please try rephrasing or ask about something else."
	// CapabilityFailedResponse replaces a failed capability or any other routing failure.
	CapabilityFailedResponse = "Sorry, something went wrong while processing your request. Please try again shortly."

	NoSocialData = "No relevant social media posts found."
)

const (
	summaryPlaceholder  = "Summary unavailable."
	verdictPlaceholder  = "Verdict unavailable."
	keywordsPlaceholder = "unavailable"
	socialEventResults  = 10
)

// Invoker runs a named capability.
type Invoker interface {
	Invoke(ctx context.Context, name capability.Name, args capability.Args) (capability.Result, error)
}

// Request is one sanitized message plus a snapshot of its session.
type Request struct {
	Text    string
	History []chat.Turn
	Facts   map[string]string
}

// Outcome is the routing decision and the text to send back. Remember holds
// facts the caller should store for the session.
type Outcome struct {
	Decision     intent.Decision
	Response     string
	Capabilities []capability.Name
	Remember     map[string]string
}

// Router maps a message to exactly one decision and produces its response.
// It holds no session state.
type Router struct {
	caps   Invoker
	gen    ai.Generator
	logger *zap.Logger
}

// New creates a Router.
func New(caps Invoker, gen ai.Generator, logger *zap.Logger) *Router {
	if gen == nil {
		gen = ai.Unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{caps: caps, gen: gen, logger: logger}
}

// Route never fails. Provider errors and panics become fixed responses.
func (r *Router) Route(ctx context.Context, req Request) (out Outcome) {
	classification := intent.Classify(req.Text)
	out.Decision = classification.Decision

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("router panicked", zap.String("decision", string(out.Decision)), zap.Any("panic", p))
			out.Response = CapabilityFailedResponse
			out.Remember = nil
		}
	}()

	switch classification.Decision {
	case intent.Memory:
		out.Response, out.Remember = r.memory(classification.Memory, req.Facts)
	case intent.Identity:
		out.Response = IdentityResponse
	case intent.Greeting:
		out.Response = GreetingResponse
	case intent.Summarize:
		out.Response = r.single(ctx, &out, capability.Summarize, capability.Args{capability.ArgText: req.Text})
	case intent.FactCheck:
		out.Response = r.single(ctx, &out, capability.FactCheck, capability.Args{capability.ArgClaim: req.Text})
	case intent.Bias:
		out.Response = r.single(ctx, &out, capability.Sentiment, capability.Args{capability.ArgText: req.Text})
	case intent.Keywords:
		out.Response = r.single(ctx, &out, capability.ExtractKeywords, capability.Args{capability.ArgText: req.Text})
	case intent.VerifyStat:
		out.Response = r.single(ctx, &out, capability.VerifyStat, capability.Args{capability.ArgStat: req.Text})
	case intent.Report:
		out.Response = r.report(ctx, &out, req.Text)
	case intent.Investigate:
		out.Response = r.investigate(ctx, &out, req.Text)
	case intent.SocialEvent:
		out.Response = r.socialEvent(ctx, &out, req.Text)
	case intent.SocialSearch:
		out.Response = r.socialSearch(ctx, &out, req.Text)
	default:
		out.Response = r.generate(ctx, ai.ConversationPrompt(req.History, req.Text))
	}

	r.logger.Debug("routed message",
		zap.String("decision", string(out.Decision)),
		zap.Int("capabilities", len(out.Capabilities)))
	return out
}

func (r *Router) invoke(ctx context.Context, out *Outcome, name capability.Name, args capability.Args) (capability.Result, error) {
	out.Capabilities = append(out.Capabilities, name)
	return r.caps.Invoke(ctx, name, args)
}

func (r *Router) single(ctx context.Context, out *Outcome, name capability.Name, args capability.Args) string {
	res, err := r.invoke(ctx, out, name, args)
	if err != nil || strings.TrimSpace(res.Text) == "" {
		return CapabilityFailedResponse
	}
	return res.Text
}

func (r *Router) generate(ctx context.Context, prompt string) string {
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("generation failed", zap.Error(err))
		return GenerationFailedResponse
	}
	if text = strings.TrimSpace(text); text == "" {
		return GenerationFailedResponse
	}
	return text
}

// report runs summarize, fact_check, extract_keywords and compose_report in
// order. Each stage sees the earlier results; a failed stage leaves a placeholder.
func (r *Router) report(ctx context.Context, out *Outcome, text string) string {
	summary := summaryPlaceholder
	if res, err := r.invoke(ctx, out, capability.Summarize, capability.Args{capability.ArgText: text}); err == nil && res.Text != "" {
		summary = res.Text
	}

	verdict := verdictPlaceholder
	if res, err := r.invoke(ctx, out, capability.FactCheck, capability.Args{
		capability.ArgClaim:   text,
		capability.ArgContext: "Summary: " + summary,
	}); err == nil && res.Text != "" {
		verdict = res.Text
	}

	keywords := []string{keywordsPlaceholder}
	if res, err := r.invoke(ctx, out, capability.ExtractKeywords, capability.Args{
		capability.ArgText: text + "\n" + summary,
	}); err == nil {
		if list, ok := res.Data.([]string); ok && len(list) > 0 {
			keywords = list
		}
	}

	res, err := r.invoke(ctx, out, capability.ComposeReport, capability.Args{
		capability.ArgSummary:  summary,
		capability.ArgVerdict:  verdict,
		capability.ArgKeywords: keywords,
	})
	if err != nil || res.Text == "" {
		return CapabilityFailedResponse
	}
	return res.Text
}

func (r *Router) searchPosts(ctx context.Context, out *Outcome, query string, limit int) []social.Post {
	res, err := r.invoke(ctx, out, capability.SocialSearch, capability.Args{
		capability.ArgQuery:      query,
		capability.ArgMaxResults: limit,
	})
	if err != nil {
		return nil
	}
	posts, _ := res.Data.([]social.Post)
	return posts
}

// investigate gathers social context before fact-checking.
func (r *Router) investigate(ctx context.Context, out *Outcome, text string) string {
	posts := r.searchPosts(ctx, out, text, capability.DefaultSocialResults)

	socialContext := NoSocialData
	if len(posts) > 0 {
		socialContext = ai.RenderPosts(posts)
	}

	res, err := r.invoke(ctx, out, capability.FactCheck, capability.Args{
		capability.ArgClaim:   text,
		capability.ArgContext: socialContext,
	})
	if err != nil || res.Text == "" {
		return CapabilityFailedResponse
	}
	if len(posts) == 0 {
		return res.Text
	}
	return fmt.Sprintf("%s\n\nBased on %d recent social media posts.", res.Text, len(posts))
}

func (r *Router) socialEvent(ctx context.Context, out *Outcome, text string) string {
	posts := r.searchPosts(ctx, out, text, socialEventResults)

	socialContext := NoSocialData
	if len(posts) > 0 {
		socialContext = ai.RenderPosts(posts)
	}
	return r.generate(ctx, ai.SocialEventPrompt(text, socialContext))
}

func (r *Router) socialSearch(ctx context.Context, out *Outcome, text string) string {
	posts := r.searchPosts(ctx, out, text, capability.DefaultSocialResults)
	if len(posts) == 0 {
		return NoSocialData
	}
	return "Here are recent social media posts:\n" + capability.RenderPostList(posts)
}

func (r *Router) memory(op intent.MemoryOp, facts map[string]string) (string, map[string]string) {
	switch {
	case op.Kind == intent.Remember && op.Key == intent.LocationKey:
		return fmt.Sprintf("Got it! I'll remember you're from %s.", op.Value), map[string]string{op.Key: op.Value}
	case op.Kind == intent.Remember && op.Key == "name":
		return fmt.Sprintf("Nice to meet you, %s!", op.Value), map[string]string{op.Key: op.Value}
	case op.Kind == intent.Remember:
		return fmt.Sprintf("Got it! I'll remember your %s is %s.", op.Label(), op.Value), map[string]string{op.Key: op.Value}
	}

	value, ok := facts[op.Key]
	switch {
	case op.Key == intent.LocationKey && ok:
		return fmt.Sprintf("You live in %s.", value), nil
	case op.Key == intent.LocationKey:
		return "You haven't told me where you live yet.", nil
	case op.Key == "name" && !ok:
		return "You haven't told me your name yet in this session.", nil
	case ok:
		return fmt.Sprintf("Your %s is %s.", op.Label(), value), nil
	default:
		return fmt.Sprintf("You haven't told me your %s yet.", op.Label()), nil
	}
}
