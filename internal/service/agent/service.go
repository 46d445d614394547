package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/analysis/intent"
	"github.com/zhouzirui/truthfinder/backend/internal/model/analysis"
	"github.com/zhouzirui/truthfinder/backend/internal/model/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/service/ai"
	"github.com/zhouzirui/truthfinder/backend/internal/service/capability"
	chatservice "github.com/zhouzirui/truthfinder/backend/internal/service/chat"
	"github.com/zhouzirui/truthfinder/backend/internal/service/guardrail"
	"github.com/zhouzirui/truthfinder/backend/internal/service/router"
)

// DefaultProviderTimeout bounds the routing of one message.
const DefaultProviderTimeout = 30 * time.Second

// ErrInternal marks failures that must surface as a generic internal error.
var ErrInternal = errors.New("internal error")

// Sessions is the part of the session store the agent needs.
type Sessions interface {
	Acquire(ctx context.Context, sessionID string) (*chatservice.Exchange, error)
	History(sessionID string) ([]chat.Turn, bool)
}

// Router turns one message into a response.
type Router interface {
	Route(ctx context.Context, req router.Request) router.Outcome
}

// BatchInvoker runs independent capabilities concurrently.
type BatchInvoker interface {
	InvokeAll(ctx context.Context, calls []capability.Call) []capability.Outcome
}

// Options wires the agent. Guardrail, Sessions and Router are required.
type Options struct {
	Guardrail       *guardrail.Filter
	Sessions        Sessions
	Router          Router
	Capabilities    BatchInvoker
	Generator       ai.Generator
	SocialEnabled   bool
	ProviderTimeout time.Duration
	Logger          *zap.Logger
}

// Service is the single entry point for chat traffic. It is the only writer
// of session state.
type Service struct {
	guard         *guardrail.Filter
	sessions      Sessions
	router        Router
	caps          BatchInvoker
	gen           ai.Generator
	socialEnabled bool
	timeout       time.Duration
	logger        *zap.Logger
}

// New validates opts and builds the agent.
func New(opts Options) (*Service, error) {
	if opts.Guardrail == nil || opts.Sessions == nil || opts.Router == nil {
		return nil, fmt.Errorf("agent requires guardrail, sessions and router")
	}
	if opts.Generator == nil {
		opts.Generator = ai.Unavailable{}
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		guard:         opts.Guardrail,
		sessions:      opts.Sessions,
		router:        opts.Router,
		caps:          opts.Capabilities,
		gen:           opts.Generator,
		socialEnabled: opts.SocialEnabled,
		timeout:       opts.ProviderTimeout,
		logger:        opts.Logger,
	}, nil
}

// ChatResult is returned for every accepted message.
type ChatResult struct {
	Response  string          `json:"response"`
	SessionID string          `json:"session_id"`
	Intent    intent.Decision `json:"intent"`
	History   []chat.Turn     `json:"history"`
}

// Chat runs one exchange: guardrails, session append, routing, output filter,
// session append. Guardrail rejections return the guardrail sentinel errors and
// leave the session untouched. Anything else unexpected wraps ErrInternal.
func (s *Service) Chat(ctx context.Context, message, sessionID string) (ChatResult, error) {
	verdict := s.guard.Validate(guardrail.Sanitize(message))
	if !verdict.Accepted() {
		s.logger.Info("message rejected", zap.String("reason", string(verdict.Reason)))
		return ChatResult{}, verdict.Err()
	}
	text := strings.TrimSpace(verdict.Text)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	exchange, err := s.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("%w: acquire session: %w", ErrInternal, err)
	}
	defer exchange.Release()

	started := time.Now()
	snapshot := exchange.Snapshot()
	exchange.Append(chat.Turn{Role: chat.RoleUser, Content: text})

	outcome := s.route(ctx, router.Request{Text: text, History: snapshot.Turns, Facts: snapshot.Facts})

	exchange.Remember(outcome.Remember)
	response := s.guard.FilterOutput(outcome.Response)
	exchange.Append(chat.Turn{Role: chat.RoleAgent, Content: response})

	s.logger.Info("chat exchange completed",
		zap.String("session_id", sessionID),
		zap.String("intent", string(outcome.Decision)),
		zap.Duration("elapsed", time.Since(started)))

	return ChatResult{
		Response:  response,
		SessionID: sessionID,
		Intent:    outcome.Decision,
		History:   exchange.Snapshot().Turns,
	}, nil
}

// route bounds provider calls with the configured timeout. The agent turn is
// written even when the router misbehaves.
func (s *Service) route(ctx context.Context, req router.Request) (out router.Outcome) {
	routeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("routing panicked", zap.Any("panic", p))
			out = router.Outcome{Decision: intent.Fallback, Response: router.CapabilityFailedResponse}
		}
	}()

	return s.router.Route(routeCtx, req)
}

// GetSession is a pure read. Unknown ids yield an empty history.
func (s *Service) GetSession(sessionID string) chat.Session {
	turns, _ := s.sessions.History(sessionID)
	return chat.Session{ID: sessionID, Turns: turns}
}

// Analyze fact-checks and summarizes content in parallel.
func (s *Service) Analyze(ctx context.Context, content, language string) (analysis.Report, error) {
	verdict := s.guard.Validate(guardrail.Sanitize(content))
	if !verdict.Accepted() {
		return analysis.Report{}, verdict.Err()
	}
	if s.caps == nil {
		return analysis.Report{}, fmt.Errorf("%w: analysis capabilities not configured", ErrInternal)
	}

	language = strings.TrimSpace(language)
	if language == "" {
		language = "english"
	}

	text := strings.TrimSpace(verdict.Text)
	analyzeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcomes := s.caps.InvokeAll(analyzeCtx, []capability.Call{
		{Name: capability.FactCheck, Args: capability.Args{capability.ArgClaim: text}},
		{Name: capability.Summarize, Args: capability.Args{capability.ArgText: text}},
	})

	report := analysis.Report{Language: language}
	succeeded := 0
	for _, o := range outcomes {
		if o.Err != nil {
			report.Errors = append(report.Errors, string(o.Name)+" unavailable")
			continue
		}
		switch o.Name {
		case capability.FactCheck:
			check, ok := o.Result.Data.(analysis.FactCheck)
			if !ok {
				report.Errors = append(report.Errors, string(o.Name)+" unavailable")
				continue
			}
			check.Verdict = s.guard.FilterOutput(check.Verdict)
			check.Reasoning = s.guard.FilterOutput(check.Reasoning)
			findings := make([]string, len(check.KeyFindings))
			for i, finding := range check.KeyFindings {
				findings[i] = s.guard.FilterOutput(finding)
			}
			check.KeyFindings = findings
			report.FactCheck = &check
		case capability.Summarize:
			report.Summary = s.guard.FilterOutput(o.Result.Text)
		}
		succeeded++
	}

	switch succeeded {
	case len(outcomes):
		report.Status = analysis.StatusCompleted
	case 0:
		report.Status = analysis.StatusFailed
	default:
		report.Status = analysis.StatusPartial
	}

	s.logger.Info("content analyzed", zap.String("status", report.Status), zap.String("language", language))
	return report, nil
}

// Health describes provider availability. Backend names are not exposed.
type Health struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Providers map[string]string `json:"providers"`
}

// Health reports whether the generation and social providers are configured.
func (s *Service) Health() Health {
	generation := "available"
	if _, ok := s.gen.(ai.Unavailable); ok {
		generation = "unavailable"
	}
	socialStatus := "unavailable"
	if s.socialEnabled {
		socialStatus = "available"
	}

	return Health{
		Status:  "healthy",
		Service: "truthfinder",
		Providers: map[string]string{
			"generation": generation,
			"social":     socialStatus,
		},
	}
}

// Describe maps an error from Chat or Analyze to a public code and message.
// userError is false for anything that is not a guardrail rejection; callers
// must then show only a generic message.
func Describe(err error) (code, message string, userError bool) {
	if reason, ok := guardrail.ReasonOf(err); ok {
		return string(reason), err.Error(), true
	}
	return "internal", "internal server error", false
}
