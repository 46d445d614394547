package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Name identifies a capability in the registry.
type Name string

const (
	Summarize       Name = "summarize"
	FactCheck       Name = "fact_check"
	Sentiment       Name = "sentiment"
	ExtractKeywords Name = "extract_keywords"
	VerifyStat      Name = "verify_stat"
	ComposeReport   Name = "compose_report"
	SocialSearch    Name = "social_search"
)

// Argument keys understood by the built-in capabilities.
const (
	ArgText       = "text"
	ArgClaim      = "claim"
	ArgContext    = "context"
	ArgStat       = "stat"
	ArgQuery      = "query"
	ArgMaxResults = "max_results"
	ArgMaxItems   = "max_keywords"
	ArgSummary    = "summary"
	ArgVerdict    = "verdict"
	ArgKeywords   = "keywords"
)

var (
	ErrUnknownCapability   = errors.New("unknown capability")
	ErrDuplicateCapability = errors.New("duplicate capability")
	ErrMissingArgument     = errors.New("missing argument")
	ErrCapabilityPanic     = errors.New("capability panicked")
)

// Args are the named arguments of one invocation.
type Args map[string]any

// String returns the trimmed string value of key, or "".
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// Int returns the integer value of key, or def when absent or malformed.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Strings returns the list value of key. A single string becomes a one-item list.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

func (a Args) require(key string) (string, error) {
	v := a.String(key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return v, nil
}

// Result is the output of a single invocation. Data carries the structured
// form when the capability has one.
type Result struct {
	Text string
	Data any
}

// Capability is one atomic operation invocable by name.
type Capability interface {
	Name() Name
	Invoke(ctx context.Context, args Args) (Result, error)
}

// Registry is the fixed set of capabilities built at startup.
type Registry struct {
	capabilities map[Name]Capability
	logger       *zap.Logger
}

// NewRegistry indexes caps by name. Duplicate names are rejected.
func NewRegistry(logger *zap.Logger, caps ...Capability) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index := make(map[Name]Capability, len(caps))
	for _, c := range caps {
		if c == nil {
			continue
		}
		if _, exists := index[c.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCapability, c.Name())
		}
		index[c.Name()] = c
	}

	return &Registry{capabilities: index, logger: logger}, nil
}

// Names lists the registered capabilities in sorted order.
func (r *Registry) Names() []Name {
	names := make([]Name, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Invoke runs one capability. A panic inside the capability is returned as ErrCapabilityPanic.
func (r *Registry) Invoke(ctx context.Context, name Name, args Args) (res Result, err error) {
	c, ok := r.capabilities[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	if args == nil {
		args = Args{}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("capability panicked", zap.String("capability", string(name)), zap.Any("panic", p))
			res, err = Result{}, fmt.Errorf("%w: %s: %v", ErrCapabilityPanic, name, p)
		}
	}()

	res, err = c.Invoke(ctx, args)
	if err != nil {
		r.logger.Warn("capability failed", zap.String("capability", string(name)), zap.Error(err))
	}
	return res, err
}

// Call is one entry of a concurrent batch.
type Call struct {
	Name Name
	Args Args
}

// Outcome pairs a call with its result or error.
type Outcome struct {
	Name   Name
	Result Result
	Err    error
}

// InvokeAll runs calls concurrently. Every call runs to completion; one
// failure never cancels its siblings. Outcomes keep the order of calls.
func (r *Registry) InvokeAll(ctx context.Context, calls []Call) []Outcome {
	outcomes := make([]Outcome, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			res, err := r.Invoke(ctx, call.Name, call.Args)
			outcomes[i] = Outcome{Name: call.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
