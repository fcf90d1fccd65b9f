// Package supervisor runs the multi-turn tool-use loop with the reasoning model.
//
// The conversation sent on every call is the full history, unmodified: thinking
// blocks and their signatures are echoed byte for byte so the model's reasoning
// chain stays intact across tool rounds.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/internal/conversation"
	"github.com/deepresearch/internal/logging"
	"github.com/deepresearch/internal/prompts"
	"github.com/deepresearch/internal/report"
	"github.com/deepresearch/internal/retry"
	"github.com/deepresearch/pkg/models"
)

// State is a step of the research loop
type State string

const (
	StatePlanningTurn    State = "PLANNING_TURN"
	StateToolCallPending State = "TOOL_CALL_PENDING"
	StateToolExecuting   State = "TOOL_EXECUTING"
	StateFinal           State = "FINAL"
	StateTerminated      State = "TERMINATED_ERROR"
)

// Options configure a Supervisor
type Options struct {
	Model       string
	MaxTokens   int
	TurnBudget  int
	CallTimeout time.Duration
	Retry       retry.RetryConfig
	LogDir      string
}

// OptionsFromConfig maps the supervisor configuration onto loop options
func OptionsFromConfig(cfg config.SupervisorConfig, logDir string) Options {
	return Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		TurnBudget:  cfg.TurnBudget,
		CallTimeout: cfg.CallTimeout,
		Retry:       retry.LLMRetryConfig(cfg.MaxRetries),
		LogDir:      logDir,
	}
}

// RunOptions are per-query flags from the CLI
type RunOptions struct {
	Verbose    bool
	SessionLog bool
}

// Supervisor owns one research conversation at a time
type Supervisor struct {
	reasoner Reasoner
	tools    map[string]Tool
	specs    []ToolSpec
	builder  *prompts.PromptBuilder
	opts     Options

	mu    sync.Mutex
	conv  *conversation.Conversation
	state State
}

// New creates a supervisor exposing the given tools to the reasoner
func New(reasoner Reasoner, opts Options, tools ...Tool) *Supervisor {
	if opts.TurnBudget < 1 {
		opts.TurnBudget = 5
	}
	if opts.MaxTokens < 1 {
		opts.MaxTokens = 32000
	}
	s := &Supervisor{
		reasoner: reasoner,
		tools:    make(map[string]Tool, len(tools)),
		builder:  prompts.NewPromptBuilder(),
		opts:     opts,
	}
	for _, t := range tools {
		spec := t.Spec()
		s.tools[spec.Name] = t
		s.specs = append(s.specs, spec)
	}
	return s
}

// Conversation returns the conversation of the latest run, read-only by convention
func (s *Supervisor) Conversation() *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// State returns the current loop state
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Research runs one session to completion and assembles the report.
//
// It returns a *models.TerminalFailure when the reasoning model cannot be
// reached after retries. Cancelling ctx stops the loop at the next round
// boundary; a call already in flight is allowed to finish and its output is
// discarded.
func (s *Supervisor) Research(ctx context.Context, query string, run RunOptions) (*models.ResearchReport, error) {
	start := time.Now()
	sessionID := uuid.New().String()
	logger := log.With().Str("session", sessionID[:8]).Logger()

	var sessionLog *logging.SessionLogger
	if run.SessionLog {
		var err error
		sessionLog, err = logging.StartSessionLogging(s.opts.LogDir, sessionID, query)
		if err != nil {
			logger.Warn().Err(err).Msg("Could not start session log")
		} else {
			logger.Info().Str("path", sessionLog.Path()).Msg("Session log started")
		}
	}
	defer sessionLog.Close()

	system := s.builder.BuildSupervisorSystemPrompt(s.opts.TurnBudget)
	conv := conversation.New(s.builder.BuildResearchRequestPrompt(query))
	s.mu.Lock()
	s.conv = conv
	s.state = StatePlanningTurn
	s.mu.Unlock()

	sessionLog.LogBlock("SYSTEM PROMPT", system)

	// in-flight calls run to completion even if ctx is cancelled
	callCtx := context.WithoutCancel(ctx)

	var (
		sources   []models.Source
		finalText string
		rounds    int
		calls     int
		exhausted bool
	)

	for {
		if err := ctx.Err(); err != nil {
			s.setState(StateTerminated)
			logger.Warn().Int("rounds", rounds).Msg("Research cancelled between rounds")
			return nil, fmt.Errorf("research cancelled: %w", err)
		}

		forced := rounds >= s.opts.TurnBudget
		req := Request{
			System:         system,
			Turns:          conv.Turns(),
			Tools:          s.specs,
			ToolChoiceNone: forced,
			MaxTokens:      s.opts.MaxTokens,
		}

		calls++
		logger.Info().Int("call", calls).Int("rounds", rounds).Bool("tools_enabled", !forced).Msg("Calling reasoning model")
		sessionLog.LogRequest(calls, s.opts.Model, len(req.Turns), !forced)

		resp, err := s.reason(callCtx, req, &logger)
		if err != nil {
			s.setState(StateTerminated)
			sessionLog.LogError("reasoning model", err)
			return nil, &models.TerminalFailure{Round: calls, Err: err}
		}
		logResponse(sessionLog, resp)

		if len(resp.Blocks) > 0 {
			if err := conv.AppendAssistant(resp.Blocks...); err != nil {
				s.setState(StateTerminated)
				return nil, fmt.Errorf("failed to record model turn: %w", err)
			}
		}

		uses := toolUses(resp.Blocks)
		if len(uses) == 0 || forced {
			finalText = conversation.TextOf(resp.Blocks)
			if forced && len(uses) > 0 {
				logger.Warn().Int("tool_uses", len(uses)).Msg("Model requested tools after the final call; using its text")
			}
			break
		}

		s.setState(StateToolCallPending)
		if err := ctx.Err(); err != nil {
			s.setState(StateTerminated)
			return nil, fmt.Errorf("research cancelled: %w", err)
		}

		s.setState(StateToolExecuting)
		results, found := s.executeTools(callCtx, uses, &logger, sessionLog)
		rounds++
		if err := ctx.Err(); err != nil {
			s.setState(StateTerminated)
			logger.Warn().Int("rounds", rounds).Msg("Research cancelled; discarding tool round")
			return nil, fmt.Errorf("research cancelled: %w", err)
		}
		sources = append(sources, found...)

		if rounds >= s.opts.TurnBudget {
			exhausted = true
			logger.Info().Err(models.ErrLoopBudgetExceeded).Int("turn_budget", s.opts.TurnBudget).Msg("Forcing final synthesis")
			results = append(results, conversation.TextBlock(s.builder.BuildFinalSynthesisPrompt(query)))
		}
		if err := conv.AppendToolResults(results...); err != nil {
			s.setState(StateTerminated)
			return nil, fmt.Errorf("failed to record tool results: %w", err)
		}
		s.setState(StatePlanningTurn)
	}

	s.setState(StateFinal)

	meta := report.Meta{
		Elapsed:         time.Since(start),
		Rounds:          rounds,
		ModelCalls:      calls,
		BudgetExhausted: exhausted,
	}
	if run.Verbose {
		meta.Thinking = conv.ThinkingTranscript()
	}
	rep := report.Assemble(query, finalText, sources, meta)

	logger.Info().
		Int("model_calls", calls).
		Int("rounds", rounds).
		Int("sources", len(rep.Sources)).
		Dur("elapsed", rep.Elapsed).
		Msg("Research complete")
	return rep, nil
}

// reason makes one model call with a per-attempt timeout and retries
func (s *Supervisor) reason(ctx context.Context, req Request, logger *zerolog.Logger) (*Response, error) {
	var resp *Response
	result := retry.RetryWithBackoffAndReason(ctx, s.opts.Retry, func() (error, string) {
		attemptCtx := ctx
		if s.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
		}

		r, err := s.reasoner.Reason(attemptCtx, req)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("model call timed out after %v: %w", s.opts.CallTimeout, err), "timeout"
			}
			return err, err.Error()
		}
		resp = r
		return nil, "success"
	}, logger)

	if !result.Success {
		return nil, result.LastError
	}
	return resp, nil
}

// executeTools runs every tool use of one round concurrently. Results keep the
// order of the tool use blocks; failures become error results.
func (s *Supervisor) executeTools(ctx context.Context, uses []conversation.Block, logger *zerolog.Logger, sessionLog *logging.SessionLogger) ([]conversation.Block, []models.Source) {
	results := make([]conversation.Block, len(uses))
	sources := make([][]models.Source, len(uses))

	var g errgroup.Group
	for i, use := range uses {
		g.Go(func() error {
			started := time.Now()
			content, found, isError := s.runTool(ctx, use)
			results[i] = conversation.ToolResultBlock(use.ID, content, isError)
			sources[i] = found

			logger.Info().
				Str("tool", use.Name).
				Str("id", use.ID).
				Bool("error", isError).
				Int("sources", len(found)).
				Dur("duration", time.Since(started)).
				Msg("Tool call finished")
			sessionLog.LogToolCall(use.ID, use.Name, string(use.Input), content, isError)
			return nil
		})
	}
	_ = g.Wait()

	var all []models.Source
	for _, found := range sources {
		all = append(all, found...)
	}
	return results, all
}

func (s *Supervisor) runTool(ctx context.Context, use conversation.Block) (string, []models.Source, bool) {
	tool, ok := s.tools[use.Name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", use.Name), nil, true
	}
	out, err := tool.Execute(ctx, use.Input)
	if err != nil {
		log.Warn().Err(err).Str("tool", use.Name).Msg("Tool call failed")
		return errorResult(err), nil, true
	}
	return out.Content, out.Sources, false
}

func toolUses(blocks []conversation.Block) []conversation.Block {
	var uses []conversation.Block
	for _, b := range blocks {
		if b.Kind == conversation.KindToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

func logResponse(sessionLog *logging.SessionLogger, resp *Response) {
	if sessionLog == nil {
		return
	}
	sessionLog.Log("Stop reason: %s, blocks: %d", resp.StopReason, len(resp.Blocks))
	for _, b := range resp.Blocks {
		switch b.Kind {
		case conversation.KindThinking:
			sessionLog.LogBlock("THINKING", b.Thinking)
		case conversation.KindText:
			sessionLog.LogBlock("TEXT", b.Text)
		case conversation.KindToolUse:
			sessionLog.Log("Tool use %s: %s %s", b.ID, b.Name, string(b.Input))
		case conversation.KindRedactedThinking:
			sessionLog.Log("Redacted thinking block (%d bytes)", len(b.Data))
		}
	}
}
