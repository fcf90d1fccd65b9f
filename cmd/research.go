package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/deepresearch/internal/aiconnectors"
	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/internal/llm"
	"github.com/deepresearch/internal/logging"
	"github.com/deepresearch/internal/planner"
	"github.com/deepresearch/internal/report"
	"github.com/deepresearch/internal/retriever"
	"github.com/deepresearch/internal/retry"
	"github.com/deepresearch/internal/search"
	"github.com/deepresearch/internal/supervisor"
	"github.com/deepresearch/pkg/models"
)

// ResearchCommand returns the research command
func ResearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "research",
		Usage: "Research a question and write a cited report",
		Flags: ResearchFlags(),
		Action: func(c *cli.Context) error {
			return RunResearch(c)
		},
	}
}

// ResearchFlags are shared by the research command and the default action
func ResearchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "Research query (interactive mode when omitted)",
		},
		&cli.BoolFlag{
			Name:    "save",
			Aliases: []string{"s"},
			Usage:   "Save the report to the reports directory",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Show debug logs, thinking blocks and the conversation",
		},
	}
}

// researchApp holds the components built once per process
type researchApp struct {
	cfg      *config.Config
	sup      *supervisor.Supervisor
	subagent *llm.ResilientClient
	display  *Display
}

// RunResearch runs one query, or the interactive loop when no query is given
func RunResearch(c *cli.Context) error {
	verbose := c.Bool("verbose")
	logging.Setup(verbose, os.Stderr)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return configExit(err)
	}

	app, err := newResearchApp(c.Context, cfg, NewDisplay(os.Stdout))
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return configExit(err)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	app.display.Banner()
	if query := strings.TrimSpace(c.String("query")); query != "" {
		return app.run(ctx, query, c.Bool("save"), verbose)
	}
	return app.interactive(ctx, os.Stdin)
}

func newResearchApp(ctx context.Context, cfg *config.Config, display *Display) (*researchApp, error) {
	provider, err := aiconnectors.ParseProvider(cfg.Subagent.Provider)
	if err != nil {
		return nil, &models.ConfigError{Reason: err.Error()}
	}
	connector, err := aiconnectors.NewConnector(ctx, aiconnectors.ConnectorOptions{
		Provider: provider,
		APIKey:   cfg.Subagent.APIKey,
		BaseURL:  cfg.Subagent.BaseURL,
		ModelConfig: aiconnectors.ModelConfig{
			Model:       cfg.Subagent.Model,
			Temperature: cfg.Subagent.Temperature,
			MaxTokens:   cfg.Subagent.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("provider", string(connector.GetProvider())).Str("model", connector.GetModel()).Msg("Subagent connector ready")
	subagent := llm.NewResilientClient("subagent", connector, retry.LLMRetryConfig(cfg.Subagent.MaxRetries), cfg.Subagent.CallTimeout)

	exa, err := search.NewExa(cfg.Search)
	if err != nil {
		return nil, err
	}

	reasoner, err := supervisor.NewAnthropicReasoner(cfg.Supervisor)
	if err != nil {
		return nil, err
	}

	tool := supervisor.NewResearchTool(
		planner.New(subagent, planner.DefaultOptions()),
		retriever.New(exa, subagent, retriever.OptionsFromConfig(cfg.Search)),
	)

	return &researchApp{
		cfg:      cfg,
		sup:      supervisor.New(reasoner, supervisor.OptionsFromConfig(cfg.Supervisor, cfg.Report.LogDir), tool),
		subagent: subagent,
		display:  display,
	}, nil
}

// run executes one research session. A TerminalFailure is returned as an exit error.
func (a *researchApp) run(ctx context.Context, query string, save, verbose bool) error {
	a.display.Section("CONDUCTING RESEARCH")
	a.display.Query(query)
	if verbose {
		a.display.Progress(fmt.Sprintf("Supervisor model %s, search budget %d rounds", a.cfg.Supervisor.Model, a.cfg.Supervisor.TurnBudget))
	}

	rep, err := a.sup.Research(ctx, query, supervisor.RunOptions{Verbose: verbose, SessionLog: verbose})
	if err != nil {
		var terminal *models.TerminalFailure
		if errors.As(err, &terminal) {
			return cli.Exit(fmt.Sprintf("Research failed: %v", err), 1)
		}
		return err
	}

	a.display.Report(rep)
	if a.subagent != nil {
		stats := a.subagent.Stats()
		log.Debug().
			Int("calls", stats.Calls).
			Int("retries", stats.Retries).
			Int("timeouts", stats.Timeouts).
			Dur("avg_latency", stats.AvgLatency()).
			Msg("Subagent usage")
	}

	if save {
		path, err := report.Save(a.cfg.Report.Dir, rep)
		if err != nil {
			a.display.Error(err)
		} else {
			a.display.Success("Report saved to: %s", path)
		}
	}

	if verbose {
		a.display.Thinking(rep.Thinking)
		if conv := a.sup.Conversation(); conv != nil {
			a.display.Conversation(conv.Project(previewChars))
		}
	}
	return nil
}

// replCommand is one parsed line of interactive input
type replCommand struct {
	query   string
	save    bool
	verbose bool
	help    bool
	exit    bool
}

func parseReplInput(line string) (replCommand, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return replCommand{}, false
	}

	switch strings.ToLower(line) {
	case "exit", "quit", "q":
		return replCommand{exit: true}, true
	case "/help":
		return replCommand{help: true}, true
	}

	switch {
	case strings.HasPrefix(line, "/save "):
		return replCommand{query: strings.TrimSpace(line[len("/save "):]), save: true}, true
	case strings.HasPrefix(line, "/verbose "):
		return replCommand{query: strings.TrimSpace(line[len("/verbose "):]), verbose: true}, true
	}
	return replCommand{query: line}, true
}

const replHelp = `Commands:
  /save <query>     - Save report to file
  /verbose <query>  - Show detailed progress
  /help             - Show this help
  exit/quit/q       - Exit`

// interactive reads queries until an exit word, EOF or interrupt. Errors of
// one query are printed and the loop continues.
func (a *researchApp) interactive(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(a.display.out, "\nInteractive mode - enter your research queries (type 'exit' to quit)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.display.out, "\nResearch Query: ")
		if !scanner.Scan() {
			break
		}
		cmd, ok := parseReplInput(scanner.Text())
		if !ok {
			continue
		}
		switch {
		case cmd.exit:
			fmt.Fprintln(a.display.out, "\nGoodbye!")
			return nil
		case cmd.help:
			fmt.Fprintln(a.display.out, replHelp)
			continue
		case cmd.query == "":
			continue
		}

		if err := a.run(ctx, cmd.query, cmd.save, cmd.verbose); err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(a.display.out, "\nGoodbye!")
				return nil
			}
			log.Error().Err(err).Str("query", cmd.query).Msg("Research failed")
			a.display.Error(err)
		}
	}
	return scanner.Err()
}
