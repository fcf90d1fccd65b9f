package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/deepresearch/internal/aiconnectors"
	"github.com/deepresearch/internal/config"
	"github.com/deepresearch/pkg/models"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "deepresearch.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration and credentials",
				Action: runConfigValidate,
			},
			{
				Name:   "check",
				Usage:  "Show the effective configuration with secrets masked",
				Action: runConfigCheck,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return configExit(err)
	}

	if cfg.Subagent.Provider == string(aiconnectors.ProviderOllama) {
		if err := aiconnectors.ValidateOllamaModel(c.Context, cfg.Subagent.BaseURL, cfg.Subagent.Model); err != nil {
			return configExit(err)
		}
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigCheck(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	result := CheckRequiredConfig(cfg)
	PrintConfigCheck(os.Stdout, result)
	if len(result.Missing) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// loadConfig applies the optional .env file and loads the configuration
func loadConfig(c *cli.Context) (*config.Config, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := LoadEnvFile(envFile, c.Bool("env-override")); err != nil && !(errors.Is(err, os.ErrNotExist) && !c.IsSet("env-file")) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// configExit turns a configuration failure into a single diagnostic and exit code 1
func configExit(err error) error {
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.Missing) > 0 {
		return cli.Exit(fmt.Sprintf("Configuration error: %v\nSet them in the environment or a .env file (see `deepresearch config init`).", err), 1)
	}
	return cli.Exit(fmt.Sprintf("Configuration error: %v", err), 1)
}
