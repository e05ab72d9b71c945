package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"aihttpanalyzer/internal/client"
	"aihttpanalyzer/internal/config"
	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/dispatch"
	logpkg "aihttpanalyzer/internal/log"
	"aihttpanalyzer/internal/metrics"
	"aihttpanalyzer/internal/server"
	"aihttpanalyzer/internal/storage"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// app holds what every command needs: logger, env config, preference store
// and the endpoint settings loaded from it.
type app struct {
	dotenvLoaded bool

	logger   core.Logger
	cfg      config.ServerConfig
	store    core.PreferenceStore
	endpoint *config.EndpointConfig
	metrics  *metrics.MetricsService
}

func (a *app) init() error {
	a.logger = logpkg.CreateLogger()
	if !a.dotenvLoaded {
		a.logger.Debug("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadServerConfigFromEnv(a.logger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, err := storage.InitStorage(cfg.SettingsPath, a.logger)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	a.store = store
	a.endpoint = config.NewEndpointConfig(store)
	a.metrics = metrics.NewMetricsService()

	cfg.Storage = store
	cfg.Endpoint = a.endpoint
	cfg.Logger = a.logger
	cfg.Metrics = a.metrics
	a.cfg = cfg
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if appLog, ok := a.logger.(*logpkg.AppLogger); ok {
		_ = appLog.Close()
	}
}

func (a *app) client() *client.Client {
	return client.NewClient(client.Config{
		Endpoint:   a.endpoint,
		HTTPClient: client.NewHTTPClient(a.cfg.HTTPClientSettings),
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
}

// newRootCmd builds the command tree; the caller closes a after Execute.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aihttpanalyzer",
		Short: "AI HTTP Analyzer - security analysis of HTTP traffic through a local Ollama server",
		Long: `aihttpanalyzer sends captured HTTP requests and responses to a local
Ollama model server for security analysis. It runs as an HTTP service
(serve) or answers one-off questions from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newAskCmd(a),
		&cobra.Command{Use: "ping", Short: "Test the connection to the model server", Args: cobra.NoArgs, RunE: a.ping},
		&cobra.Command{Use: "models", Short: "List models available on the model server", Args: cobra.NoArgs, RunE: a.listModels},
		newConfigCmd(a),
	)
	return rootCmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.endpoint.Update(func(s *core.EndpointSettings) { s.Enabled = true }); err != nil {
				a.logger.Warn("Failed to save settings: %v", err)
			}
			a.logger.Info("%s %s", core.ProviderDisplayName, core.ProviderDisplayVersion)
			a.logger.Info("Using Ollama with model: %s", a.endpoint.Model())

			srv, err := server.NewServer(a.cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() { _ = srv.Close() }()

			return srv.Run()
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	var requestFile, responseFile string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the model about captured HTTP traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := readOptionalFile(requestFile)
			if err != nil {
				return err
			}
			response, err := readOptionalFile(responseFile)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")
			if strings.TrimSpace(question+request+response) == "" {
				return errors.New("a question, --request or --response is required")
			}

			provider := dispatch.NewProvider(dispatch.Config{
				Endpoint:   a.endpoint,
				Client:     a.client(),
				SystemText: core.SystemMessage,
				Logger:     a.logger,
				Metrics:    a.metrics,
			})
			resp := provider.SendWithSystemMessage(dispatch.ComposeAnalysisPrompt(question, request, response))
			if resp.IsParseAnomaly() {
				a.logger.Warn("Model server reply could not be parsed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Content())
			return nil
		},
	}
	cmd.Flags().StringVar(&requestFile, "request", "", "file holding the raw HTTP request")
	cmd.Flags().StringVar(&responseFile, "response", "", "file holding the raw HTTP response")
	return cmd
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	//nolint:gosec // G304: path is chosen by the CLI user
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (a *app) ping(cmd *cobra.Command, args []string) error {
	baseURL := config.NormalizeBaseURL(a.endpoint.BaseURL())
	if !a.client().TestConnection() {
		return fmt.Errorf("could not connect to Ollama at %s", baseURL)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to Ollama at %s\n", baseURL)
	return nil
}

func (a *app) listModels(cmd *cobra.Command, args []string) error {
	models := a.client().ListModels()
	if len(models) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No models found")
		return nil
	}
	for _, name := range models {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the model server settings",
	}

	var baseURL, model string
	var enabled bool

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change and save settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("base-url") && !flags.Changed("model") && !flags.Changed("enabled") {
				return errors.New("nothing to set: use --base-url, --model or --enabled")
			}
			if flags.Changed("base-url") && strings.TrimSpace(baseURL) == "" {
				return errors.New("--base-url must not be empty")
			}
			if flags.Changed("model") && strings.TrimSpace(model) == "" {
				return errors.New("--model must not be empty")
			}
			settings, err := a.endpoint.Update(func(s *core.EndpointSettings) {
				if flags.Changed("base-url") {
					s.BaseURL = strings.TrimSpace(baseURL)
				}
				if flags.Changed("model") {
					s.Model = strings.TrimSpace(model)
				}
				if flags.Changed("enabled") {
					s.Enabled = enabled
				}
			})
			if err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			return printSettings(cmd, settings)
		},
	}
	setCmd.Flags().StringVar(&baseURL, "base-url", "", "model server base URL")
	setCmd.Flags().StringVar(&model, "model", "", "model name")
	setCmd.Flags().BoolVar(&enabled, "enabled", false, "enable AI analysis")

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printSettings(cmd, a.endpoint.Snapshot())
			},
		},
		setCmd,
	)
	return configCmd
}

func printSettings(cmd *cobra.Command, settings core.EndpointSettings) error {
	data, err := sonic.ConfigStd.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
