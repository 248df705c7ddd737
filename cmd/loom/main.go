package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lmittmann/tint"

	"github.com/davenfield/loom/agent"
	"github.com/davenfield/loom/llmapi"
)

type config struct {
	Provider   string        `env:"LOOM_PROVIDER" envDefault:"anthropic"`
	Model      string        `env:"LOOM_MODEL"`
	APIKey     string        `env:"LOOM_API_KEY"`
	WorkingDir string        `env:"LOOM_WORKDIR"`
	MaxRounds  int           `env:"LOOM_MAX_ROUNDS" envDefault:"100"`
	Timeout    time.Duration `env:"LOOM_TIMEOUT" envDefault:"10m"`
	Yes        bool          `env:"LOOM_YES"`
	LogLevel   string        `env:"LOOM_LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	flag.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider (anthropic, openai)")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "model id or alias (default: provider's agent model)")
	flag.StringVar(&cfg.WorkingDir, "workdir", cfg.WorkingDir, "working directory for the task")
	flag.IntVar(&cfg.MaxRounds, "max-rounds", cfg.MaxRounds, "hard cap on tool-call rounds")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "wall-clock bound for the task")
	flag.BoolVar(&cfg.Yes, "yes", cfg.Yes, "approve all destructive operations without prompting")
	listModels := flag.Bool("list-models", false, "print known models and exit")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLogLevel(cfg.LogLevel),
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	if *listModels {
		for _, m := range llmapi.ListModels("") {
			fmt.Printf("%-22s %-10s %s\n", m.ID, m.Provider, m.DisplayName)
		}
		return nil
	}

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" {
		return fmt.Errorf("usage: loom [flags] <task description>")
	}

	workingDir := cfg.WorkingDir
	if workingDir == "" {
		var err error
		workingDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
	}

	clientOpts := []llmapi.GollmClientOption{}
	if cfg.Model != "" {
		model := cfg.Model
		if info := llmapi.GetModelInfo(model); info != nil {
			model = info.ID
		}
		clientOpts = append(clientOpts, llmapi.WithModel(model))
	}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, llmapi.WithAPIKey(cfg.APIKey))
	}
	client, err := llmapi.NewGollmClient(cfg.Provider, clientOpts...)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	perms := agent.AllowAll
	if !cfg.Yes {
		perms = agent.PermissionFunc(promptPermission)
	}

	notifier := agent.NewNotifier("", 512)
	engine := agent.NewEngine(workingDir,
		agent.WithPermissionHandler(perms),
		agent.WithEngineNotifier(notifier),
	)
	exec := agent.NewExecutor(client, engine,
		agent.WithMaxRounds(cfg.MaxRounds),
		agent.WithTimeout(cfg.Timeout),
		agent.WithNotifier(notifier),
	)
	logger.Info("starting task",
		"task_id", exec.TaskID(),
		"provider", cfg.Provider,
		"model", client.Model(),
		"workdir", workingDir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logEvents(logger, notifier.Events())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	answer, execErr := exec.Execute(ctx, task)
	notifier.Close()
	wg.Wait()
	if execErr != nil {
		return execErr
	}

	fmt.Println(answer)
	return nil
}

func logEvents(logger *slog.Logger, events <-chan agent.Event) {
	for ev := range events {
		switch ev.Kind {
		case agent.EventError:
			logger.Error(ev.Message)
		case agent.EventWarning, agent.EventLoopDetected:
			logger.Warn(ev.Message)
		case agent.EventToolStart, agent.EventRoundStart:
			logger.Info(ev.Message)
		default:
			logger.Debug(ev.Message, "kind", string(ev.Kind))
		}
	}
}

// promptPermission asks on the terminal before a destructive operation.
func promptPermission(_ context.Context, pending agent.PendingPermission) (bool, error) {
	fmt.Fprintf(os.Stderr, "\n[%s] %s\n", pending.ToolName, pending.Description)
	if pending.DiffPreview != "" {
		fmt.Fprintln(os.Stderr, pending.DiffPreview)
	}
	fmt.Fprint(os.Stderr, "Allow? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
