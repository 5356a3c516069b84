package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/docvoice/internal/controller"
	"github.com/alkime/docvoice/internal/conversion"
	"github.com/alkime/docvoice/internal/keyring"
	"github.com/alkime/docvoice/internal/logger"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/player"
	"github.com/alkime/docvoice/internal/tui"
	"github.com/alkime/docvoice/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
)

// Globals are flags shared by every command.
type Globals struct {
	URL              string        `flag:"" env:"DOCVOICE_URL" default:"${default_url}" help:"Conversion service URL"`
	Timeout          time.Duration `flag:"" env:"DOCVOICE_TIMEOUT" default:"5m" help:"Request timeout"`
	MaxResponseBytes int64         `flag:"" env:"DOCVOICE_MAX_RESPONSE_BYTES" default:"268435456" help:"Largest accepted response (256MB)"`
	LogFile          string        `flag:"" env:"DOCVOICE_LOG_FILE" type:"path" help:"Log file used while the terminal UI runs"`
	Debug            bool          `flag:"" help:"Enable debug logging"`
}

// CLI defines the docvoice command structure.
type CLI struct {
	Globals

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch the terminal UI"`

	// Subcommands
	Convert ConvertCmd `cmd:"" help:"Convert a document without the terminal UI"`
	Config  ConfigCmd  `cmd:"" help:"Manage API keys used by the conversion service"`
}

func (g *Globals) client() (*conversion.Client, error) {
	client, err := conversion.NewClient(conversion.Config{
		BaseURL:          g.URL,
		Timeout:          g.Timeout,
		MaxResponseBytes: g.MaxResponseBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion client: %w", err)
	}

	return client, nil
}

// logPath returns where the TUI writes its logs.
func (g *Globals) logPath() string {
	if g.LogFile != "" {
		return g.LogFile
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "docvoice", "docvoice.log")
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	Path      string `arg:"" optional:"" help:"Document to convert (.pdf, .docx, .xml, .txt)"`
	Operation string `flag:"" short:"o" enum:"${operations}" default:"to-speech" help:"Preselected operation: ${enum}"`
	Downloads string `flag:"" env:"DOCVOICE_DOWNLOADS" type:"path" help:"Directory results are downloaded to (default: ~/Downloads)"`
	Player    string `flag:"" env:"DOCVOICE_PLAYER" help:"Audio player command (default: system opener)"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(g *Globals) error {
	// the TUI owns the terminal, so logs go to a file
	log, closer, err := logger.SetupFileLogger(g.logPath(), g.Debug)
	if err != nil {
		return err
	}
	defer closer.Close()

	op, err := operation.Parse(c.Operation)
	if err != nil {
		return err
	}

	client, err := g.client()
	if err != nil {
		return err
	}

	// audio is held as files so an external player can open it
	session, err := workdir.NewSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(session); err != nil {
			log.Warn("Failed to remove session directory", "dir", session, "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctl := controller.New(client,
		controller.WithAudioStore(controller.NewDirStore(session)),
		controller.WithLogger(log),
	)
	defer ctl.Close()

	downloads := c.Downloads
	if downloads == "" {
		downloads = workdir.DownloadsDir()
	}

	log.Info("Starting TUI", "service", g.URL, "downloads", downloads)

	m := tui.New(ctx, ctl, tui.Config{
		Path:        c.Path,
		Operation:   op,
		DownloadDir: downloads,
		Player:      &player.External{Cmd: c.Player},
		Cancel:      cancel,
	})

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// ConvertCmd submits one document and saves the result.
type ConvertCmd struct {
	Path      string `arg:"" type:"existingfile" help:"Document to convert (.pdf, .docx, .xml, .txt)"`
	Operation string `flag:"" short:"o" enum:"${operations}" default:"summarize" help:"Operation: ${enum}"`
	Output    string `flag:"" short:"d" type:"path" default:"." help:"Directory the result is saved to"`

	// stdout receives the saved path; tests replace it.
	stdout io.Writer `kong:"-"`
}

// Run executes the convert command.
func (c *ConvertCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.run(ctx, g)
}

func (c *ConvertCmd) run(ctx context.Context, g *Globals) error {
	op, err := operation.Parse(c.Operation)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	client, err := g.client()
	if err != nil {
		return err
	}

	ctl := controller.New(client)
	defer ctl.Close()

	updates, unsubscribe := ctl.Subscribe()
	defer unsubscribe()

	go logProgress(updates)

	doc := controller.Document{Name: filepath.Base(c.Path), Data: data}
	if err := ctl.Submit(ctx, doc, op); err != nil {
		return err
	}

	switch s := ctl.State().(type) {
	case controller.Failed:
		return fmt.Errorf("%s failed for %s: %s", s.Operation, s.FileName, s.Message)

	case controller.Succeeded:
		path, err := ctl.DownloadCurrentResult(c.Output)
		if err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}

		out := c.stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, path)

		return nil

	default:
		return fmt.Errorf("conversion ended in unexpected state %s", s.Phase())
	}
}

// logProgress reports upload progress until the subscription closes.
func logProgress(updates <-chan controller.State) {
	last := -1
	for s := range updates {
		inFlight, ok := s.(controller.InFlight)
		if !ok || inFlight.Progress == last {
			continue
		}

		last = inFlight.Progress
		slog.Info("Uploading", "file", inFlight.FileName, "progress", inFlight.Progress)
	}
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	for _, apiKey := range keyring.AllAPIKeys() {
		switch {
		case os.Getenv(apiKey.EnvVar()) != "":
			fmt.Printf("%s: set in %s\n", apiKey.DisplayName(), apiKey.EnvVar())
		case keyring.IsSet(apiKey):
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		default:
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
		}
	}

	fmt.Println("\nRun 'docvoice config set-key <service> <key>' to configure.")

	return nil
}

func main() {
	// Set up text-based logger for CLI output; the TUI swaps in a file logger
	level := new(slog.LevelVar)
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("docvoice"),
		kong.Description("Turn documents into speech and summaries."),
		kong.UsageOnError(),
		kong.Vars{
			"operations":  strings.Join(operation.Names(), ","),
			"default_url": conversion.DefaultBaseURL,
		},
	)
	if cli.Debug {
		level.Set(slog.LevelDebug)
	}

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
