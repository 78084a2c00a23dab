package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/log"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

const timeLayout = "2006-01-02 15:04"

var errMissingArgument = errors.New("missing argument")

// app carries the state shared by every subcommand. cfg and store may be preset by tests.
type app struct {
	out       io.Writer
	cfg       *Config
	logger    *slog.Logger
	store     persistence.Persistence
	ownsStore bool
	json      bool
}

func newApp(out io.Writer) *app {
	return &app{out: out}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:                  "ewctl",
		Usage:                 "Manage Elementor WhatsApp forms, contacts and monitoring",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default $HOME/.config/ewctl/config.yaml)",
				Sources: cli.EnvVars("EWCTL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("EWCTL_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of tables",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.formsCommand(),
			a.contactsCommand(),
			a.webhookCommand(),
			a.monitorCommand(),
			a.statsCommand(),
			a.dbCommand(),
			a.configCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, command *cli.Command) (context.Context, error) {
	a.logger = log.New(os.Stderr, command.String("log-level")).With("module", "ewctl")
	a.json = command.Bool("json")

	if a.cfg != nil {
		return ctx, nil
	}

	cfg, err := LoadConfig(command.String("config"))
	if err != nil {
		return ctx, err
	}

	a.cfg = cfg

	return ctx, nil
}

func (a *app) after(ctx context.Context, _ *cli.Command) error {
	if !a.ownsStore || a.store == nil {
		return nil
	}

	return a.store.Close(ctx)
}

// persistence opens the configuration store on first use.
func (a *app) persistence(ctx context.Context) (persistence.Persistence, error) {
	if a.store != nil {
		return a.store, nil
	}

	p, err := cmd.NewPersistence(ctx, a.logger, a.cfg.StoreConfig())
	if err != nil {
		return nil, err
	}

	a.store = p
	a.ownsStore = true

	return p, nil
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *app) printJSON(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) webhookURL(formID string) string {
	return a.cfg.Cloudflare.WorkerURL + "/webhook/" + formID
}

func firstArg(command *cli.Command, name string) (string, error) {
	if command.Args().Len() == 0 {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}

	return command.Args().First(), nil
}

func idArg(command *cli.Command) (int64, error) {
	raw, err := firstArg(command, "id")
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id '%s': %w", raw, err)
	}

	return id, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(timeLayout)
}
