package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/monitor"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

var errMigrationUnsupported = errors.New("store does not support migrations")

type migrator interface {
	Migrate(ctx context.Context) (int, error)
}

func (a *app) monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Inspect the Z-API connectivity monitor",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Run one monitoring check and alert on a transition",
				Action: a.monitorCheck,
			},
			{
				Name:  "history",
				Usage: "Show recorded connectivity transitions",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum entries"},
				},
				Action: a.monitorHistory,
			},
		},
	}
}

// stateStore prefers the Redis state store and falls back to the configuration store.
func (a *app) stateStore(ctx context.Context) (persistence.MonitoringRepository, func() error, error) {
	var fallback persistence.MonitoringRepository

	stateURL := a.cfg.Monitoring.StateURL
	if !strings.HasPrefix(stateURL, "redis://") && !strings.HasPrefix(stateURL, "rediss://") {
		store, err := a.persistence(ctx)
		if err != nil {
			return nil, nil, err
		}

		fallback = store
	}

	return cmd.NewStateStore(ctx, a.logger, stateURL, fallback)
}

func (a *app) monitorCheck(ctx context.Context, _ *cli.Command) error {
	state, closeState, err := a.stateStore(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = closeState()
	}()

	client := zapi.New(a.cfg.ZAPIConfig())

	alertCfg := notify.AlerterConfig{
		EmailTo:  a.cfg.Monitoring.AlertEmail,
		WhatsApp: client,
		Phone:    a.cfg.Monitoring.AlertPhone,
	}

	if sender := notify.NewSendGridSender(a.cfg.SendGridConfig(), a.logger); sender != nil {
		alertCfg.Email = sender
	}

	result, err := monitor.New(client, state, notify.NewAlerter(alertCfg, a.logger), a.logger).Check(ctx)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(result)
	}

	w := a.table()
	fmt.Fprintf(w, "Connected:\t%t\n", result.Connected)
	fmt.Fprintf(w, "Session:\t%t\n", result.Session)
	fmt.Fprintf(w, "First check:\t%t\n", result.Bootstrap)
	fmt.Fprintf(w, "Changed:\t%t\n", result.Transitioned)
	fmt.Fprintf(w, "Alerted:\t%t\n", result.Alerted)

	if result.PollError != "" {
		fmt.Fprintf(w, "Poll error:\t%s\n", result.PollError)
	}

	if result.AlertError != "" {
		fmt.Fprintf(w, "Alert error:\t%s\n", result.AlertError)
	}

	return w.Flush()
}

func (a *app) monitorHistory(ctx context.Context, command *cli.Command) error {
	state, closeState, err := a.stateStore(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = closeState()
	}()

	entries, err := state.History(ctx, monitor.DefaultKey, command.Int("limit"))
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(entries)
	}

	if len(entries) == 0 {
		a.printf("No monitoring history\n")

		return nil
	}

	w := a.table()
	fmt.Fprintln(w, "RECORDED\tCONNECTED\tSESSION")

	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%t\t%t\n", formatTime(entry.RecordedAt), entry.Connected, entry.Session)
	}

	return w.Flush()
}

func (a *app) statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show dashboard counters",
		Action: func(ctx context.Context, _ *cli.Command) error {
			store, err := a.persistence(ctx)
			if err != nil {
				return err
			}

			stats, err := store.Stats(ctx, time.Now())
			if err != nil {
				return err
			}

			if a.json {
				return a.printJSON(stats)
			}

			w := a.table()
			fmt.Fprintf(w, "Forms:\t%d\n", stats.TotalForms)
			fmt.Fprintf(w, "Contacts:\t%d\n", stats.TotalContacts)
			fmt.Fprintf(w, "Webhooks today:\t%d\n", stats.WebhooksToday)
			fmt.Fprintf(w, "Last webhook:\t%s\n", formatTime(stats.LastWebhook))
			fmt.Fprintf(w, "WhatsApp:\t%s\n", stats.ConnectionStatus)

			return w.Flush()
		},
	}
}

func (a *app) dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Manage the configuration store",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create or upgrade the store schema",
				Action: func(ctx context.Context, _ *cli.Command) error {
					store, err := a.persistence(ctx)
					if err != nil {
						return err
					}

					m, ok := store.(migrator)
					if !ok {
						return errMigrationUnsupported
					}

					applied, err := m.Migrate(ctx)
					if err != nil {
						return err
					}

					a.printf("Applied %d migrations\n", applied)

					return nil
				},
			},
		},
	}
}

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and edit the CLI configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets masked",
				Action: func(_ context.Context, _ *cli.Command) error {
					if a.json {
						return a.printJSON(a.cfg.Masked())
					}

					data, err := yaml.Marshal(a.cfg.Masked())
					if err != nil {
						return fmt.Errorf("failed to encode config: %w", err)
					}

					a.printf("%s", data)

					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Set a key in the config file, e.g. zapi.instance_id",
				ArgsUsage: "<key> <value>",
				Action: func(_ context.Context, command *cli.Command) error {
					if command.Args().Len() != 2 {
						return fmt.Errorf("%w: expected <key> <value>", errMissingArgument)
					}

					if err := a.cfg.Set(command.Args().Get(0), command.Args().Get(1)); err != nil {
						return err
					}

					path := command.String("config")
					if err := SaveConfig(a.cfg, path); err != nil {
						return err
					}

					a.printf("Saved %s\n", command.Args().Get(0))

					return nil
				},
			},
		},
	}
}
