package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/message"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/monitor"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 8787

var version = "dev"

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:                  "relay-api",
		Usage:                 "Relay Elementor form submissions to WhatsApp",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the webhook server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "zapi-instance-id",
				Usage:   "Z-API instance id",
				Sources: cli.EnvVars("ZAPI_INSTANCE_ID"),
			},
			&cli.StringFlag{
				Name:    "zapi-instance-token",
				Usage:   "Z-API instance token",
				Sources: cli.EnvVars("ZAPI_INSTANCE_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "zapi-client-token",
				Usage:   "Z-API account security token",
				Sources: cli.EnvVars("ZAPI_CLIENT_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "zapi-base-url",
				Usage:   "Z-API base URL",
				Sources: cli.EnvVars("ZAPI_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "store-driver",
				Usage:   "Configuration store driver (d1, postgres)",
				Sources: cli.EnvVars("STORE_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection URL",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "cloudflare-account-id",
				Usage:   "Cloudflare account id of the D1 database",
				Sources: cli.EnvVars("CLOUDFLARE_ACCOUNT_ID"),
			},
			&cli.StringFlag{
				Name:    "cloudflare-database-id",
				Usage:   "D1 database id",
				Sources: cli.EnvVars("CLOUDFLARE_DATABASE_ID", "D1_DATABASE_ID"),
			},
			&cli.StringFlag{
				Name:    "cloudflare-api-token",
				Usage:   "Cloudflare API token with D1 access",
				Sources: cli.EnvVars("CLOUDFLARE_API_TOKEN"),
			},
			&cli.BoolFlag{
				Name:    "auto-migrate",
				Usage:   "Create the store schema on startup",
				Sources: cli.EnvVars("AUTO_MIGRATE"),
			},
			&cli.StringFlag{
				Name:    "legacy-recipients",
				Usage:   "Comma separated phones that receive legacy form submissions",
				Sources: cli.EnvVars("LEGACY_RECIPIENTS"),
			},
			&cli.StringFlag{
				Name:    "legacy-aliases",
				Usage:   "YAML file overriding the legacy field alias table",
				Sources: cli.EnvVars("LEGACY_ALIASES_FILE"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "Timezone of the submission timestamp",
				Value:   message.DefaultTimezone,
				Sources: cli.EnvVars("MESSAGE_TIMEZONE"),
			},
			&cli.IntFlag{
				Name:    "dispatch-concurrency",
				Usage:   "Maximum concurrent sends per submission",
				Value:   10,
				Sources: cli.EnvVars("DISPATCH_CONCURRENCY"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "monitoring-enabled",
				Usage:   "Poll the Z-API instance and alert on connectivity changes",
				Sources: cli.EnvVars("MONITORING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "monitoring-schedule",
				Usage:   "Cron schedule of the monitoring check",
				Value:   monitor.DefaultSchedule,
				Sources: cli.EnvVars("MONITORING_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "monitor-state-url",
				Usage:   "Redis URL holding monitoring state, defaults to the configuration store",
				Sources: cli.EnvVars("MONITOR_STATE_URL"),
			},
			&cli.StringFlag{
				Name:    "alert-email",
				Usage:   "Address receiving connectivity alerts",
				Sources: cli.EnvVars("ALERT_EMAIL"),
			},
			&cli.StringFlag{
				Name:    "alert-phone",
				Usage:   "WhatsApp phone receiving backup alerts",
				Sources: cli.EnvVars("ALERT_PHONE"),
			},
			&cli.StringFlag{
				Name:    "alert-from",
				Usage:   "Sender address of alert emails",
				Value:   "monitor@elementor-whatsapp.local",
				Sources: cli.EnvVars("ALERT_FROM_EMAIL"),
			},
			&cli.StringFlag{
				Name:    "sendgrid-api-key",
				Usage:   "SendGrid API key for alert emails",
				Sources: cli.EnvVars("SENDGRID_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP relay used when SendGrid is not configured",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP relay port",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return run(ctx, configFromCommand(command))
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
