package main

import (
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/channels/kafka"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store/d1"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
	cli "github.com/urfave/cli/v3"
)

// Config is the resolved server configuration.
type Config struct {
	Port      int
	LogLevel  string
	LogFormat string

	ZAPI  zapi.Config
	Store cmd.StoreConfig

	LegacyRecipients    []string
	LegacyAliasesFile   string
	Timezone            string
	DispatchConcurrency int

	EventBus     string
	KafkaBrokers []string

	Monitoring MonitoringConfig
	OTel       bool
}

// MonitoringConfig drives the connectivity loop and its alert channels.
type MonitoringConfig struct {
	Enabled    bool
	Schedule   string
	StateURL   string
	AlertEmail string
	AlertPhone string
	SendGrid   notify.SendGridConfig
	SMTP       notify.SMTPConfig
}

func configFromCommand(command *cli.Command) Config {
	alertFrom := command.String("alert-from")

	return Config{
		Port:      command.Int("port"),
		LogLevel:  command.String("log-level"),
		LogFormat: command.String("log-format"),
		ZAPI: zapi.Config{
			InstanceID:    command.String("zapi-instance-id"),
			InstanceToken: command.String("zapi-instance-token"),
			ClientToken:   command.String("zapi-client-token"),
			BaseURL:       command.String("zapi-base-url"),
		},
		Store: cmd.StoreConfig{
			Driver:      command.String("store-driver"),
			DatabaseURL: command.String("database-url"),
			D1: d1.Config{
				AccountID:  command.String("cloudflare-account-id"),
				DatabaseID: command.String("cloudflare-database-id"),
				APIToken:   command.String("cloudflare-api-token"),
			},
			AutoMigrate: command.Bool("auto-migrate"),
		},
		LegacyRecipients:    splitList(command.String("legacy-recipients")),
		LegacyAliasesFile:   command.String("legacy-aliases"),
		Timezone:            command.String("timezone"),
		DispatchConcurrency: command.Int("dispatch-concurrency"),
		EventBus:            command.String("event-bus"),
		KafkaBrokers:        kafka.ParseBrokers(command.String("kafka-brokers")),
		Monitoring: MonitoringConfig{
			Enabled:    command.Bool("monitoring-enabled"),
			Schedule:   command.String("monitoring-schedule"),
			StateURL:   command.String("monitor-state-url"),
			AlertEmail: command.String("alert-email"),
			AlertPhone: command.String("alert-phone"),
			SendGrid: notify.SendGridConfig{
				APIKey:    command.String("sendgrid-api-key"),
				FromEmail: alertFrom,
			},
			SMTP: notify.SMTPConfig{
				Host:     command.String("smtp-host"),
				Port:     command.Int("smtp-port"),
				Username: command.String("smtp-username"),
				Password: command.String("smtp-password"),
				From:     alertFrom,
			},
		},
		OTel: command.Bool("otel-enabled"),
	}
}

func splitList(raw string) []string {
	var out []string

	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
