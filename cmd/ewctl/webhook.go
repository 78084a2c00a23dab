package main

import (
	"context"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/webhookclient"
	cli "github.com/urfave/cli/v3"
)

func (a *app) webhookCommand() *cli.Command {
	return &cli.Command{
		Name:  "webhook",
		Usage: "Exercise the relay webhook",
		Commands: []*cli.Command{
			{
				Name:      "test",
				Usage:     "Post a sample submission to the relay",
				ArgsUsage: "<form-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Payload format (json, form)",
						Value: webhookclient.FormatJSON,
					},
					&cli.StringSliceFlag{
						Name:    "field",
						Aliases: []string{"f"},
						Usage:   "Field as key=value, replaces the sample data when given",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Relay base URL, defaults to cloudflare.worker_url",
					},
				},
				Action: a.testWebhook,
			},
		},
	}
}

func (a *app) testWebhook(ctx context.Context, command *cli.Command) error {
	formID, err := firstArg(command, "form-id")
	if err != nil {
		return err
	}

	fields := webhookclient.SampleData()

	if command.IsSet("field") {
		if fields, err = webhookclient.ParseFields(command.StringSlice("field")); err != nil {
			return err
		}
	}

	baseURL := command.String("url")
	if baseURL == "" {
		baseURL = a.cfg.Cloudflare.WorkerURL
	}

	resp, err := webhookclient.NewClient(baseURL).Send(ctx, webhookclient.Request{
		FormID: formID,
		Format: command.String("format"),
		Fields: fields,
	})
	if err != nil {
		return err
	}

	a.printf("Status: %d (%dms)\n%s\n", resp.StatusCode, resp.Duration.Milliseconds(), resp.Pretty())

	return nil
}
