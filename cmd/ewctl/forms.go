package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func formFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Form name"},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Form description"},
		&cli.StringSliceFlag{Name: "field", Aliases: []string{"f"}, Usage: "Field as elementor_id:Label[:type], repeatable"},
		&cli.StringSliceFlag{Name: "contact", Usage: "Contact id to receive submissions, repeatable"},
		&cli.StringSliceFlag{Name: "phone", Usage: "Phone number to receive submissions, repeatable"},
	}
}

func (a *app) formsService(ctx context.Context) (*services.Forms, error) {
	store, err := a.persistence(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewForms(store), nil
}

func (a *app) formsCommand() *cli.Command {
	return &cli.Command{
		Name:    "forms",
		Aliases: []string{"f"},
		Usage:   "Manage webhook forms",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List forms",
				Action:  a.listForms,
			},
			{
				Name:      "show",
				Usage:     "Show a form with its fields and recipients",
				ArgsUsage: "<id>",
				Action:    a.showForm,
			},
			{
				Name:  "create",
				Usage: "Create a form",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Form id, derived from the name when empty"},
				}, formFlags()...),
				Action: a.createForm,
			},
			{
				Name:      "update",
				Usage:     "Update a form; fields and recipients are replaced when given",
				ArgsUsage: "<id>",
				Flags:     formFlags(),
				Action:    a.updateForm,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a form with its fields and recipients",
				ArgsUsage: "<id>",
				Action:    a.deleteForm,
			},
			{
				Name:      "export",
				Usage:     "Export a form as JSON",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: a.exportForm,
			},
			{
				Name:      "import",
				Usage:     "Create a form from an exported JSON file",
				ArgsUsage: "<file>",
				Action:    a.importForm,
			},
		},
	}
}

func (a *app) listForms(ctx context.Context, _ *cli.Command) error {
	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	forms, err := svc.List(ctx)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(forms)
	}

	if len(forms) == 0 {
		a.printf("No forms found\n")

		return nil
	}

	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tFIELDS\tRECIPIENTS\tUPDATED")

	for _, form := range forms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", form.ID, form.Name, form.FieldCount, form.RecipientCount, formatTime(form.UpdatedAt))
	}

	return w.Flush()
}

func (a *app) showForm(ctx context.Context, command *cli.Command) error {
	id, err := firstArg(command, "id")
	if err != nil {
		return err
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	form, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(form)
	}

	a.printForm(form)

	return nil
}

func (a *app) printForm(form *models.Form) {
	w := a.table()
	fmt.Fprintf(w, "ID:\t%s\n", form.ID)
	fmt.Fprintf(w, "Name:\t%s\n", form.Name)

	if form.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", form.Description)
	}

	fmt.Fprintf(w, "Webhook:\t%s\n", a.webhookURL(form.ID))
	_ = w.Flush()

	a.printf("\nFields (%d)\n", len(form.Fields))

	w = a.table()
	fmt.Fprintln(w, "POS\tELEMENTOR ID\tLABEL\tTYPE\tREQUIRED")

	for _, field := range form.OrderedFields() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", field.Order, field.FieldID, field.Label, field.Type, field.Required)
	}

	_ = w.Flush()

	a.printf("\nRecipients (%d)\n", len(form.Recipients))

	w = a.table()
	fmt.Fprintln(w, "PHONE\tLABEL\tCONTACT")

	for _, recipient := range form.Recipients {
		contact := "-"
		if recipient.ContactID != nil {
			contact = strconv.FormatInt(*recipient.ContactID, 10)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", recipient.Phone, recipient.Label, contact)
	}

	_ = w.Flush()
}

func (a *app) createForm(ctx context.Context, command *cli.Command) error {
	fields, err := parseFields(command.StringSlice("field"))
	if err != nil {
		return err
	}

	recipients, err := parseRecipients(command.StringSlice("contact"), command.StringSlice("phone"))
	if err != nil {
		return err
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	form, err := svc.Create(ctx, services.FormInput{
		ID:          command.String("id"),
		Name:        command.String("name"),
		Description: command.String("description"),
		Fields:      fields,
		Recipients:  recipients,
	})
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(form)
	}

	a.printf("Created form %s\nWebhook URL: %s\n", form.ID, a.webhookURL(form.ID))

	return nil
}

func (a *app) updateForm(ctx context.Context, command *cli.Command) error {
	id, err := firstArg(command, "id")
	if err != nil {
		return err
	}

	var update services.FormUpdate

	if command.IsSet("name") {
		name := command.String("name")
		update.Name = &name
	}

	if command.IsSet("description") {
		description := command.String("description")
		update.Description = &description
	}

	if command.IsSet("field") {
		if update.Fields, err = parseFields(command.StringSlice("field")); err != nil {
			return err
		}
	}

	if command.IsSet("contact") || command.IsSet("phone") {
		if update.Recipients, err = parseRecipients(command.StringSlice("contact"), command.StringSlice("phone")); err != nil {
			return err
		}
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	form, err := svc.Update(ctx, id, update)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(form)
	}

	a.printf("Updated form %s\n", form.ID)

	return nil
}

func (a *app) deleteForm(ctx context.Context, command *cli.Command) error {
	id, err := firstArg(command, "id")
	if err != nil {
		return err
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	if err := svc.Delete(ctx, id); err != nil {
		return err
	}

	a.printf("Deleted form %s\n", id)

	return nil
}

func (a *app) exportForm(ctx context.Context, command *cli.Command) error {
	id, err := firstArg(command, "id")
	if err != nil {
		return err
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	export, err := svc.Export(ctx, id, a.cfg.Cloudflare.WorkerURL)
	if err != nil {
		return err
	}

	path := command.String("output")
	if path == "" {
		return a.printJSON(export)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	out := a.out
	a.out = file

	err = a.printJSON(export)
	a.out = out

	if err != nil {
		return err
	}

	a.printf("Exported form %s to %s\n", id, path)

	return nil
}

func (a *app) importForm(ctx context.Context, command *cli.Command) error {
	path, err := firstArg(command, "file")
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	svc, err := a.formsService(ctx)
	if err != nil {
		return err
	}

	form, err := svc.Import(ctx, raw)
	if err != nil {
		return err
	}

	a.printf("Imported form %s with %d fields and %d recipients\n", form.ID, len(form.Fields), len(form.Recipients))

	return nil
}

func parseFields(specs []string) ([]models.Field, error) {
	fields := make([]models.Field, 0, len(specs))

	for _, spec := range specs {
		field, err := services.ParseFieldSpec(spec)
		if err != nil {
			return nil, err
		}

		fields = append(fields, field)
	}

	return fields, nil
}

func parseRecipients(contactIDs, phones []string) ([]services.RecipientInput, error) {
	recipients := make([]services.RecipientInput, 0, len(contactIDs)+len(phones))

	for _, raw := range contactIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid contact id '%s': %w", raw, err)
		}

		recipients = append(recipients, services.RecipientInput{ContactID: &id})
	}

	for _, phone := range phones {
		recipients = append(recipients, services.RecipientInput{Phone: phone})
	}

	return recipients, nil
}
