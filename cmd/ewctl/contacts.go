package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func contactFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Contact name"},
		&cli.StringFlag{Name: "phone", Aliases: []string{"p"}, Usage: "Phone number with country code"},
		&cli.StringFlag{Name: "company", Usage: "Company"},
		&cli.StringFlag{Name: "role", Usage: "Role"},
		&cli.StringFlag{Name: "notes", Usage: "Free text notes"},
	}
}

func (a *app) contactsService(ctx context.Context) (*services.Contacts, error) {
	store, err := a.persistence(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewContacts(store, a.logger), nil
}

func (a *app) contactsCommand() *cli.Command {
	return &cli.Command{
		Name:    "contacts",
		Aliases: []string{"c"},
		Usage:   "Manage the contact book",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List contacts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by name, company or phone"},
				},
				Action: a.listContacts,
			},
			{
				Name:   "add",
				Usage:  "Add a contact",
				Flags:  contactFlags(),
				Action: a.addContact,
			},
			{
				Name:      "edit",
				Usage:     "Edit a contact",
				ArgsUsage: "<id>",
				Flags:     contactFlags(),
				Action:    a.editContact,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a contact, linked recipients keep its phone",
				ArgsUsage: "<id>",
				Action:    a.deleteContact,
			},
			{
				Name:  "export-csv",
				Usage: "Export contacts as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: a.exportContacts,
			},
			{
				Name:      "import-csv",
				Usage:     "Import contacts from CSV",
				ArgsUsage: "<file>",
				Action:    a.importContacts,
			},
		},
	}
}

func (a *app) listContacts(ctx context.Context, command *cli.Command) error {
	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	contacts, err := svc.List(ctx, command.String("search"))
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(contacts)
	}

	if len(contacts) == 0 {
		a.printf("No contacts found\n")

		return nil
	}

	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tCOMPANY\tROLE\tFORMS")

	for _, contact := range contacts {
		forms := "-"
		if len(contact.FormIDs) > 0 {
			forms = strings.Join(contact.FormIDs, ",")
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			contact.ID, contact.Name, contact.Phone, dash(contact.Company), dash(contact.Role), forms)
	}

	return w.Flush()
}

func (a *app) addContact(ctx context.Context, command *cli.Command) error {
	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	contact := &models.Contact{
		Name:    command.String("name"),
		Phone:   command.String("phone"),
		Company: command.String("company"),
		Role:    command.String("role"),
		Notes:   command.String("notes"),
	}

	if err := svc.Create(ctx, contact); err != nil {
		return err
	}

	if a.json {
		return a.printJSON(contact)
	}

	a.printf("Added contact %d (%s, %s)\n", contact.ID, contact.Name, contact.Phone)

	return nil
}

func (a *app) editContact(ctx context.Context, command *cli.Command) error {
	id, err := idArg(command)
	if err != nil {
		return err
	}

	var update services.ContactUpdate

	for flag, target := range map[string]**string{
		"name":    &update.Name,
		"phone":   &update.Phone,
		"company": &update.Company,
		"role":    &update.Role,
		"notes":   &update.Notes,
	} {
		if command.IsSet(flag) {
			value := command.String(flag)
			*target = &value
		}
	}

	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	contact, err := svc.Update(ctx, id, update)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(contact)
	}

	a.printf("Updated contact %d\n", contact.ID)

	return nil
}

func (a *app) deleteContact(ctx context.Context, command *cli.Command) error {
	id, err := idArg(command)
	if err != nil {
		return err
	}

	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	if err := svc.Delete(ctx, id); err != nil {
		return err
	}

	a.printf("Deleted contact %d\n", id)

	return nil
}

func (a *app) exportContacts(ctx context.Context, command *cli.Command) error {
	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = a.out

	path := command.String("output")
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer file.Close()

		w = file
	}

	if err := svc.ExportCSV(ctx, w); err != nil {
		return err
	}

	if path != "" {
		a.printf("Exported contacts to %s\n", path)
	}

	return nil
}

func (a *app) importContacts(ctx context.Context, command *cli.Command) error {
	path, err := firstArg(command, "file")
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	svc, err := a.contactsService(ctx)
	if err != nil {
		return err
	}

	report, err := svc.ImportCSV(ctx, file)
	if err != nil {
		return err
	}

	if a.json {
		return a.printJSON(report)
	}

	a.printf("Imported %d contacts, skipped %d\n", report.Imported, report.Skipped)

	for _, msg := range report.Errors {
		a.printf("  %s\n", msg)
	}

	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
