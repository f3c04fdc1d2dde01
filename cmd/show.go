package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/folia-dh/folia/pkg/iiif"
)

// ShowCommand creates the show command
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one document by manifest id",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one manifest id")
			}
			id := c.Args().First()

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			svc, store, err := openSearchService(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					fmt.Printf("Warning: failed to close index: %v\n", err)
				}
			}()

			doc, err := svc.GetDocument(id)
			if err != nil {
				return fmt.Errorf("fetching document: %w", err)
			}
			if doc == nil {
				return fmt.Errorf("no document with id %s", id)
			}

			renderDocument(doc)
			return nil
		},
	}
}

func renderDocument(doc *iiif.Document) {
	sep := iiif.MultiValueSeparator
	fmt.Println(titleStyle.Render(iiif.JoinValues(doc.Label, sep)))
	fmt.Printf("%s %s\n", labelStyle.Render("Id:"), urlStyle.Render(doc.ID))
	fmt.Printf("%s %s\n", labelStyle.Render("Description:"), iiif.JoinValues(doc.Description, sep))
	fmt.Printf("%s %s\n", labelStyle.Render("Date:"), iiif.JoinValues(doc.Date, sep))
	fmt.Printf("%s %s\n", labelStyle.Render("Language:"), iiif.JoinValues(doc.Language, sep))
	fmt.Printf("%s %s\n", labelStyle.Render("Material:"), iiif.JoinValues(doc.Material, sep))
	fmt.Printf("%s %s\n", labelStyle.Render("Author:"), iiif.JoinValues(doc.Author, sep))
	fmt.Printf("%s %s\n", labelStyle.Render("Repository:"), doc.Repository)
	if doc.Thumbnail != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Thumbnail:"), urlStyle.Render(doc.Thumbnail))
	}
}
