package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/folia-dh/folia/pkg/iiif"
	"github.com/folia-dh/folia/pkg/search"
)

// Define styles using lipgloss
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Margin(1, 0, 0, 0)

	facetHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214")).
				Margin(1, 0, 0, 0)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

var titleCaser = cases.Title(language.English)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the manuscript index",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repository",
				Usage: "Filter by repository",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Filter by language",
			},
			&cli.StringFlag{
				Name:  "material",
				Usage: "Filter by material",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Filter by author",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "facets",
				Usage: "Show facet counts for the result set",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
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

			query := strings.Join(c.Args().Slice(), " ")
			filters := search.Filters{
				Repository: c.String("repository"),
				Language:   c.String("language"),
				Material:   c.String("material"),
				Author:     c.String("author"),
			}

			results, err := svc.Search(query, filters, c.Int("page"))
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			renderResults(query, results, c.Bool("facets"))
			return nil
		},
	}
}

func renderResults(query string, results *search.Results, showFacets bool) {
	title := "Catalog"
	if query != "" {
		title = fmt.Sprintf("Results for %q", query)
	}
	fmt.Println(titleStyle.Render(title))

	if results.Total == 0 {
		fmt.Println(noDataStyle.Render("No matching documents"))
		return
	}

	for i, doc := range results.Documents {
		rank := (results.Page-1)*search.PageSize + i + 1
		fmt.Printf("%d. %s\n", rank, labelStyle.Render(iiif.JoinValues(doc.Label, iiif.MultiValueSeparator)))
		fmt.Printf("   %s\n", urlStyle.Render(doc.ID))
		fmt.Printf("   %s\n", metaStyle.Render(documentMeta(doc)))
	}

	fmt.Println(summaryStyle.Render(fmt.Sprintf("%d documents, page %d of %d", results.Total, results.Page, results.TotalPages)))

	if showFacets {
		renderSidebar(results)
	}
}

func documentMeta(doc *iiif.Document) string {
	sep := iiif.MultiValueSeparator
	parts := []string{
		iiif.JoinValues(doc.Date, sep),
		iiif.JoinValues(doc.Language, sep),
		iiif.JoinValues(doc.Material, sep),
		doc.Repository,
	}
	return strings.Join(parts, " · ")
}

func renderSidebar(results *search.Results) {
	for _, category := range []string{"repository", "language", "material", "author"} {
		entries := results.Sidebar[category]
		if len(entries) == 0 {
			continue
		}
		fmt.Println(facetHeaderStyle.Render(titleCaser.String(category)))
		for _, entry := range entries {
			fmt.Printf("  %s (%d)\n", entry.Value, entry.Count)
		}
	}
}
