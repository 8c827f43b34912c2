package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/editor"
	"github.com/yolodolo42/sitepilot/internal/store"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load pages, sections and site context from a YAML fixture",
	Long: `Load a YAML fixture into the store. Pages are matched by slug and sections
by key, so seeding the same file twice updates in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List pages",
	RunE:  runPagesList,
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pages",
	Args:  cobra.NoArgs,
	RunE:  runPagesList,
}

var pagesShowCmd = &cobra.Command{
	Use:   "show <id|slug>",
	Short: "Show a page and its sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runPagesShow,
}

var editorCmd = &cobra.Command{
	Use:   "editor",
	Short: "Export and import visual editor documents",
}

var editorExportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Print the editor document for a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runEditorExport,
}

var editorImportCmd = &cobra.Command{
	Use:   "import <slug> <file.json>",
	Short: "Save an editor document back to a page",
	Args:  cobra.ExactArgs(2),
	RunE:  runEditorImport,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent content changes",
	RunE:  runAudit,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent content changes",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(seedCmd, pagesCmd, editorCmd, auditCmd)
	pagesCmd.AddCommand(pagesListCmd, pagesShowCmd)
	editorCmd.AddCommand(editorExportCmd, editorImportCmd)
	auditCmd.AddCommand(auditListCmd)

	pagesShowCmd.Flags().Bool("json", false, "print as JSON")
	editorExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	for _, c := range []*cobra.Command{auditCmd, auditListCmd} {
		c.Flags().Int("limit", 20, "number of entries (0 for all)")
		c.Flags().Bool("json", false, "print as JSON")
	}
}

// withRepo opens the configured store for the duration of fn.
func withRepo(cmd *cobra.Command, fn func(ctx context.Context, repo store.Repository) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(ctx, repo)
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		stats, err := store.Seed(ctx, repo, f)
		if err != nil {
			return err
		}
		site := ""
		if stats.Site {
			site = ", site context"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Seeded %d pages, %d sections%s\n", ui.SymbolCheck, stats.Pages, stats.Sections, site)
		return nil
	})
}

func runPagesList(cmd *cobra.Command, args []string) error {
	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		pages, err := repo.ListPages(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pages) == 0 {
			fmt.Fprintln(out, "No pages. Load some with 'sitepilot seed <file.yaml>'.")
			return nil
		}
		fmt.Fprintln(out, ui.RenderBlocks(terminalWidth(), []agent.UIBlock{pagesTable(pages)}))
		return nil
	})
}

func pagesTable(pages []domain.Page) agent.UIBlock {
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{p.Slug, p.Title, p.ID, p.UpdatedAt.Local().Format(time.DateTime)})
	}
	return agent.TableBlock("Pages", []string{"Slug", "Title", "ID", "Updated"}, rows)
}

func sectionsTable(page domain.Page, sections []domain.Section) agent.UIBlock {
	rows := make([][]string, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, []string{strconv.Itoa(s.OrderIndex), s.Key, s.DisplayTitle(), s.ID})
	}
	return agent.TableBlock(fmt.Sprintf("%s (/%s)", page.Title, page.Slug), []string{"#", "Key", "Title", "ID"}, rows)
}

// findPage resolves ref as an ID first, then as a slug.
func findPage(ctx context.Context, repo store.Repository, ref string) (*domain.Page, error) {
	page, err := repo.GetPage(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		page, err = repo.GetPageBySlug(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("page %q not found", ref)
	}
	return page, err
}

func runPagesShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		page, err := findPage(ctx, repo, args[0])
		if err != nil {
			return err
		}
		sections, err := repo.ListSections(ctx, page.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*domain.Page
				Sections []domain.Section `json:"sections"`
			}{page, sections})
		}

		fmt.Fprintln(out, ui.RenderBlocks(terminalWidth(), []agent.UIBlock{
			sectionsTable(*page, sections),
		}))
		return nil
	})
}

func runEditorExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		doc, err := editor.NewAdapter(repo, nil).Load(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')

		if output == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %d blocks to %s\n", ui.SymbolCheck, len(doc.Content), output)
		return nil
	})
}

func runEditorImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	doc, err := editor.ParseDocument(data)
	if err != nil {
		return err
	}

	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		section, err := editor.NewAdapter(repo, nil).Save(ctx, args[0], *doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %d blocks to section %s\n", ui.SymbolCheck, len(doc.Content), section.ID)
		return nil
	})
}

func runAudit(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withRepo(cmd, func(ctx context.Context, repo store.Repository) error {
		entries, err := repo.ListAudit(ctx, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			if entries == nil {
				entries = []domain.AuditEntry{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No changes recorded.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.CreatedAt.Local().Format(time.DateTime),
				e.AgentName,
				e.Action,
				oneLine(e.Goal, 60),
			})
		}
		fmt.Fprintln(out, ui.RenderBlocks(terminalWidth(), []agent.UIBlock{
			agent.TableBlock("Audit log ("+strconv.Itoa(len(entries))+")", []string{"When", "Agent", "Action", "Goal"}, rows),
		}))
		return nil
	})
}
