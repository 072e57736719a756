package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"survey-drafts/internal/config"
	"survey-drafts/internal/db"
	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

type storeOverrides struct {
	backend    string
	dataDir    string
	sqlitePath string
	key        string
}

func (o storeOverrides) apply(cfg *config.Config) {
	if o.backend != "" {
		cfg.StoreBackend = o.backend
	}
	if o.dataDir != "" {
		cfg.DraftDataDir = o.dataDir
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	if o.key != "" {
		cfg.DraftStorageKey = o.key
	}
}

type opener func(ctx context.Context, o storeOverrides, log *logger.Logger) (*drafts.Manager, db.Closer, error)

type app struct {
	open      opener
	overrides storeOverrides
	verbose   bool
}

// withManager opens the store for one command and closes it afterwards
func (a *app) withManager(cmd *cobra.Command, fn func(ctx context.Context, m *drafts.Manager) error) error {
	log := logger.Nop()
	if a.verbose {
		l, err := logger.New("dev")
		if err != nil {
			return err
		}
		log = l
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m, closer, err := a.open(ctx, a.overrides, log)
	if err != nil {
		return fmt.Errorf("opening draft store: %w", err)
	}
	defer func() { _ = closer() }()

	return fn(ctx, m)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "draftctl",
		Short:         "Inspect the local survey draft store",
		Long:          `List, show, export and delete survey drafts directly in the configured store backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.overrides.backend, "backend", "", "store backend (memory, file, sqlite, postgres, redis)")
	f.StringVar(&a.overrides.dataDir, "data-dir", "", "directory of the file backend")
	f.StringVar(&a.overrides.sqlitePath, "sqlite-path", "", "database path of the sqlite backend")
	f.StringVar(&a.overrides.key, "key", "", "storage key holding the draft list")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log store access to stderr")

	root.AddCommand(newListCmd(a), newShowCmd(a), newDeleteCmd(a), newExportCmd(a))
	return root
}

func newListCmd(a *app) *cobra.Command {
	var (
		operator  int
		anonymous bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if anonymous && cmd.Flags().Changed("operator") {
				return fmt.Errorf("--operator and --anonymous are mutually exclusive")
			}
			return a.withManager(cmd, func(ctx context.Context, m *drafts.Manager) error {
				var list []models.Draft
				switch {
				case anonymous:
					list = m.ListForOperator(ctx, nil)
				case cmd.Flags().Changed("operator"):
					list = m.ListForOperator(ctx, &models.Operator{ID: operator})
				default:
					list = m.All(ctx)
				}
				sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
				return printList(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().IntVar(&operator, "operator", 0, "only drafts of this operator id")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "only drafts saved without a login")
	return cmd
}

func printList(out io.Writer, list []models.Draft) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(out, "(no drafts)")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPERATOR\tTYPE\tRECORD\tUPDATED\tLABEL")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, ownerLabel(d.UserID), d.FormType, recordLabel(d.LinkedRecordID),
			d.UpdatedAt.Local().Format(time.DateTime), d.Label)
	}
	return tw.Flush()
}

func ownerLabel(id *int) string {
	if id == nil {
		return "-"
	}
	return strconv.Itoa(*id)
}

func recordLabel(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func findDraft(ctx context.Context, m *drafts.Manager, id string) (*models.Draft, error) {
	for _, d := range m.All(ctx) {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", drafts.ErrDraftNotFound, id)
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Print one draft as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *drafts.Manager) error {
				d, err := findDraft(ctx, m, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Remove a draft from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *drafts.Manager) error {
				if _, err := findDraft(ctx, m, args[0]); err != nil {
					return err
				}
				if err := m.DeleteByID(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole draft list as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *drafts.Manager) error {
				list := m.All(ctx)
				if list == nil {
					list = []models.Draft{}
				}
				data, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				data = append(data, '\n')

				if outPath == "" || outPath == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(outPath, data, 0o600); err != nil {
					return fmt.Errorf("writing %s: %w", outPath, err)
				}
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d drafts to %s\n", len(list), outPath)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}
