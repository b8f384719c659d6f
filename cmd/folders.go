package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/mailbox"
)

func newFoldersCmd() *cobra.Command {
	var (
		parent   string
		tokenDir string
	)

	cmd := &cobra.Command{
		Use:   "folders <config.json> <address>",
		Short: "List the mail folders of a mailbox",
		Long: `List the top-level folders of a mailbox, or the children of --parent.

The names printed here are what scan --folder accepts.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.WithOperation(slog.Default(), "folders")

			cfg, err := loadConfig(args[0])
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			source, err := newSource(ctx, cfg, tokenCache(tokenDir), nil, logger)
			if err != nil {
				return err
			}

			user, err := source.ResolveUser(ctx, args[1])
			if err != nil {
				return err
			}
			folders, err := source.ListFolders(ctx, user, parent)
			if err != nil {
				return err
			}
			return printFolders(cmd.OutOrStdout(), folders)
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "List the children of the folder with this ID")
	cmd.Flags().StringVar(&tokenDir, "token-cache", auth.DefaultCacheDir(), "Directory for cached access tokens. Empty disables the disk cache.")

	return cmd
}

func printFolders(out io.Writer, folders []mailbox.Folder) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tCHILDREN\tID\n")
	for _, f := range folders {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.ChildCount, f.ID)
	}
	return w.Flush()
}
