package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxscan/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

// rootCmd represents the base command for the inboxscan application
var rootCmd = &cobra.Command{
	Use:   "inboxscan",
	Short: "Scans mailboxes for Social Security Numbers",
	Long: `inboxscan walks the mailboxes listed in a targets file and reports every
message body or attachment (csv, xls, xlsx, doc, docx) that contains a
Social Security Number.

Findings are appended to a daily CSV compliance log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := logging.NewLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxscan version %s\n" .Version}}`)
	rootCmd.SetArgs(defaultToScan(rootCmd, os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultToScan runs the scan command when the first argument names no
// other command.
func defaultToScan(root *cobra.Command, args []string) []string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return args
	}
	switch args[0] {
	case "help", "completion":
		return args
	}
	for _, c := range root.Commands() {
		if c.Name() == args[0] || c.HasAlias(args[0]) {
			return args
		}
	}
	return append([]string{"scan"}, args...)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newFoldersCmd())
	rootCmd.AddCommand(newVersionCmd())
}
