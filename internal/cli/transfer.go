package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write all users, boards and lists to JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.backend.Export(cmd.Context(), args[0]); err != nil {
				return sysError("export: %w", err)
			}
			if !flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load users, boards and lists from JSONL files",
		Long: `Import reads users.jsonl, boards.jsonl and lists.jsonl from dir and writes
them in one transaction, replacing records with the same ID. Malformed or
invalid records are skipped and counted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.backend.Import(cmd.Context(), args[0])
			if err != nil {
				return sysError("import: %w", err)
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users, %d boards, %d lists (%d skipped)\n",
				stats.Users, stats.Boards, stats.Lists, stats.Skipped)
			return nil
		},
	}
}
