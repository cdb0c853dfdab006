package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinboard/internal/engine"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage the lists of a board",
		Long: `Manage the lists of the user's own board, or of the board named by --board.

Example:
  pinboard list add Backlog
  pinboard list show
  pinboard --board 0190... list rename <list-id> Doing`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [title]",
			Short: "Add a list after the last one and print its ID",
			RunE:  runListAdd,
		},
		&cobra.Command{
			Use:   "rename <list-id> <title>",
			Short: "Rename a list",
			Args:  cobra.MinimumNArgs(2),
			RunE:  runListRename,
		},
		&cobra.Command{
			Use:   "delete <list-id>",
			Short: "Delete a list and its cards",
			Args:  cobra.ExactArgs(1),
			RunE:  runListDelete,
		},
		&cobra.Command{
			Use:     "show",
			Aliases: []string{"ls"},
			Short:   "Show the lists and cards in display order",
			Args:    cobra.NoArgs,
			RunE:    runListShow,
		},
	)
	return cmd
}

func runListAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var id string
	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		id, err = eng.AddList(cmd.Context(), strings.Join(args, " "))
		return err
	})
	if err != nil {
		return err
	}
	return printID(cmd.OutOrStdout(), id)
}

func runListRename(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		return eng.RenameList(cmd.Context(), args[0], strings.Join(args[1:], " "))
	})
}

func runListDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		return eng.DeleteList(cmd.Context(), args[0])
	})
	if err != nil {
		return err
	}
	if !flags.jsonMode {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted list %s\n", args[0])
	}
	return nil
}

func runListShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	parent, err := s.parent(cmd.Context())
	if err != nil {
		return err
	}
	lists, err := s.backend.FetchLists(cmd.Context(), parent)
	if err != nil {
		return classify(err)
	}
	return printLists(cmd.OutOrStdout(), lists)
}
