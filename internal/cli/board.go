package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage boards",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <title>",
			Short: "Create a board and print its ID",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runBoardCreate,
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List the user's boards",
			Args:    cobra.NoArgs,
			RunE:    runBoardList,
		},
		&cobra.Command{
			Use:   "delete <board-id>",
			Short: "Delete a board and every list on it",
			Args:  cobra.ExactArgs(1),
			RunE:  runBoardDelete,
		},
	)
	return cmd
}

func runBoardCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	board, err := s.backend.CreateBoard(cmd.Context(), s.settings.User, strings.Join(args, " "))
	if err != nil {
		return classify(err)
	}
	return printID(cmd.OutOrStdout(), board.BoardID)
}

func runBoardList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	boards, err := s.backend.ListBoards(cmd.Context(), s.settings.User)
	if err != nil {
		return classify(err)
	}
	return printBoards(cmd.OutOrStdout(), boards)
}

func runBoardDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.backend.DeleteBoard(cmd.Context(), s.settings.User, args[0]); err != nil {
		return classify(fmt.Errorf("board %s: %w", args[0], err))
	}
	if !flags.jsonMode {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted board %s\n", args[0])
	}
	return nil
}
