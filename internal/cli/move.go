package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/internal/ordering"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Reorder lists and cards",
		Long: `Move applies the same drag results a board view would report: the local
view changes at once, and the matching writes are queued and awaited before
the command exits.

Indexes count from 0. An index past the end places the item last.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <list-id> <index>",
			Short: "Move a list to a new position on the board",
			Args:  cobra.ExactArgs(2),
			RunE:  runMoveList,
		},
		&cobra.Command{
			Use:   "card <card-id> <list-id> <index>",
			Short: "Move a card to a position in the same or another list",
			Args:  cobra.ExactArgs(3),
			RunE:  runMoveCard,
		},
	)
	return cmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, userError(fmt.Errorf("invalid index %q: must be a non-negative integer", s))
	}
	return n, nil
}

func runMoveList(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var lists []types.List
	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		from := ordering.IndexOf(eng.Lists(), args[0])
		if from < 0 {
			return fmt.Errorf("list %s: %w", args[0], types.ErrNotFound)
		}
		err := eng.OnDragEnd(types.DragResult{
			DraggableID: args[0],
			Type:        types.KindList,
			Source:      types.Location{DroppableID: types.BoardDroppableID, Index: from},
			Destination: &types.Location{DroppableID: types.BoardDroppableID, Index: index},
		})
		lists = eng.Lists()
		return err
	})
	if err != nil {
		return err
	}
	return printLists(cmd.OutOrStdout(), lists)
}

func runMoveCard(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var lists []types.List
	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		fromList, from, err := findCard(eng, args[0])
		if err != nil {
			return err
		}
		err = eng.OnDragEnd(types.DragResult{
			DraggableID: args[0],
			Type:        types.KindCard,
			Source:      types.Location{DroppableID: fromList, Index: from},
			Destination: &types.Location{DroppableID: args[1], Index: index},
		})
		lists = eng.Lists()
		return err
	})
	if err != nil {
		return err
	}
	return printLists(cmd.OutOrStdout(), lists)
}
