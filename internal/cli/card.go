package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

func newCardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage the cards of a list",
	}

	add := &cobra.Command{
		Use:   "add <list-id> [title]",
		Short: "Append a card to a list and print its ID",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCardAdd,
	}
	add.Flags().StringP("description", "d", "", "card description")

	update := &cobra.Command{
		Use:   "update <card-id>",
		Short: "Change a card's title or description",
		Args:  cobra.ExactArgs(1),
		RunE:  runCardUpdate,
	}
	update.Flags().StringP("title", "t", "", "new title")
	update.Flags().StringP("description", "d", "", "new description")

	del := &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Remove a card from its list",
		Args:  cobra.ExactArgs(1),
		RunE:  runCardDelete,
	}

	cmd.AddCommand(add, update, del)
	return cmd
}

func runCardAdd(cmd *cobra.Command, args []string) error {
	desc, _ := cmd.Flags().GetString("description")
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var card types.Card
	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		var err error
		card, err = eng.AddCard(cmd.Context(), args[0], types.CardDraft{
			Title:       strings.Join(args[1:], " "),
			Description: desc,
		})
		return err
	})
	if err != nil {
		return err
	}
	return printID(cmd.OutOrStdout(), card.CardID)
}

func runCardUpdate(cmd *cobra.Command, args []string) error {
	var patch types.CardPatch
	if cmd.Flags().Changed("title") {
		title, _ := cmd.Flags().GetString("title")
		if strings.TrimSpace(title) == "" {
			return userError(types.ErrInvalidTitle)
		}
		patch.Title = &title
	}
	if cmd.Flags().Changed("description") {
		desc, _ := cmd.Flags().GetString("description")
		patch.Description = &desc
	}
	if patch.Title == nil && patch.Description == nil {
		return userError(errors.New("nothing to update: pass --title or --description"))
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		listID, _, err := findCard(eng, args[0])
		if err != nil {
			return err
		}
		return eng.UpdateCard(cmd.Context(), listID, args[0], patch)
	})
}

func runCardDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	err = s.withEngine(cmd.Context(), func(eng *engine.Engine) error {
		listID, _, err := findCard(eng, args[0])
		if err != nil {
			return err
		}
		return eng.DeleteCard(cmd.Context(), listID, args[0])
	})
	if err != nil {
		return err
	}
	if !flags.jsonMode {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted card %s\n", args[0])
	}
	return nil
}

// findCard locates a card in the engine's mirror and returns its list and
// position.
func findCard(eng *engine.Engine, cardID string) (string, int, error) {
	for _, l := range eng.Lists() {
		if i := l.CardIndex(cardID); i >= 0 {
			return l.ListID, i, nil
		}
	}
	return "", -1, fmt.Errorf("card %s: %w", cardID, types.ErrNotFound)
}
