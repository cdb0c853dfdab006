package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printLists writes lists in display order with their cards indented below.
func printLists(w io.Writer, lists []types.List) error {
	if flags.jsonMode {
		if lists == nil {
			lists = []types.List{}
		}
		return printJSON(w, lists)
	}
	if len(lists) == 0 {
		_, err := fmt.Fprintln(w, "no lists")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range lists {
		fmt.Fprintf(tw, "%d\t%s\t%s\t(%d cards)\n", l.Order, l.ListID, l.Title, len(l.Cards))
		for _, c := range l.Cards {
			fmt.Fprintf(tw, "\t  %s\t%s\t\n", c.CardID, c.Title)
		}
	}
	return tw.Flush()
}

func printBoards(w io.Writer, boards []types.Board) error {
	if flags.jsonMode {
		if boards == nil {
			boards = []types.Board{}
		}
		return printJSON(w, boards)
	}
	if len(boards) == 0 {
		_, err := fmt.Fprintln(w, "no boards")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range boards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.BoardID, b.Title, b.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// printID writes the ID of a created entity.
func printID(w io.Writer, id string) error {
	if flags.jsonMode {
		return printJSON(w, map[string]string{"id": id})
	}
	_, err := fmt.Fprintln(w, id)
	return err
}
