package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every snapshot of a board's lists as it changes",
		Long: `Watch subscribes to the addressed lists and prints the full sequence every
time the store reports a change, until interrupted.

Changes made by other processes appear when the notifier is redis or when
poll_interval is set.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().IntP("count", "n", 0, "exit after this many snapshots (0 means no limit)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	parent, err := s.parent(ctx)
	if err != nil {
		return err
	}
	sub, err := s.backend.SubscribeLists(ctx, parent)
	if err != nil {
		return classify(err)
	}
	defer sub.Close()

	out := cmd.OutOrStdout()
	for seen := 0; count == 0 || seen < count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				return sysError("subscription: %w", snap.Err)
			}
			if !flags.jsonMode && seen > 0 {
				fmt.Fprintln(out, "---")
			}
			if err := printLists(out, snap.Lists); err != nil {
				return sysError("write output: %w", err)
			}
		}
	}
	return nil
}
