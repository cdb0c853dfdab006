// Package cli implements the pinboard command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	user      string
	board     string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "pinboard" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "pinboard",
		Short: "Kanban boards with drag reordering",
		Long:  "Pinboard manages boards of ordered lists and cards, keeping a local\nview consistent with the store while moves are written in the background.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVarP(&flags.user, "user", "u", "", "user whose lists are addressed (default: config user)")
	pf.StringVarP(&flags.board, "board", "b", "", "board ID; without it the user's own lists are addressed")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newBoardCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCardCmd())
	root.AddCommand(newMoveCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, NewRootCmd())
	stop()
	os.Exit(code)
}

// run executes root and maps its error to an exit code.
func run(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	return exitCode(err)
}

// codedError carries the exit code a command failed with.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// userError marks err as caused by bad input.
func userError(err error) error {
	return &codedError{code: exitUserError, err: err}
}

// sysError marks err as an environment or storage failure.
func sysError(format string, args ...any) error {
	return &codedError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}
