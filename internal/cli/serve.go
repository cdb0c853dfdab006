package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinboard/internal/api"
	"github.com/mesh-intelligence/pinboard/internal/engine"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve boards over HTTP",
		Long: `Serve exposes boards, lists and cards as a JSON API with a server-sent event
stream per board. The caller is identified by the X-Pinboard-User header.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: listen_addr from config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := s.settings.ListenAddr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	srv := api.NewServer(s.backend, s.log, engine.WithWriteTimeout(s.settings.WriteTimeout))
	defer srv.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.HeaderUser, api.HeaderEmail},
	}))
	srv.Register(e)

	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()
	s.log.WithField("addr", addr).Info("serving")
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return sysError("serve: %w", err)
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return sysError("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
