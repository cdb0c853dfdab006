// Package api exposes boards over HTTP. Each parent path gets one engine,
// shared by every request for it, so drags from concurrent clients go through
// one mirror and one write queue.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Identity headers. Authentication is expected in front of this service.
const (
	HeaderUser  = "X-Pinboard-User"
	HeaderEmail = "X-Pinboard-Email"
)

const ctxUserKey = "pinboard.user"

// Backend is the store the server reads and writes.
type Backend interface {
	types.Store
	types.BoardStore
}

// Server holds the engines of every parent that has been used.
type Server struct {
	store Backend
	log   *log.Logger
	opts  []engine.Option

	mu      sync.Mutex
	engines map[types.ParentPath]*engine.Engine
}

// NewServer returns a server over store. opts are passed to every engine.
func NewServer(store Backend, logger *log.Logger, opts ...engine.Option) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		store:   store,
		log:     logger,
		opts:    append([]engine.Option{engine.WithLogger(logger)}, opts...),
		engines: make(map[types.ParentPath]*engine.Engine),
	}
}

// Register wires up all API routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.healthz)

	g := e.Group("/api", s.identify)
	g.GET("/boards", s.listBoards)
	g.POST("/boards", s.createBoard)
	g.GET("/boards/:board", s.getBoard)
	g.DELETE("/boards/:board", s.deleteBoard)

	// Single-board lists live under the user, multi-board lists under a board.
	for _, prefix := range []string{"/lists", "/boards/:board/lists"} {
		g.GET(prefix, s.getLists)
		g.POST(prefix, s.addList)
		g.POST(prefix+"/drag", s.drag)
		g.GET(prefix+"/stream", s.stream)
		g.PATCH(prefix+"/:list", s.renameList)
		g.DELETE(prefix+"/:list", s.deleteList)
		g.POST(prefix+"/:list/cards", s.addCard)
		g.PATCH(prefix+"/:list/cards/:card", s.updateCard)
		g.DELETE(prefix+"/:list/cards/:card", s.deleteCard)
	}
}

// Close releases every engine, waiting for their queued writes.
func (s *Server) Close() error {
	s.mu.Lock()
	engines := s.engines
	s.engines = make(map[types.ParentPath]*engine.Engine)
	s.mu.Unlock()

	var errs []error
	for _, eng := range engines {
		errs = append(errs, eng.Close())
	}
	return errors.Join(errs...)
}

// engine returns the active engine for parent, creating it on first use and
// reactivating it if its subscription broke.
func (s *Server) engine(ctx context.Context, parent types.ParentPath) (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, ok := s.engines[parent]
	if ok && !eng.Stale() {
		return eng, nil
	}
	if !ok {
		eng = engine.New(s.store, s.opts...)
	}
	if err := eng.Activate(ctx, parent); err != nil {
		if !ok {
			_ = eng.Close()
		}
		return nil, err
	}
	s.engines[parent] = eng
	return eng, nil
}

// drop closes and forgets the engine of parent.
func (s *Server) drop(parent types.ParentPath) {
	s.mu.Lock()
	eng, ok := s.engines[parent]
	delete(s.engines, parent)
	s.mu.Unlock()
	if ok {
		_ = eng.Close()
	}
}

// identify reads the caller from HeaderUser and ensures the user record.
func (s *Server) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(HeaderUser)
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUser)
		}
		user := types.User{UserID: userID, Email: c.Request().Header.Get(HeaderEmail)}
		if err := s.store.EnsureUser(c.Request().Context(), user); err != nil {
			return s.fail(c, err)
		}
		c.Set(ctxUserKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(ctxUserKey).(string)
	return id
}

// parent resolves the list collection a request addresses, checking that
// the board exists for the multi-board variant.
func (s *Server) parent(c echo.Context) (types.ParentPath, error) {
	uid := userID(c)
	boardID := c.Param("board")
	if boardID == "" {
		return types.ParseParentPath(types.UserLists(uid).String())
	}
	if _, err := s.store.GetBoard(c.Request().Context(), uid, boardID); err != nil {
		return "", err
	}
	return types.ParseParentPath(types.BoardLists(uid, boardID).String())
}

func (s *Server) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
