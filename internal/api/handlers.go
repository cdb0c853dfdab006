package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

type titleRequest struct {
	Title string `json:"title"`
}

type cardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type listsResponse struct {
	Parent types.ParentPath `json:"parent"`
	Lists  []types.List     `json:"lists"`
	Stale  bool             `json:"stale,omitempty"`
}

func (s *Server) listBoards(c echo.Context) error {
	boards, err := s.store.ListBoards(c.Request().Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, boards)
}

func (s *Server) createBoard(c echo.Context) error {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	board, err := s.store.CreateBoard(c.Request().Context(), userID(c), req.Title)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, board)
}

func (s *Server) getBoard(c echo.Context) error {
	board, err := s.store.GetBoard(c.Request().Context(), userID(c), c.Param("board"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, board)
}

func (s *Server) deleteBoard(c echo.Context) error {
	uid, boardID := userID(c), c.Param("board")
	if err := s.store.DeleteBoard(c.Request().Context(), uid, boardID); err != nil {
		return s.fail(c, err)
	}
	s.drop(types.BoardLists(uid, boardID))
	return c.NoContent(http.StatusNoContent)
}

// withEngine resolves the request's parent and its engine.
func (s *Server) withEngine(c echo.Context, fn func(*engine.Engine) error) error {
	parent, err := s.parent(c)
	if err != nil {
		return s.fail(c, err)
	}
	eng, err := s.engine(c.Request().Context(), parent)
	if err != nil {
		return s.fail(c, err)
	}
	if err := fn(eng); err != nil {
		return s.fail(c, err)
	}
	return nil
}

func lists(c echo.Context, eng *engine.Engine) error {
	return c.JSON(http.StatusOK, listsResponse{Parent: eng.Parent(), Lists: eng.Lists(), Stale: eng.Stale()})
}

func (s *Server) getLists(c echo.Context) error {
	return s.withEngine(c, func(eng *engine.Engine) error { return lists(c, eng) })
}

func (s *Server) addList(c echo.Context) error {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.withEngine(c, func(eng *engine.Engine) error {
		id, err := eng.AddList(c.Request().Context(), req.Title)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, createdResponse{ID: id})
	})
}

func (s *Server) renameList(c echo.Context) error {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.withEngine(c, func(eng *engine.Engine) error {
		if err := eng.RenameList(c.Request().Context(), c.Param("list"), req.Title); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) deleteList(c echo.Context) error {
	return s.withEngine(c, func(eng *engine.Engine) error {
		if err := eng.DeleteList(c.Request().Context(), c.Param("list")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) addCard(c echo.Context) error {
	var req cardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	draft := types.CardDraft{}
	if req.Title != nil {
		draft.Title = *req.Title
	}
	if req.Description != nil {
		draft.Description = *req.Description
	}
	return s.withEngine(c, func(eng *engine.Engine) error {
		card, err := eng.AddCard(c.Request().Context(), c.Param("list"), draft)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, card)
	})
}

func (s *Server) updateCard(c echo.Context) error {
	var req cardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	patch := types.CardPatch{Title: req.Title, Description: req.Description}
	return s.withEngine(c, func(eng *engine.Engine) error {
		if err := eng.UpdateCard(c.Request().Context(), c.Param("list"), c.Param("card"), patch); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) deleteCard(c echo.Context) error {
	return s.withEngine(c, func(eng *engine.Engine) error {
		if err := eng.DeleteCard(c.Request().Context(), c.Param("list"), c.Param("card")); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

// drag applies a drag result and responds with the optimistic mirror. The
// write is still queued when the response is sent.
func (s *Server) drag(c echo.Context) error {
	var result types.DragResult
	if err := c.Bind(&result); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.withEngine(c, func(eng *engine.Engine) error {
		if err := eng.OnDragEnd(result); err != nil {
			return err
		}
		return lists(c, eng)
	})
}
