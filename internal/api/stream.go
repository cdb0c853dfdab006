package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// stream sends every snapshot of the parent's lists as a server-sent event
// until the client goes away or the subscription fails.
func (s *Server) stream(c echo.Context) error {
	parent, err := s.parent(c)
	if err != nil {
		return s.fail(c, err)
	}
	ctx := c.Request().Context()
	sub, err := s.store.SubscribeLists(ctx, parent)
	if err != nil {
		return s.fail(c, err)
	}
	defer sub.Close()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	log := s.log.WithField("parent", parent)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				log.WithError(snap.Err).Warn("stream subscription failed")
				if _, err := fmt.Fprintf(c.Response(), "event: error\ndata: %q\n\n", snap.Err.Error()); err != nil {
					return nil
				}
				flusher.Flush()
				return nil
			}
			data, err := json.Marshal(listsResponse{Parent: parent, Lists: snap.Lists})
			if err != nil {
				log.WithError(err).Error("marshal snapshot")
				return nil
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
				log.WithError(err).Debug("stream client gone")
				return nil
			}
			flusher.Flush()
		}
	}
}
