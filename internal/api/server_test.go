package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinboard/internal/sqlite"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

type harness struct {
	t       *testing.T
	e       *echo.Echo
	server  *Server
	backend *sqlite.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)

	backend := sqlite.NewBackend(sqlite.WithLogger(logger))
	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	srv := NewServer(backend, logger)
	e := echo.New()
	srv.Register(e)
	t.Cleanup(func() {
		_ = srv.Close()
		_ = backend.Detach()
	})
	return &harness{t: t, e: e, server: srv, backend: backend}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderUser, "u1")
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// waitLists polls the lists endpoint until cond holds.
func (h *harness) waitLists(path string, cond func([]types.List) bool) []types.List {
	h.t.Helper()
	var last []types.List
	require.Eventually(h.t, func() bool {
		rec := h.do(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			return false
		}
		last = decode[listsResponse](h.t, rec).Lists
		return cond(last)
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserListsFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/lists", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listsResponse](t, rec).Lists)

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		rec := h.do(http.MethodPost, "/api/lists", `{"title":"`+title+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[createdResponse](t, rec).ID)
		h.waitLists("/api/lists", func(l []types.List) bool { return len(l) == len(ids) })
	}

	drag := `{"draggableId":"` + ids[2] + `","type":"LIST",
		"source":{"droppableId":"all-lists","index":2},
		"destination":{"droppableId":"all-lists","index":0}}`
	rec = h.do(http.MethodPost, "/api/lists/drag", drag)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[listsResponse](t, rec).Lists
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, []string{got[0].ListID, got[1].ListID, got[2].ListID})

	stored := h.waitLists("/api/lists", func(l []types.List) bool { return l[0].ListID == ids[2] })
	assert.Equal(t, "C", stored[0].Title)

	rec = h.do(http.MethodPatch, "/api/lists/"+ids[0], `{"title":"Renamed"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodPatch, "/api/lists/"+ids[0], `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/api/lists/"+ids[1], "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	remaining := h.waitLists("/api/lists", func(l []types.List) bool { return len(l) == 2 && l[1].Title == "Renamed" })
	assert.Equal(t, []int{0, 1}, []int{remaining[0].Order, remaining[1].Order})
}

func TestCardFlow(t *testing.T) {
	h := newHarness(t)
	l1 := decode[createdResponse](t, h.do(http.MethodPost, "/api/lists", `{"title":"L1"}`)).ID
	h.waitLists("/api/lists", func(l []types.List) bool { return len(l) == 1 })
	l2 := decode[createdResponse](t, h.do(http.MethodPost, "/api/lists", `{"title":"L2"}`)).ID
	h.waitLists("/api/lists", func(l []types.List) bool { return len(l) == 2 })

	rec := h.do(http.MethodPost, "/api/lists/"+l1+"/cards", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	card := decode[types.Card](t, rec)
	assert.Equal(t, types.DefaultCardTitle, card.Title)
	assert.Equal(t, types.DefaultCardDescription, card.Description)
	h.waitLists("/api/lists", func(l []types.List) bool { return len(l[0].Cards) == 1 })

	rec = h.do(http.MethodPatch, "/api/lists/"+l1+"/cards/"+card.CardID, `{"description":"details"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	h.waitLists("/api/lists", func(l []types.List) bool { return l[0].Cards[0].Description == "details" })

	drag := `{"draggableId":"` + card.CardID + `","type":"CARD",
		"source":{"droppableId":"` + l1 + `","index":0},
		"destination":{"droppableId":"` + l2 + `","index":0}}`
	rec = h.do(http.MethodPost, "/api/lists/drag", drag)
	require.Equal(t, http.StatusOK, rec.Code)
	moved := h.waitLists("/api/lists", func(l []types.List) bool { return len(l[1].Cards) == 1 })
	assert.Empty(t, moved[0].Cards)
	assert.Equal(t, "details", moved[1].Cards[0].Description)

	rec = h.do(http.MethodDelete, "/api/lists/"+l1+"/cards/"+card.CardID, "")
	assert.Equal(t, http.StatusConflict, rec.Code, "card is no longer in l1")
	rec = h.do(http.MethodDelete, "/api/lists/"+l2+"/cards/"+card.CardID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStaleDragIsConflict(t *testing.T) {
	h := newHarness(t)
	drag := `{"draggableId":"ghost","type":"LIST",
		"source":{"droppableId":"all-lists","index":0},
		"destination":{"droppableId":"all-lists","index":1}}`
	rec := h.do(http.MethodPost, "/api/lists/drag", drag)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelledDragReturnsLists(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/lists/drag", `{"draggableId":"x","type":"LIST","source":{"droppableId":"all-lists","index":0}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBoardsFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/boards", `{"title":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	board := decode[types.Board](t, rec)
	assert.Equal(t, "u1", board.OwnerID)

	rec = h.do(http.MethodPost, "/api/boards", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/boards", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Board](t, rec), 1)

	rec = h.do(http.MethodGet, "/api/boards/"+board.BoardID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Work", decode[types.Board](t, rec).Title)

	base := "/api/boards/" + board.BoardID + "/lists"
	rec = h.do(http.MethodPost, base, `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	lists := h.waitLists(base, func(l []types.List) bool { return len(l) == 1 })
	assert.Equal(t, types.DefaultListTitle, lists[0].Title)

	rec = h.do(http.MethodGet, "/api/lists", "")
	assert.Empty(t, decode[listsResponse](t, rec).Lists, "board lists are separate from user lists")

	rec = h.do(http.MethodDelete, "/api/boards/"+board.BoardID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodGet, "/api/boards/nope/lists", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamSendsSnapshots(t *testing.T) {
	h := newHarness(t)
	ts := httptest.NewServer(h.e)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/lists/stream", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderUser, "u1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	events := make(chan listsResponse, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var ev listsResponse
				if json.Unmarshal([]byte(data), &ev) == nil {
					events <- ev
				}
			}
		}
		close(events)
	}()

	first := <-events
	assert.Equal(t, types.UserLists("u1"), first.Parent)
	assert.Empty(t, first.Lists)

	_, err = h.backend.CreateList(ctx, types.UserLists("u1"), types.NewList{Title: "Live"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Len(t, ev.Lists, 1)
		assert.Equal(t, "Live", ev.Lists[0].Title)
	case <-ctx.Done():
		t.Fatal("no snapshot event")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrNotFound, http.StatusNotFound},
		{types.ErrInvalidTitle, http.StatusBadRequest},
		{types.ErrStaleReference, http.StatusConflict},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}
