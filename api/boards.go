package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"cardmass/bus"
	"cardmass/domain"
	"cardmass/grid"
)

type boardsResponse struct {
	Boards []domain.Board `json:"boards"`
}

// boardRequest is the body of PUT /api/boards/:id. Version is the version
// the client last read, zero when creating.
type boardRequest struct {
	Slug    string        `json:"slug"`
	Rows    int           `json:"rows"`
	Cols    int           `json:"cols"`
	Areas   []domain.Area `json:"areas"`
	Version int           `json:"version"`
}

type areasResponse struct {
	BoardID domain.BoardID `json:"boardId"`
	Version int            `json:"version"`
	Rows    int            `json:"rows"`
	Cols    int            `json:"cols"`
	Areas   []grid.Box     `json:"areas"`
}

func notifyBoards(c echo.Context, n Notifier, orgID string, id domain.BoardID) {
	if n == nil {
		return
	}
	if err := n.Publish(c.Request().Context(), bus.New(orgID, bus.KindBoards, string(id))); err != nil {
		log.WithError(err).WithField("board", id).Warn("board notification not published")
	}
}

func listBoards(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		boards, err := d.Boards.ListBoards(c.Request().Context(), orgID)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.JSON(http.StatusOK, boardsResponse{Boards: boards})
	}
}

func getBoard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		b, err := d.Boards.GetBoard(c.Request().Context(), orgID, domain.BoardID(c.Param("id")))
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

// putBoard creates or replaces a board. Tiles outside the requested
// dimensions are dropped, so shrinking a board never leaves stray tiles.
func putBoard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, m, err)
		}
		b := domain.Board{
			ID:      domain.BoardID(c.Param("id")),
			OrgID:   orgID,
			Slug:    req.Slug,
			Areas:   req.Areas,
			Version: req.Version,
		}
		b = grid.Clip(b, req.Rows, req.Cols)

		start := time.Now()
		saved, err := d.Boards.SaveBoard(c.Request().Context(), b)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		notifyBoards(c, d.Notifier, orgID, saved.ID)
		return c.JSON(http.StatusOK, saved)
	}
}

// deleteBoard removes the board. Its placements are removed from cards
// asynchronously by the janitor.
func deleteBoard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		id := domain.BoardID(c.Param("id"))
		start := time.Now()
		err = d.Boards.DeleteBoard(c.Request().Context(), orgID, id)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		notifyBoards(c, d.Notifier, orgID, id)
		return c.NoContent(http.StatusNoContent)
	}
}

func boardAreas(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		ctx := c.Request().Context()
		start := time.Now()
		b, err := d.Boards.GetBoard(ctx, orgID, domain.BoardID(c.Param("id")))
		if err != nil {
			m.ObserveStore(time.Since(start))
			return fail(c, m, err)
		}
		boxes := d.Areas.CompiledAreas(ctx, b)
		m.ObserveStore(time.Since(start))
		return c.JSON(http.StatusOK, areasResponse{
			BoardID: b.ID,
			Version: b.Version,
			Rows:    b.Rows,
			Cols:    b.Cols,
			Areas:   boxes,
		})
	}
}
