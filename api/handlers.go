package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"cardmass/domain"
	"cardmass/placement"
)

const (
	maxBodySize          = 256 << 10
	headerIdempotencyKey = "Idempotency-Key"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.GET("/api/cards", instrument("/api/cards", logger, listCards(d)))
	e.POST("/api/cards", instrument("/api/cards", logger, createCard(d)))
	e.GET("/api/cards/:id", instrument("/api/cards/:id", logger, getCard(d)))
	e.PATCH("/api/cards/:id", instrument("/api/cards/:id", logger, updateCard(d)))
	e.DELETE("/api/cards/:id", instrument("/api/cards/:id", logger, deleteCard(d)))
	e.POST("/api/buckets/renormalize", instrument("/api/buckets/renormalize", logger, renormalize(d)))

	e.GET("/api/boards", instrument("/api/boards", logger, listBoards(d)))
	e.GET("/api/boards/:id", instrument("/api/boards/:id", logger, getBoard(d)))
	e.PUT("/api/boards/:id", instrument("/api/boards/:id", logger, putBoard(d)))
	e.DELETE("/api/boards/:id", instrument("/api/boards/:id", logger, deleteBoard(d)))
	e.GET("/api/boards/:id/areas", instrument("/api/boards/:id/areas", logger, boardAreas(d)))

	if d.Broker != nil {
		e.GET("/api/events", streamEvents(d.Auth, d.Broker))
	}
}

type cardsResponse struct {
	Cards []domain.Card `json:"cards"`
}

type renormalizeRequest struct {
	Axis    domain.Axis    `json:"axis"`
	BoardID domain.BoardID `json:"boardId,omitempty"`
	Bucket  string         `json:"bucket"`
}

type renormalizeResponse struct {
	Changed int `json:"changed"`
}

type handlerFunc func(c echo.Context, m *requestMetrics) error

// instrument starts request metrics around h and logs them once the response
// is written.
func instrument(route string, logger *log.Logger, h handlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		m, ctx := newRequestMetrics(c.Request().Context(), logger, route)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			m.Log(c.Response().Status, err)
		}()
		return h(c, m)
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func authenticate(c echo.Context, auth Authenticator, m *requestMetrics) (string, error) {
	start := time.Now()
	orgID, err := auth.OrgIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	m.ObserveAuth(time.Since(start))
	if err != nil {
		log.WithError(err).Debug("authentication failed")
		return "", errUnauthorized
	}
	return orgID, nil
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid body: %v", err)
	}
	return nil
}

// fail records the stage of err and renders it.
func fail(c echo.Context, m *requestMetrics, err error) error {
	m.SetErrorStage(errorStage(err))
	return writeError(c, err)
}

func parseQuery(c echo.Context) (placement.Query, error) {
	q := placement.Query{
		Axis:    domain.Axis(strings.TrimSpace(c.QueryParam("axis"))),
		Bucket:  strings.TrimSpace(c.QueryParam("bucket")),
		BoardID: domain.BoardID(strings.TrimSpace(c.QueryParam("boardId"))),
	}
	for name, dst := range map[string]*bool{"inbox": &q.Inbox, "archived": &q.IncludeArchived} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return placement.Query{}, domain.Validationf("invalid %s flag %q", name, raw)
		}
		*dst = v
	}
	return q, nil
}

func listCards(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		q, err := parseQuery(c)
		if err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		cards, err := d.Cards.List(c.Request().Context(), orgID, q)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		m.SetCardsReturned(len(cards))
		start = time.Now()
		err = c.JSON(http.StatusOK, cardsResponse{Cards: cards})
		m.ObserveEncode(time.Since(start))
		return err
	}
}

func getCard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		card, err := d.Cards.Get(c.Request().Context(), orgID, c.Param("id"))
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

// createCard honours an Idempotency-Key header: a retried request answers
// with the card created the first time.
func createCard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		var u domain.CardUpdate
		if err := decodeBody(c, &u); err != nil {
			return fail(c, m, err)
		}
		ctx := c.Request().Context()

		key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		claimed := false
		if key != "" && d.Deduper != nil {
			owned, err := d.Deduper.Claim(ctx, orgID, key)
			switch {
			case err != nil:
				log.WithError(err).Warn("idempotency check unavailable; creating without it")
			case owned:
				claimed = true
			default:
				id, err := d.Deduper.Lookup(ctx, orgID, key)
				if err != nil {
					return fail(c, m, err)
				}
				if id == "" {
					return fail(c, m, domain.Conflictf("request with idempotency key %q is still in progress", key))
				}
				card, err := d.Cards.Get(ctx, orgID, id)
				if err != nil {
					return fail(c, m, err)
				}
				return c.JSON(http.StatusOK, card)
			}
		}

		start := time.Now()
		card, err := d.Cards.Create(ctx, orgID, u)
		m.ObserveStore(time.Since(start))
		if err != nil {
			if claimed {
				if rerr := d.Deduper.Release(ctx, orgID, key); rerr != nil {
					log.WithError(rerr).Warn("unable to release idempotency key")
				}
			}
			return fail(c, m, err)
		}
		if claimed {
			if err := d.Deduper.Remember(ctx, orgID, key, card.ID); err != nil {
				log.WithError(err).WithField("card", card.ID).Warn("unable to remember idempotency key")
			}
		}
		return c.JSON(http.StatusCreated, card)
	}
}

func updateCard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		var u domain.CardUpdate
		if err := decodeBody(c, &u); err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		card, err := d.Cards.Update(c.Request().Context(), orgID, c.Param("id"), u)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

func deleteCard(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		err = d.Cards.Delete(c.Request().Context(), orgID, c.Param("id"))
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func renormalize(d Deps) handlerFunc {
	return func(c echo.Context, m *requestMetrics) error {
		orgID, err := authenticate(c, d.Auth, m)
		if err != nil {
			return fail(c, m, err)
		}
		var req renormalizeRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, m, err)
		}
		start := time.Now()
		n, err := d.Cards.Renormalize(c.Request().Context(), orgID, req.Axis, req.BoardID, req.Bucket)
		m.ObserveStore(time.Since(start))
		if err != nil {
			return fail(c, m, err)
		}
		return c.JSON(http.StatusOK, renormalizeResponse{Changed: n})
	}
}
