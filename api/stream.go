package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"cardmass/bus"
)

var heartbeatInterval = 30 * time.Second

// streamEvents sends a "data: <notification>" frame for every change in the
// caller's organization. EventSource cannot set headers, so the token may
// also be passed as ?token=.
func streamEvents(auth Authenticator, broker *bus.Broker) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		orgID, err := auth.OrgIDFromAuthHeader(authHeader)
		if err != nil {
			return writeError(c, errUnauthorized)
		}

		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		h := c.Response().Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		ch := broker.Subscribe(orgID)
		defer broker.Unsubscribe(orgID, ch)

		if _, err := c.Response().Write([]byte(":ok\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		ctx := c.Request().Context()
		for {
			select {
			case n := <-ch:
				data, err := sonic.Marshal(n)
				if err != nil {
					continue
				}
				frame := make([]byte, 0, len(data)+8)
				frame = append(frame, "data: "...)
				frame = append(frame, data...)
				frame = append(frame, "\n\n"...)
				if _, err := c.Response().Write(frame); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(":keepalive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ctx.Done():
				return nil
			}
		}
	}
}
