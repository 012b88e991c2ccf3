package cashflow

import (
	"bufio"
	"fmt"
	"time"

	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/httpx"
	"kasa-backend/internal/notify"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const keepAliveInterval = 15 * time.Second

// GET /api/sessions/:id/events
// Server-sent events for one session. Only its participants may listen.
func SessionEventsHandler(svc *cashregister.Service, sub notify.Subscriber, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.UserID(c)
		if err != nil {
			return err
		}
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		ok, err := svc.CanWatchSession(c.UserContext(), id, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "you are not a participant of this session")
		}

		subscription, err := sub.Subscribe(c.UserContext(), id)
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer subscription.Close()

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case msg, open := <-subscription.Messages():
					if !open {
						return
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", notify.EventSessionClosed, msg)
					if err := w.Flush(); err != nil {
						logger.Debug("event stream client went away", zap.Uint("session_id", id), zap.Error(err))
						return
					}
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		})

		return nil
	}
}
