package server

import (
	"context"
	"errors"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IssueWSTicket handles POST /api/v1/ws/ticket
// @Summary Issue a websocket ticket
// @Description The ticket is single use and expires after 60 seconds
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := callerID(c)
	if !s.realtimeEnabled(userID) {
		return respondError(c, &models.AppError{Code: models.CodeNotFound, Message: "Realtime notifications are disabled."})
	}
	ticket, err := s.tickets.Issue(c.UserContext(), userID)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(notifications.TicketTTL.Seconds()),
	})
}

// WebsocketHandler streams notification events to the ticket holder.
// @Summary Notification stream
// @Tags notifications
// @Param ticket query string true "Ticket from /v1/ws/ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /v1/ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		state, _ := conn.Locals(localAuthState).(*models.AuthState)
		if state == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(state.ID, state.IsStaff, conn)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, notifications.ErrHubClosed) {
				level = slog.LevelInfo
			}
			middleware.Logger.Log(context.Background(), level, "websocket register failed",
				slog.Uint64("user_id", uint64(state.ID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		if hello, err := notifications.Encode("connected", fiber.Map{"user_id": state.ID}); err == nil {
			client.TrySend([]byte(hello))
		}

		go client.WritePump()
		client.ReadPump()
	})
}
