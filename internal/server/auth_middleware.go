package server

import (
	"errors"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	localUserID    = "userID"
	localAuthState = "authState"

	msgNoCredentials = "Authentication credentials were not provided."
	msgInvalidToken  = "Given token not valid for any token type"
)

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
// ok is false when no Authorization header was sent.
func bearerToken(c *fiber.Ctx) (token string, ok bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true
	}
	return parts[1], true
}

// authenticate resolves the caller from the access token. A nil state and nil error
// means an anonymous request.
func (s *Server) authenticate(c *fiber.Ctx) (*models.AuthState, error) {
	token, present := bearerToken(c)
	if !present {
		return nil, nil
	}
	if token == "" {
		return nil, models.NewUnauthorizedError(msgInvalidToken)
	}

	claims, err := s.tokens.Parse(token, auth.TypeAccess)
	if err != nil {
		return nil, models.NewUnauthorizedError(msgInvalidToken)
	}
	if claims.ID != "" {
		revoked, err := s.blacklist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if revoked {
			return nil, models.NewUnauthorizedError("Token is blacklisted")
		}
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, models.NewUnauthorizedError(msgInvalidToken)
	}

	state, err := s.userRepo.GetAuthState(c.UserContext(), userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, err
	}
	if !state.IsActive {
		return nil, models.NewUnauthorizedError("User is inactive")
	}
	return state, nil
}

// setCaller stores the authenticated user on the request and its logging context.
func setCaller(c *fiber.Ctx, state *models.AuthState) {
	c.Locals(localUserID, state.ID)
	c.Locals(localAuthState, state)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), state.ID))
}

// Authenticate identifies the caller when a token is present. Anonymous requests pass
// through; a presented but invalid token is rejected.
func (s *Server) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := s.authenticate(c)
		if err != nil {
			return respondError(c, err)
		}
		if state != nil {
			setCaller(c, state)
		}
		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := s.authenticate(c)
		if err != nil {
			return respondError(c, err)
		}
		if state == nil {
			return respondError(c, models.NewUnauthorizedError(msgNoCredentials))
		}
		setCaller(c, state)
		return c.Next()
	}
}

// requireUser is placed after Authenticate on write routes.
func requireUser(c *fiber.Ctx) error {
	if callerState(c) == nil {
		return respondError(c, models.NewUnauthorizedError(msgNoCredentials))
	}
	return c.Next()
}

// requireStaff rejects non-staff users with 403. It must run after authentication.
func requireStaff(c *fiber.Ctx) error {
	state := callerState(c)
	if state == nil {
		return respondError(c, models.NewUnauthorizedError(msgNoCredentials))
	}
	if !state.IsStaff {
		return respondError(c, models.NewForbiddenError("You do not have permission to perform this action."))
	}
	return c.Next()
}

func callerState(c *fiber.Ctx) *models.AuthState {
	state, _ := c.Locals(localAuthState).(*models.AuthState)
	return state
}

// actor returns the caller as seen by the services; anonymous callers map to the zero Actor.
func actor(c *fiber.Ctx) service.Actor {
	return service.ActorFromState(callerState(c))
}

func callerID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

// WSTicketRequired authenticates a websocket upgrade with a single-use ticket.
// Browsers cannot set headers on websocket requests, so the JWT never travels in the URL.
func (s *Server) WSTicketRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired, models.NewValidationError("WebSocket upgrade required"))
		}

		userID, err := s.tickets.Redeem(c.UserContext(), c.Query("ticket"))
		if err != nil {
			if errors.Is(err, notifications.ErrInvalidTicket) {
				return respondError(c, models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			return respondError(c, models.NewInternalError(err))
		}

		state, err := s.userRepo.GetAuthState(c.UserContext(), userID)
		if err != nil || !state.IsActive {
			return respondError(c, models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
		}
		setCaller(c, state)
		return c.Next()
	}
}
