package rest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/uzzapchat/uzzap"
)

const sessionLocalsKey = "session"

// RequestAuthorizer resolves the Bearer token to a live session and stores
// it in request locals for downstream handlers.
func RequestAuthorizer(store uzzap.SessionStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return fiber.ErrUnauthorized
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			return fiber.NewError(fiber.StatusBadRequest, "invalid auth type")
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := store.ByToken(token)
		if err != nil {
			if errors.Is(err, uzzap.ErrSessionNotFound) {
				return fiber.ErrUnauthorized
			}
			return fmt.Errorf("session by token: %w", err)
		}

		requestLog(ctx).WithField("user_id", session.UserId).Infoln("Authorized access.")

		ctx.Locals(sessionLocalsKey, session)
		return nil
	}
}

type SessionController struct {
	Store uzzap.SessionStore
}

func (c *SessionController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/session", combineHandlers(requestAuthorizer, c.serveCurrentSession))
}

func (c *SessionController) serveCurrentSession(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(uzzap.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}

	// session meta without the tokens themselves
	type SessionMeta struct {
		Id        string `json:"id"`
		UserId    string `json:"userId"`
		Email     string `json:"email"`
		CreatedAt int64  `json:"createdAt"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	return ctx.JSON(SessionMeta{
		Id:        session.Id,
		UserId:    string(session.UserId),
		Email:     session.Email,
		CreatedAt: session.CreatedAt.Unix(),
		ExpiresAt: session.ExpiresAt.Unix(),
	})
}
