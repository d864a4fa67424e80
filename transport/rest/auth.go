package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/uzzapchat/uzzap"
	"github.com/uzzapchat/uzzap/identity"
)

type AuthController struct {
	SignInWithPassword identity.PasswordSignIn
	SessionStore       uzzap.SessionStore
	Flows              *FlowRegistry
}

func (c *AuthController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Post("/auth/sign-in", c.serveSignIn)
	app.Post("/auth/sign-out", combineHandlers(requestAuthorizer, c.serveSignOut))
}

func (c *AuthController) serveSignIn(ctx *fiber.Ctx) error {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Email == "" || body.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing credentials")
	}

	response, err := c.SignInWithPassword(body.Email, body.Password)
	if err != nil {
		// a failed sign in leaves no partial session state behind
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		return fmt.Errorf("password sign in: %w", err)
	}

	session, err := c.SessionStore.RegisterNew(ctx.Context(), uzzap.UserId(response.User.Id),
		response.User.Email, response.AccessToken, response.RefreshToken)
	if err != nil {
		return fmt.Errorf("session register new: %w", err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(map[string]interface{}{
		"id":          session.Id,
		"userId":      session.UserId,
		"accessToken": session.AccessToken,
		"expiresAt":   session.ExpiresAt.Unix(),
	})
}

func (c *AuthController) serveSignOut(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(uzzap.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if c.Flows != nil {
		c.Flows.Drop(session.UserId)
	}
	if err := c.SessionStore.Invalidate(session.AccessToken); err != nil {
		if errors.Is(err, uzzap.ErrSessionNotFound) {
			return fiber.ErrUnauthorized
		}
		return fmt.Errorf("session invalidate: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
