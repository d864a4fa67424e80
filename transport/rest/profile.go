package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/uzzapchat/uzzap"
)

type ProfileController struct {
	Store uzzap.ProfileStore
	Flows *FlowRegistry
}

func (c *ProfileController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/profile/:user_id", c.serveProfile)
	app.Post("/profile/sync", combineHandlers(requestAuthorizer, c.serveSync))
	app.Patch("/profile", combineHandlers(requestAuthorizer, c.serveUpdate))
	app.Post("/profile/avatar", combineHandlers(requestAuthorizer, c.serveUpdateAvatar))
}

type ProfileResponse struct {
	Id            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName,omitempty"`
	AvatarUrl     string `json:"avatarUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	LastSeen      int64  `json:"lastSeen"`
}

func profileResponse(profile uzzap.Profile) ProfileResponse {
	return ProfileResponse{
		Id:            string(profile.Id),
		Username:      profile.Username,
		DisplayName:   profile.DisplayName,
		AvatarUrl:     profile.AvatarUrl,
		StatusMessage: profile.StatusMessage,
		CreatedAt:     profile.CreatedAt.Unix(),
		LastSeen:      profile.LastSeen.Unix(),
	}
}

func (c *ProfileController) serveProfile(ctx *fiber.Ctx) error {
	userId := ctx.Params("user_id")
	if userId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no user id")
	}

	profile, err := c.Store.ByUserId(ctx.Context(), uzzap.UserId(userId))
	if err != nil {
		if errors.Is(err, uzzap.ErrProfileNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "profile not found")
		}
		return fmt.Errorf("get profile by user id: %w", err)
	}
	return ctx.JSON(profileResponse(profile))
}

func (c *ProfileController) serveSync(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(uzzap.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}

	flow := c.Flows.ForUser(session.UserId)
	profile, err := flow.Sync(ctx.Context(), session)
	if err != nil {
		if errors.Is(err, uzzap.ErrProfileConflict) {
			return fiber.NewError(fiber.StatusConflict, "profile provisioning conflict")
		}
		return fmt.Errorf("sync profile: %w", err)
	}

	return ctx.JSON(map[string]interface{}{
		"state":   flow.State().String(),
		"profile": profileResponse(profile),
	})
}

func (c *ProfileController) serveUpdate(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(uzzap.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}

	patch, err := parseProfilePatch(ctx.Body())
	if err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if patch.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	flow := c.Flows.ForUser(session.UserId)
	profile, err := flow.Update(ctx.Context(), patch)
	if err != nil {
		return mutationError(err)
	}
	return ctx.JSON(profileResponse(profile))
}

func (c *ProfileController) serveUpdateAvatar(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(uzzap.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing avatar file")
	}
	extension := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
	if extension == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing file extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open avatar upload: %w", err)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read avatar upload: %w", err)
	}

	flow := c.Flows.ForUser(session.UserId)
	profile, err := flow.UpdateAvatar(ctx.Context(), content, extension)
	if err != nil {
		if errors.Is(err, uzzap.ErrAvatarUpload) {
			return fiber.NewError(fiber.StatusBadGateway, "avatar upload failed")
		}
		return mutationError(err)
	}
	return ctx.JSON(profileResponse(profile))
}

func mutationError(err error) error {
	switch {
	case errors.Is(err, uzzap.ErrNotSynced):
		return fiber.NewError(fiber.StatusConflict, "profile not synchronized")
	case errors.Is(err, uzzap.ErrProfileNotFound):
		return fiber.NewError(fiber.StatusNotFound, "profile not found")
	default:
		return fmt.Errorf("update profile: %w", err)
	}
}

// parseProfilePatch keeps the omitted/null distinction: an absent key is
// no change, a json null clears the stored value.
func parseProfilePatch(body []byte) (uzzap.ProfilePatch, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return uzzap.ProfilePatch{}, fmt.Errorf("unmarshal patch: %w", err)
	}

	patch := uzzap.ProfilePatch{}
	assign := map[string]*uzzap.NullString{
		"displayName":   &patch.DisplayName,
		"statusMessage": &patch.StatusMessage,
		"avatarUrl":     &patch.AvatarUrl,
	}
	for name, target := range assign {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if string(raw) == "null" {
			*target = uzzap.SetNull()
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return uzzap.ProfilePatch{}, fmt.Errorf("unmarshal patch field %s: %w", name, err)
		}
		*target = uzzap.SetString(value)
	}
	return patch, nil
}
