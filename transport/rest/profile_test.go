package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/uzzapchat/uzzap"
	"github.com/uzzapchat/uzzap/inmem"
	"github.com/uzzapchat/uzzap/mock"
)

func testAuthorizer(session uzzap.Session) fiber.Handler {
	return RequestAuthorizer(mock.SessionService{
		ByTokenFn: func(token string) (uzzap.Session, error) {
			if token != session.AccessToken {
				return uzzap.Session{}, uzzap.ErrSessionNotFound
			}
			return session, nil
		},
	})
}

func TestProfileControllerLookup(t *testing.T) {
	assert := assert.New(t)

	controller := ProfileController{
		Store: mock.ProfileService{
			ByUserIdFn: func(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error) {
				return uzzap.Profile{
					Id:        "u-1",
					Username:  "makin",
					AvatarUrl: "https://storage.uzzap.test/avatars/u-1.jpg",
					CreatedAt: time.Unix(1700000000, 0),
					LastSeen:  time.Unix(1700000100, 0),
				}, nil
			},
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(nil, app)

	req := httptest.NewRequest("GET", "/profile/u-1", nil)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(`{"id":"u-1","username":"makin",`+
		`"avatarUrl":"https://storage.uzzap.test/avatars/u-1.jpg",`+
		`"createdAt":1700000000,"lastSeen":1700000100}`, string(body))
}

func TestProfileControllerLookupNotFound(t *testing.T) {
	assert := assert.New(t)

	controller := ProfileController{
		Store: mock.ProfileService{
			ByUserIdFn: func(ctx context.Context, userId uzzap.UserId) (uzzap.Profile, error) {
				return uzzap.Profile{}, uzzap.ErrProfileNotFound
			},
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(nil, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/profile/u-missing", nil))
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()

	assert.Equal(fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(JsonErrorMessageResponse("profile not found"), string(body))
}

func TestProfileControllerSyncProvisions(t *testing.T) {
	assert := assert.New(t)

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	req := httptest.NewRequest("POST", "/profile/sync", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusOK, resp.StatusCode)

	var response struct {
		State   string          `json:"state"`
		Profile ProfileResponse `json:"profile"`
	}
	if !assert.NoError(json.NewDecoder(resp.Body).Decode(&response)) {
		return
	}
	assert.Equal("ready", response.State)
	assert.Equal("user_u-1", response.Profile.Username)
	assert.Equal("New User", response.Profile.DisplayName)

	// second sync returns the provisioned row instead of creating again
	req = httptest.NewRequest("POST", "/profile/sync", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	resp2, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp2.Body.Close()
	assert.Equal(fiber.StatusOK, resp2.StatusCode)
}

func TestProfileControllerSyncUnauthorized(t *testing.T) {
	assert := assert.New(t)

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	req := httptest.NewRequest("POST", "/profile/sync", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer other-token")
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProfileControllerUpdate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	_, err := flows.ForUser(session.UserId).Sync(ctx, session)
	if !assert.NoError(err) {
		return
	}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	req := httptest.NewRequest("PATCH", "/profile", bytes.NewReader([]byte(`{"statusMessage":"hi"}`)))
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusOK, resp.StatusCode)

	var updated ProfileResponse
	if !assert.NoError(json.NewDecoder(resp.Body).Decode(&updated)) {
		return
	}
	assert.Equal("hi", updated.StatusMessage)
	assert.Equal("New User", updated.DisplayName)

	// explicit null clears, omitted fields stay
	req = httptest.NewRequest("PATCH", "/profile", bytes.NewReader([]byte(`{"displayName":null}`)))
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp2, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp2.Body.Close()

	var cleared ProfileResponse
	if !assert.NoError(json.NewDecoder(resp2.Body).Decode(&cleared)) {
		return
	}
	assert.Equal("", cleared.DisplayName)
	assert.Equal("hi", cleared.StatusMessage)
}

func TestProfileControllerUpdateNoFields(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	_, err := flows.ForUser(session.UserId).Sync(ctx, session)
	if !assert.NoError(err) {
		return
	}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	req := httptest.NewRequest("PATCH", "/profile", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func TestProfileControllerUpdateBeforeSync(t *testing.T) {
	assert := assert.New(t)

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	req := httptest.NewRequest("PATCH", "/profile", bytes.NewReader([]byte(`{"statusMessage":"hi"}`)))
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusConflict, resp.StatusCode)
}

func multipartAvatar(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func TestProfileControllerAvatarUpload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	profiles := inmem.NewProfileStore()
	avatars := inmem.NewAvatarStore()
	flows := NewFlowRegistry(&profiles, &avatars)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	_, err := flows.ForUser(session.UserId).Sync(ctx, session)
	if !assert.NoError(err) {
		return
	}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	body, contentType := multipartAvatar(t, "pic.jpg", []byte{0xFF, 0xD8, 0xFF})
	req := httptest.NewRequest("POST", "/profile/avatar", body)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusOK, resp.StatusCode)

	var updated ProfileResponse
	if !assert.NoError(json.NewDecoder(resp.Body).Decode(&updated)) {
		return
	}
	assert.Equal(avatars.BaseUrl+"/avatars/u-1.jpg", updated.AvatarUrl)

	stored, ok := avatars.Object("avatars/u-1.jpg")
	assert.True(ok)
	assert.Equal([]byte{0xFF, 0xD8, 0xFF}, stored)
}

func TestProfileControllerAvatarUploadFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	profiles := inmem.NewProfileStore()
	uploader := mock.AvatarService{
		UploadFn: func(ctx context.Context, userId uzzap.UserId, content []byte, extensionHint string) (string, error) {
			return "", uzzap.ErrAvatarUpload
		},
	}
	flows := NewFlowRegistry(&profiles, uploader)
	session := uzzap.Session{Id: "s-1", UserId: "u-1", AccessToken: "tok-1"}

	before, err := flows.ForUser(session.UserId).Sync(ctx, session)
	if !assert.NoError(err) {
		return
	}

	controller := ProfileController{Store: &profiles, Flows: flows}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(testAuthorizer(session), app)

	body, contentType := multipartAvatar(t, "pic.jpg", []byte{0xFF, 0xD8, 0xFF})
	req := httptest.NewRequest("POST", "/profile/avatar", body)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusBadGateway, resp.StatusCode)

	stored, err := profiles.ByUserId(ctx, session.UserId)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(before.AvatarUrl, stored.AvatarUrl)
}
