package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var ErrInvalidCredentials = errors.New("identity: invalid email or password")

type SignInResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type User struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

type PasswordSignIn = func(email string, password string) (SignInResponse, error)

// RestPasswordSignIn implements the password grant against the hosted
// identity provider's token endpoint.
func RestPasswordSignIn(baseUrl string, apiKey string) PasswordSignIn {
	return func(email string, password string) (SignInResponse, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodPost)
		req.SetRequestURI(baseUrl + "/auth/v1/token?grant_type=password")
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.Header.Set("apikey", apiKey)

		credentials, err := json.Marshal(map[string]string{
			"email":    email,
			"password": password,
		})
		if err != nil {
			return SignInResponse{}, fmt.Errorf("marshal credentials: %w", err)
		}
		req.SetBody(credentials)

		if err := agent.Parse(); err != nil {
			return SignInResponse{}, fmt.Errorf("agent parse: %w", err)
		}
		statusCode, bodyBytes, errArr := agent.Bytes()
		if len(errArr) != 0 {
			return SignInResponse{}, fmt.Errorf("agent bytes: %v", errArr)
		}
		if statusCode != fiber.StatusOK {
			return signInError(statusCode, bodyBytes)
		}

		var response SignInResponse
		if err := json.Unmarshal(bodyBytes, &response); err != nil {
			return SignInResponse{}, fmt.Errorf("response unmarshal: %w", err)
		}
		return response, nil
	}
}

func signInError(statusCode int, bodyBytes []byte) (SignInResponse, error) {
	// the provider reports bad credentials as an invalid_grant error
	if statusCode == fiber.StatusBadRequest || statusCode == fiber.StatusUnauthorized {
		return SignInResponse{}, ErrInvalidCredentials
	}
	return SignInResponse{}, fmt.Errorf("invalid status code '%d': %s",
		statusCode, string(bodyBytes))
}
