package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

const msgMissingCredentials = "Missing required fields: username, password"

func parseCredentials(c *fiber.Ctx) (CredentialsRequest, error) {
	var body CredentialsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return body, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		return body, fiber.NewError(fiber.StatusBadRequest, msgMissingCredentials)
	}
	return body, nil
}

func RegisterHandler(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseCredentials(c)
		if err != nil {
			return err
		}

		if _, err := store.Register(c.UserContext(), body.Username, body.Password); err != nil {
			if errors.Is(err, ErrUsernameTaken) {
				return fiber.NewError(fiber.StatusConflict, "User already exists")
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"msg": "registered"})
	}
}

func LoginHandler(store *Store, tokens *TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := parseCredentials(c)
		if err != nil {
			return err
		}

		user, err := store.Verify(c.UserContext(), body.Username, body.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return fiber.NewError(fiber.StatusUnauthorized, "Bad credentials")
			}
			return err
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			return err
		}

		return c.JSON(LoginResponse{
			AccessToken: token,
			ExpiresIn:   int(tokens.TTL().Seconds()),
		})
	}
}
