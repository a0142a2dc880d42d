package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"

	config "tootsched/configs"
	"tootsched/pkg/utils"
)

const sessionDuration = 12 * time.Hour

type AuthHandler struct {
	cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// Login exchanges the pre-generated access code for a session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	code := c.FormValue("access_code")

	if h.cfg.AccessCode == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "No access code configured",
		})
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(h.cfg.AccessCode)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid access code",
		})
	}

	sessionID, err := utils.GenerateRandomKey(16)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, sessionID, sessionDuration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Logged in"})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Logged out"})
}
