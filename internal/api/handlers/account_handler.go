package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tootsched/internal/service"
)

type AccountHandler struct {
	account  service.AccountService
	mastodon service.MastodonService
}

func NewAccountHandler(account service.AccountService, mastodon service.MastodonService) *AccountHandler {
	return &AccountHandler{account: account, mastodon: mastodon}
}

// Connect starts the OAuth authorization-code flow against the submitted
// instance.
func (h *AccountHandler) Connect(c *fiber.Ctx) error {
	instanceURL := c.FormValue("instance_url")

	authURL, err := h.account.AuthorizeURL(instanceURL)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback completes the OAuth flow.
func (h *AccountHandler) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")

	if err := h.account.ExchangeCode(c.Context(), state, code); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Account connected"})
}

// SetCredentials stores a manually supplied access token, the alternative
// to the OAuth flow.
func (h *AccountHandler) SetCredentials(c *fiber.Ctx) error {
	instanceURL := c.FormValue("instance_url")
	accessToken := c.FormValue("access_token")

	if err := h.account.SetCredentials(c.Context(), instanceURL, accessToken); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Credentials saved"})
}

// Info reports the connected account, verified against the instance.
func (h *AccountHandler) Info(c *fiber.Ctx) error {
	connected, instanceURL, err := h.account.Connected(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	if !connected {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"connected": false})
	}

	account, err := h.mastodon.VerifyCredentials(c.Context())
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"connected":    true,
		"instance_url": instanceURL,
		"username":     account.Acct,
	})
}
