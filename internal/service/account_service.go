package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	config "tootsched/configs"
	"tootsched/internal/models"
	"tootsched/internal/repository"
	"tootsched/pkg/utils"
)

// AccountService manages the Mastodon account the process posts as. The
// access token lands in the credentials table encrypted with the config
// secret key; the publish client reads it back fresh on every call so a
// re-connect takes effect without a restart.
type AccountService interface {
	Credentials(ctx context.Context) (instanceURL, accessToken string, err error)
	SetCredentials(ctx context.Context, instanceURL, accessToken string) error
	AuthorizeURL(instanceURL string) (string, error)
	ExchangeCode(ctx context.Context, state, code string) error
	Connected(ctx context.Context) (bool, string, error)
}

type accountService struct {
	cfg config.Config
	cr  repository.CredentialsRepository

	mu           sync.Mutex
	pendingState map[string]string // state -> instance URL awaiting callback
}

func NewAccountService(cfg config.Config, cr repository.CredentialsRepository) AccountService {
	return &accountService{
		cfg:          cfg,
		cr:           cr,
		pendingState: make(map[string]string),
	}
}

func (s *accountService) Credentials(ctx context.Context) (string, string, error) {
	creds, err := s.cr.Get(ctx)
	if err != nil {
		return "", "", err
	}
	if creds == nil {
		return "", "", ErrNoCredentials
	}

	token, err := utils.Decrypt(creds.AccessTokenEnc, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", "", fmt.Errorf("decrypt access token: %w", err)
	}

	return creds.InstanceURL, token, nil
}

func (s *accountService) SetCredentials(ctx context.Context, instanceURL, accessToken string) error {
	instanceURL = strings.TrimRight(instanceURL, "/")
	if instanceURL == "" || accessToken == "" {
		err := errors.New("instance URL and access token are required")
		slog.Info(err.Error())
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	encrypted, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	return s.cr.Upsert(ctx, &models.Credentials{
		InstanceURL:    instanceURL,
		AccessTokenEnc: encrypted,
	})
}

func (s *accountService) Connected(ctx context.Context) (bool, string, error) {
	creds, err := s.cr.Get(ctx)
	if err != nil {
		return false, "", err
	}
	if creds == nil {
		return false, "", nil
	}
	return true, creds.InstanceURL, nil
}

func (s *accountService) oauthConfig(instanceURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.Mastodon.ClientID,
		ClientSecret: s.cfg.Mastodon.ClientSecret,
		RedirectURL:  s.cfg.Mastodon.RedirectURI,
		Scopes:       []string{"read:accounts", "write:statuses", "write:media"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  instanceURL + "/oauth/authorize",
			TokenURL: instanceURL + "/oauth/token",
		},
	}
}

// AuthorizeURL starts the authorization-code flow against the given
// instance. The returned URL is where the browser should be sent.
func (s *accountService) AuthorizeURL(instanceURL string) (string, error) {
	instanceURL = strings.TrimRight(instanceURL, "/")
	if !strings.HasPrefix(instanceURL, "https://") {
		return "", fmt.Errorf("%w: instance URL must be https", ErrInvalidInput)
	}

	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pendingState[state] = instanceURL
	s.mu.Unlock()

	return s.oauthConfig(instanceURL).AuthCodeURL(state), nil
}

// ExchangeCode completes the flow: trades the code for an access token and
// stores it. The state is single-use.
func (s *accountService) ExchangeCode(ctx context.Context, state, code string) error {
	if code == "" || state == "" {
		return fmt.Errorf("%w: code or state is empty", ErrInvalidInput)
	}

	s.mu.Lock()
	instanceURL, ok := s.pendingState[state]
	delete(s.pendingState, state)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: unknown oauth state", ErrInvalidInput)
	}

	token, err := s.oauthConfig(instanceURL).Exchange(ctx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", "instance", instanceURL, "error", err)
		return err
	}

	return s.SetCredentials(ctx, instanceURL, token.AccessToken)
}
