package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "tootsched/configs"
	"tootsched/internal/models"
)

type credsRepoStub struct {
	stored *models.Credentials
}

func (s *credsRepoStub) Get(ctx context.Context) (*models.Credentials, error) {
	return s.stored, nil
}

func (s *credsRepoStub) Upsert(ctx context.Context, creds *models.Credentials) error {
	s.stored = creds
	return nil
}

func testAccountConfig() config.Config {
	return config.Config{
		SecretKey: "0123456789abcdef0123456789abcdef",
		Mastodon: config.Mastodon{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURI:  "https://tootsched.local/api/account/callback",
		},
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	repo := &credsRepoStub{}
	svc := NewAccountService(testAccountConfig(), repo)

	err := svc.SetCredentials(context.Background(), "https://example.social/", "token-123")
	require.NoError(t, err)

	require.NotNil(t, repo.stored)
	assert.NotContains(t, repo.stored.AccessTokenEnc, "token-123", "token must be stored encrypted")
	assert.Equal(t, "https://example.social", repo.stored.InstanceURL, "trailing slash trimmed")

	instanceURL, token, err := svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.social", instanceURL)
	assert.Equal(t, "token-123", token)
}

func TestCredentialsMissing(t *testing.T) {
	svc := NewAccountService(testAccountConfig(), &credsRepoStub{})

	_, _, err := svc.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSetCredentialsValidation(t *testing.T) {
	svc := NewAccountService(testAccountConfig(), &credsRepoStub{})

	err := svc.SetCredentials(context.Background(), "", "token")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.SetCredentials(context.Background(), "https://example.social", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthorizeURL(t *testing.T) {
	svc := NewAccountService(testAccountConfig(), &credsRepoStub{})

	authURL, err := svc.AuthorizeURL("https://example.social")
	require.NoError(t, err)
	assert.Contains(t, authURL, "https://example.social/oauth/authorize")
	assert.Contains(t, authURL, "client_id=client")
	assert.Contains(t, authURL, "state=")

	_, err = svc.AuthorizeURL("http://insecure.example")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExchangeCodeUnknownState(t *testing.T) {
	svc := NewAccountService(testAccountConfig(), &credsRepoStub{})

	err := svc.ExchangeCode(context.Background(), "bogus-state", "code")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
