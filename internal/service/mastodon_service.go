package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"

	"tootsched/internal/transfer"
	"tootsched/pkg/utils"
)

// MastodonService is the publish client: upload media, create a status.
// Failures at fire time are reported to the caller and never retried here.
type MastodonService interface {
	UploadMedia(ctx context.Context, path, altText string) (string, error)
	CreateStatus(ctx context.Context, sub transfer.StatusSubmission) (string, error)
	VerifyCredentials(ctx context.Context) (*transfer.MastodonAccount, error)
}

type mastodonService struct {
	account AccountService
	client  *http.Client
}

func NewMastodonService(account AccountService) MastodonService {
	return &mastodonService{
		account: account,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadMedia posts the file to /api/v1/media and returns the attachment id.
// The MIME type is sniffed from the file content.
func (s *mastodonService) UploadMedia(ctx context.Context, path, altText string) (string, error) {
	instanceURL, token, err := s.account.Credentials(ctx)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind.MIME.Value == "" {
		return "", fmt.Errorf("could not determine media type of %s", filepath.Base(path))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", kind.MIME.Value)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if altText != "" {
		if err := writer.WriteField("description", altText); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instanceURL+"/api/v1/media", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var attachment transfer.MastodonAttachment
	if err := s.do(req, &attachment); err != nil {
		return "", fmt.Errorf("media upload: %w", err)
	}

	slog.Info("media uploaded", "media_id", attachment.ID, "file", filepath.Base(path))
	return attachment.ID, nil
}

// CreateStatus posts the status. An Idempotency-Key header guards against
// a duplicate toot if the response is lost and the call is made again.
func (s *mastodonService) CreateStatus(ctx context.Context, sub transfer.StatusSubmission) (string, error) {
	instanceURL, token, err := s.account.Credentials(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instanceURL+"/api/v1/statuses", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	idempotencyKey, err := utils.GenerateRandomKey(16)
	if err == nil {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	var status transfer.MastodonStatus
	if err := s.do(req, &status); err != nil {
		return "", fmt.Errorf("status post: %w", err)
	}

	slog.Info("status posted", "status_id", status.ID, "url", status.URL)
	return status.ID, nil
}

func (s *mastodonService) VerifyCredentials(ctx context.Context) (*transfer.MastodonAccount, error) {
	instanceURL, token, err := s.account.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instanceURL+"/api/v1/accounts/verify_credentials", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var account transfer.MastodonAccount
	if err := s.do(req, &account); err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	return &account, nil
}

func (s *mastodonService) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr transfer.MastodonErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("mastodon api: %s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("mastodon api: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
