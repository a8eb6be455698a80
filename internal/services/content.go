// Content service HTTP client.
//
// Wraps the card, icon, and upload endpoints of the remote content API with
// bearer authentication via [oauth2].
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
	"golang.org/x/oauth2"
)

const (
	contentRoute     = "/content"
	myContentRoute   = "/content/mine"
	publicIconsRoute = "/media/displayIcons/user/yoto"
	customIconsRoute = "/media/displayIcons/user/me"
	uploadURLRoute   = "/media/transcode/audio/uploadUrl"
	transcodeRoute   = "/media/upload/%s/transcoded"
)

// AuthFailureFunc is invoked when the content service rejects the credential.
// It fires independently of the failing call's returned error.
type AuthFailureFunc func(statusCode int)

// ContentClient implements [ContentAPI] against the content service.
type ContentClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	onAuthFail AuthFailureFunc
}

// NewContentClient creates a content client authenticated with the given
// bearer token. The token is attached to every request through an [oauth2]
// transport.
func NewContentClient(baseURL, token string, logger *log.Logger) *ContentClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &ContentClient{
		baseURL:    baseURL,
		httpClient: oauth2.NewClient(context.Background(), src),
		logger:     logger,
	}
}

// OnAuthFailure registers a callback fired on 401/403 responses.
func (c *ContentClient) OnAuthFailure(fn AuthFailureFunc) {
	c.onAuthFail = fn
}

// doRequest performs an authenticated request and decodes the JSON response
// into result when non-nil.
func (c *ContentClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.onAuthFail != nil {
			c.onAuthFail(resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetPlaylist retrieves a card document by id.
func (c *ContentClient) GetPlaylist(ctx context.Context, cardID string) (*models.Card, error) {
	if cardID == "" {
		return nil, fmt.Errorf("%w: card ID", shared.ErrMissingArgument)
	}

	c.logger.Debugf("fetching card %s", cardID)

	var response struct {
		Card models.Card `json:"card"`
	}
	if err := c.doRequest(ctx, http.MethodGet, contentRoute+"/"+cardID, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", cardID, err)
	}

	return &response.Card, nil
}

// GetPlaylists retrieves the index of the user's cards.
func (c *ContentClient) GetPlaylists(ctx context.Context) ([]models.Card, error) {
	var response struct {
		Cards []models.Card `json:"cards"`
	}
	if err := c.doRequest(ctx, http.MethodGet, myContentRoute, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	return response.Cards, nil
}

// SavePlaylist creates or updates a card, depending on whether card.CardID is set.
func (c *ContentClient) SavePlaylist(ctx context.Context, card *models.Card) (*SaveResult, error) {
	isUpdate := card.CardID != ""
	if isUpdate {
		c.logger.Debugf("updating card %s", card.CardID)
	} else {
		c.logger.Debugf("creating card %q", card.Title)
	}

	var response struct {
		CardID string `json:"cardId"`
		Card   struct {
			CardID string `json:"cardId"`
		} `json:"card"`
	}
	if err := c.doRequest(ctx, http.MethodPost, contentRoute, card, &response); err != nil {
		if isUpdate {
			return nil, fmt.Errorf("failed to update playlist: %w", err)
		}
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	cardID := response.CardID
	if cardID == "" {
		cardID = response.Card.CardID
	}
	if cardID == "" {
		cardID = card.CardID
	}

	return &SaveResult{CardID: cardID, IsUpdate: isUpdate}, nil
}

// DeletePlaylist removes a card by id.
func (c *ContentClient) DeletePlaylist(ctx context.Context, cardID string) error {
	if cardID == "" {
		return fmt.Errorf("%w: card ID", shared.ErrMissingArgument)
	}

	if err := c.doRequest(ctx, http.MethodDelete, contentRoute+"/"+cardID, nil, nil); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", cardID, err)
	}

	return nil
}

// iconList is the wire shape of both icon listing endpoints.
type iconList struct {
	DisplayIcons []struct {
		MediaID    string   `json:"mediaId"`
		Title      string   `json:"title"`
		PublicTags []string `json:"publicTags"`
		Tags       []string `json:"tags"`
	} `json:"displayIcons"`
}

func (l iconList) icons() []models.Icon {
	icons := make([]models.Icon, 0, len(l.DisplayIcons))
	for _, raw := range l.DisplayIcons {
		tags := raw.PublicTags
		if len(tags) == 0 {
			tags = raw.Tags
		}
		icons = append(icons, models.Icon{
			MediaID: raw.MediaID,
			Title:   raw.Title,
			Tags:    tags,
		})
	}
	return icons
}

// GetPublicIcons lists the public 16x16 icon set.
func (c *ContentClient) GetPublicIcons(ctx context.Context) ([]models.Icon, error) {
	var response iconList
	if err := c.doRequest(ctx, http.MethodGet, publicIconsRoute, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch icons: %w", err)
	}

	c.logger.Debugf("fetched %d public icons", len(response.DisplayIcons))
	return response.icons(), nil
}

// GetCustomIcons lists the user's uploaded icons.
func (c *ContentClient) GetCustomIcons(ctx context.Context) ([]models.Icon, error) {
	var response iconList
	if err := c.doRequest(ctx, http.MethodGet, customIconsRoute, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch custom icons: %w", err)
	}

	c.logger.Debugf("fetched %d custom icons", len(response.DisplayIcons))
	return response.icons(), nil
}

// GetUploadURL requests a pre-signed upload slot for a file.
func (c *ContentClient) GetUploadURL(ctx context.Context, sha256, filename string) (*UploadSlot, error) {
	endpoint := fmt.Sprintf("%s?sha256=%s&filename=%s",
		uploadURLRoute, url.QueryEscape(sha256), url.QueryEscape(filename))

	var response struct {
		Upload UploadSlot `json:"upload"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to get upload URL: %w", err)
	}

	if response.Upload.UploadID == "" {
		return nil, fmt.Errorf("%w: response missing upload ID", shared.ErrAPIRequest)
	}

	slot := response.Upload
	// A missing URL means the file is already known to the service.
	slot.AlreadyExists = slot.UploadURL == ""
	return &slot, nil
}

// TranscodeStatus queries transcode progress for an upload.
func (c *ContentClient) TranscodeStatus(ctx context.Context, uploadID string) (*TranscodeResult, error) {
	var response struct {
		Transcode TranscodeResult `json:"transcode"`
	}
	endpoint := fmt.Sprintf(transcodeRoute, url.PathEscape(uploadID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to check transcoding status: %w", err)
	}

	return &response.Transcode, nil
}

// PutFile transfers raw bytes to a pre-signed URL. The URL is external to the
// content API, so the bearer transport is bypassed.
func (c *ContentClient) PutFile(ctx context.Context, uploadURL string, body []byte) error {
	if uploadURL == "" {
		return fmt.Errorf("%w: upload URL", shared.ErrMissingArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, text)
	}

	return nil
}
