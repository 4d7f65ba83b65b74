package imageservice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mensatt/notifier/internal/shared/config"
)

// Client fires rotate requests against the image service and builds
// authenticated image URLs. The service uses a static pre-shared key,
// distinct from the backend's login-based token.
type Client struct {
	baseURL    string
	rotateURL  string
	key        string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an image service client.
func New(cfg config.ImageConfig, baseLogger *zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		rotateURL:  cfg.RotateURL,
		key:        cfg.Key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        baseLogger.With().Str("component", "image_client").Logger(),
	}
}

// Rotate requests a rotation of imageID by angle degrees. Fire-and-forget:
// failures are returned to the caller but never retried here.
func (c *Client) Rotate(ctx context.Context, imageID string, angle int) error {
	q := url.Values{}
	q.Set("id", imageID)
	q.Set("angle", fmt.Sprintf("%d", angle))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rotateURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("rotate image %s: %w", imageID, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rotate image %s: %w", imageID, err)
	}
	defer resp.Body.Close()
	// No payload is consumed; drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rotate image %s: unexpected status %s", imageID, resp.Status)
	}

	c.log.Info().Str("image_id", imageID).Int("angle", angle).Msg("Rotated image")
	return nil
}

// ImageURL returns the authenticated URL for embedding an image.
func (c *Client) ImageURL(imageID string) string {
	return fmt.Sprintf("%s%s?auth=%s", c.baseURL, imageID, c.key)
}

// BustedImageURL is ImageURL with a throwaway parameter so the chat client
// refetches the image after a rotation instead of serving its cache.
func (c *Client) BustedImageURL(imageID string) string {
	return fmt.Sprintf("%s&fake=%s", c.ImageURL(imageID), uuid.NewString())
}
