// Package render calls the external screenshot service that turns a
// document into an embeddable image. The service layer fires these calls
// and forgets them; a renderer failure never fails a document operation.
package render

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/imperialbin/imperial/assets"
)

// maxImageSize caps how much of a renderer response we will buffer.
const maxImageSize = 10 * 1024 * 1024

// Service renders documents through an external screenshot endpoint and
// persists the result in asset storage.
type Service struct {
	endpoint string
	client   *http.Client
	assets   assets.Store
}

// New creates a renderer client. An empty endpoint disables rendering;
// RenderAndStore becomes a no-op while Remove still clears old artifacts.
func New(endpoint string, store assets.Store) *Service {
	return &Service{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		assets:   store,
	}
}

// RenderAndStore asks the screenshot service for an image of the document
// and stores it alongside the document's slug.
func (s *Service) RenderAndStore(slug string, quality int) error {
	if s.endpoint == "" || s.assets == nil {
		return nil
	}

	reqURL := fmt.Sprintf("%s?document=%s&quality=%s",
		s.endpoint, url.QueryEscape(slug), url.QueryEscape(strconv.Itoa(quality)))

	resp, err := s.client.Get(reqURL)
	if err != nil {
		return fmt.Errorf("screenshot request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("screenshot service returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return fmt.Errorf("failed to read screenshot response: %w", err)
	}
	if len(image) == 0 {
		return fmt.Errorf("screenshot service returned empty image")
	}

	return s.assets.Put(slug, image)
}

// Remove deletes the rendered image for a document, if any
func (s *Service) Remove(slug string) error {
	if s.assets == nil {
		return nil
	}
	return s.assets.Remove(slug)
}
