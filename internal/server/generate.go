package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var errNoMatchingImage = errors.New("no matching images found")

// generateClient is a thin pass-through to the external image selection
// service. No retries, no caching.
type generateClient struct {
	baseURL string
	client  *http.Client
}

func newGenerateClient(baseURL string) *generateClient {
	return &generateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *generateClient) fetchImage(ctx context.Context, age, sex, disease string) ([]byte, string, error) {
	params := url.Values{}
	params.Set("age", age)
	params.Set("sex", sex)
	params.Set("disease", disease)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/generate?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", errNoMatchingImage
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return body, contentType, nil
}

func (s *Server) handleGenerateImage(c *gin.Context) {
	if s.generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image generation is not configured"})
		return
	}
	age := c.DefaultQuery("age", "any")
	sex := c.DefaultQuery("sex", "any")
	disease := c.DefaultQuery("disease", "any")

	image, contentType, err := s.generator.fetchImage(c.Request.Context(), age, sex, disease)
	if errors.Is(err, errNoMatchingImage) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching images found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentType, image)
}
