package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/pkg/errors"
)

// HTTPClient posts render specs to the renderer service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Render asks the renderer to produce spec.Output.Path. A transport failure
// or non-2xx reply is a RENDER_ERROR.
func (c *HTTPClient) Render(ctx context.Context, spec rendererv1.RenderSpec) error {
	if err := c.post(ctx, "/render/v1", spec); err != nil {
		return errors.Render(err, "renderer.Render", "renderer failed")
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, spec any) error {
	body, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("renderer http %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
