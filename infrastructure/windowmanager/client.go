package windowmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/valyala/fasthttp"
)

// ShellClient talks to the native shell's window endpoint over HTTP. The
// shell owns the real OS windows; this client only forwards commands.
type ShellClient struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewShellClient(baseURL string, timeout time.Duration) *ShellClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ShellClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &fasthttp.Client{},
	}
}

func (c *ShellClient) do(ctx context.Context, method, path string, body any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return pkgError.InternalServerError(fmt.Sprintf("window manager request failed: %v", err))
	}

	status := resp.StatusCode()
	if status == fasthttp.StatusNotFound {
		return pkgError.NotFoundError("window manager: " + path + " not found")
	}
	if status < 200 || status >= 300 {
		return pkgError.InternalServerError(fmt.Sprintf("window manager returned %d for %s %s", status, method, path))
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return pkgError.InternalServerError(fmt.Sprintf("window manager sent invalid response: %v", err))
		}
	}
	return nil
}

func (c *ShellClient) Exists(ctx context.Context, id string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, fasthttp.MethodGet, "/windows/"+id+"/exists", nil, &result)
	if err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (c *ShellClient) Spawn(ctx context.Context, config domainOverlay.Config) error {
	return c.do(ctx, fasthttp.MethodPost, "/windows", config, nil)
}

func (c *ShellClient) SetVisible(ctx context.Context, id string, visible bool) error {
	body := map[string]bool{"visible": visible}
	return c.do(ctx, fasthttp.MethodPut, "/windows/"+id+"/visible", body, nil)
}

func (c *ShellClient) UpdateGeometry(ctx context.Context, id string, x, y, width, height float64) error {
	body := map[string]float64{"x": x, "y": y, "width": width, "height": height}
	return c.do(ctx, fasthttp.MethodPut, "/windows/"+id+"/geometry", body, nil)
}

func (c *ShellClient) SetClickThrough(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, fasthttp.MethodPut, "/windows/"+id+"/click-through", body, nil)
}

func (c *ShellClient) SetAlwaysOnTop(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, fasthttp.MethodPut, "/windows/"+id+"/always-on-top", body, nil)
}

func (c *ShellClient) Close(ctx context.Context, id string) error {
	return c.do(ctx, fasthttp.MethodDelete, "/windows/"+id, nil, nil)
}

func (c *ShellClient) List(ctx context.Context) ([]string, error) {
	var result struct {
		Windows []string `json:"windows"`
	}
	err := c.do(ctx, fasthttp.MethodGet, "/windows", nil, &result)
	if err != nil {
		return nil, err
	}
	return result.Windows, nil
}
