package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"klinedash/internal/config"
	"klinedash/internal/logger"
)

const maxErrorBody = 64 << 10

// Client wraps the K-line backend REST API and its {code, message, data} envelope.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient constructs a client from configuration.
func NewClient(cfg config.APIConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("api.base_url 不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("解析 api.base_url 失败: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// envelope is the backend's common response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Get issues a GET with query parameters and decodes envelope data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a JSON POST and decodes envelope data into out.
func (c *Client) Post(ctx context.Context, path string, payload any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, nil, payload, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	if c == nil || c.httpClient == nil {
		return ConfigError(path, errors.New("client not initialized"))
	}
	endpoint, err := c.resolveEndpoint(path, query)
	if err != nil {
		return ConfigError(path, err)
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return ConfigError(path, fmt.Errorf("序列化请求失败: %w", err))
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return ConfigError(path, fmt.Errorf("构造请求失败: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	logger.Info("api request", "method", method, "path", path, "query", query.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			logger.Infof("api request canceled: %s %s", method, path)
			return ErrCanceled
		}
		logger.Error("api network error", "path", path, "err", err.Error())
		return &Error{Kind: KindNetwork, Path: path, Message: msgNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := serverMessage(resp.StatusCode, data)
		logger.Error("api error response", "path", path, "status", resp.StatusCode, "message", msg)
		return &Error{Kind: KindServer, Path: path, Status: resp.StatusCode, Message: msg}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return ErrCanceled
		}
		logger.Error("api decode failed", "path", path, "err", err.Error())
		return &Error{Kind: KindServer, Path: path, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	if env.Code != 0 {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("request failed (code %d)", env.Code)
		}
		logger.Error("api application error", "path", path, "code", env.Code, "message", msg)
		return &Error{Kind: KindApplication, Path: path, Status: resp.StatusCode, Code: env.Code, Message: msg}
	}
	logger.Successf("api response: %s %s (%d)", method, path, resp.StatusCode)
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindServer, Path: path, Status: resp.StatusCode, Message: "invalid response data", Err: err}
	}
	return nil
}

// serverMessage picks detail first, then message, then a generic text.
func serverMessage(status int, body []byte) string {
	if len(body) > 0 && gjson.ValidBytes(body) {
		detail := gjson.GetBytes(body, "detail")
		switch {
		case detail.Type == gjson.String && strings.TrimSpace(detail.String()) != "":
			return strings.TrimSpace(detail.String())
		case detail.IsArray():
			if msg := strings.TrimSpace(detail.Get("0.msg").String()); msg != "" {
				return msg
			}
		}
		if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && strings.TrimSpace(msg.String()) != "" {
			return strings.TrimSpace(msg.String())
		}
	}
	return fmt.Sprintf("server error (%d)", status)
}

func (c *Client) resolveEndpoint(path string, query url.Values) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("API 地址未设置")
	}
	if c.baseURL.Scheme == "" || c.baseURL.Host == "" {
		return nil, fmt.Errorf("API 地址无效: %q", c.baseURL.String())
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("empty request path")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + trimmed
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u, nil
}
