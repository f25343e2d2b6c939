package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/launchpad-web/launchpad/internal/platform/cache"
	"github.com/launchpad-web/launchpad/internal/reqctx"
)

var forwardedHeaders = []string{"Cookie", "Accept-Language", "Authorization", "X-CSRF-Token"}

// Client calls procedures on behalf of one inbound request, forwarding its
// credentials. Query results are memoized for the life of the request.
type Client struct {
	baseURL string
	http    *http.Client
	header  http.Header
	queries *cache.Query
}

// NewClient builds a client scoped to inbound.
func NewClient(baseURL string, httpClient *http.Client, inbound *http.Request, queries *cache.Query) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if queries == nil {
		queries = cache.NewQuery()
	}
	header := make(http.Header)
	if inbound != nil {
		for _, key := range forwardedHeaders {
			if values := inbound.Header.Values(key); len(values) > 0 {
				header[key] = append([]string(nil), values...)
			}
		}
		if id := middleware.GetReqID(inbound.Context()); id != "" {
			header.Set(middleware.RequestIDHeader, id)
		} else if id := inbound.Header.Get(middleware.RequestIDHeader); id != "" {
			header.Set(middleware.RequestIDHeader, id)
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		header:  header,
		queries: queries,
	}
}

// NewClientFactory returns the assembler hook creating one Client per request.
func NewClientFactory(baseURL string, httpClient *http.Client) reqctx.ClientFactory {
	return func(r *http.Request, queries *cache.Query) reqctx.Caller {
		return NewClient(baseURL, httpClient, r, queries)
	}
}

// Query calls a query procedure and decodes its data into out.
func (c *Client) Query(ctx context.Context, procedure string, input, out any) error {
	payload, err := encodeInput(input)
	if err != nil {
		return err
	}
	key := procedure + "\x00" + string(payload)
	data, err := c.queries.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		endpoint := c.endpoint(procedure)
		if len(payload) > 0 {
			endpoint += "?" + url.Values{"input": {string(payload)}}.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return c.do(req, procedure)
	})
	if err != nil {
		return err
	}
	return decodeData(data.(json.RawMessage), out)
}

// Mutate calls a mutation procedure. Memoized queries are dropped afterwards.
func (c *Client) Mutate(ctx context.Context, procedure string, input, out any) error {
	payload, err := encodeInput(input)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(procedure), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	data, err := c.do(req, procedure)
	c.queries.Invalidate()
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

func (c *Client) endpoint(procedure string) string {
	return c.baseURL + "/api/rpc/" + url.PathEscape(procedure)
}

func (c *Client) do(req *http.Request, procedure string) (json.RawMessage, error) {
	for key, values := range c.header {
		req.Header[key] = values
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: call %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("rpc: read %s: %w", procedure, err)
	}
	var env struct {
		Result *struct {
			Data json.RawMessage `json:"data"`
		} `json:"result"`
		Error *Failure `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &RemoteError{Failure{Message: http.StatusText(resp.StatusCode), HTTPStatus: resp.StatusCode, Path: procedure}}
	}
	if env.Error != nil {
		return nil, &RemoteError{*env.Error}
	}
	if env.Result == nil {
		return nil, fmt.Errorf("rpc: %s: empty response", procedure)
	}
	return env.Result.Data, nil
}

func encodeInput(input any) ([]byte, error) {
	if input == nil {
		return nil, nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode input: %w", err)
	}
	return payload, nil
}

func decodeData(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("rpc: decode result: %w", err)
	}
	return nil
}
