// Package ledger is the transport to the ledger node: it resolves a
// reference block, signs and pushes transactions, and reads contract tables.
//
// Every request is a single attempt; failures come back as *rpckit.Error with
// KindTransport for anything the node did not answer with a structured error
// and KindRejected when it did.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/internal/signing"
	"cardgame/go-client/pkg/models"
)

const maxErrorBody = 512

// Client is the capability the dispatcher and query client consume.
type Client interface {
	SubmitTransaction(ctx context.Context, env Envelope, signer signing.Provider) (models.TransactionResult, error)
	ReadTable(ctx context.Context, q TableQuery) (TableRows, error)
}

// ClientFactory builds a Client scoped to one endpoint.
type ClientFactory func(endpoint string) Client

type HTTPClient struct {
	endpoint string
	http     *http.Client
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func NewHTTPClient(endpoint string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewFactory returns a ClientFactory producing HTTP clients with opts applied.
func NewFactory(opts ...Option) ClientFactory {
	return func(endpoint string) Client {
		return NewHTTPClient(endpoint, opts...)
	}
}

func (c *HTTPClient) ChainInfo(ctx context.Context) (ChainInfo, error) {
	var out ChainInfo
	err := c.post(ctx, "/v1/chain/get_info", struct{}{}, &out)
	return out, err
}

func (c *HTTPClient) Block(ctx context.Context, num uint32) (BlockHeader, error) {
	var out BlockHeader
	err := c.post(ctx, "/v1/chain/get_block", map[string]any{"block_num_or_id": num}, &out)
	return out, err
}

func (c *HTTPClient) ReadTable(ctx context.Context, q TableQuery) (TableRows, error) {
	var out TableRows
	err := c.post(ctx, "/v1/chain/get_table_rows", q, &out)
	return out, err
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return rpckit.Transport(fmt.Errorf("encode %s request: %w", path, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return rpckit.Transport(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return rpckit.Transport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return rpckit.Transport(fmt.Errorf("read %s response: %w", path, err))
	}
	if resp.StatusCode >= 400 {
		return decodeFailure(path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return rpckit.Transport(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

func decodeFailure(path string, status int, raw []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Name != "" {
		msg := apiErr.Error.What
		if len(apiErr.Error.Details) > 0 && apiErr.Error.Details[0].Message != "" {
			msg = apiErr.Error.Details[0].Message
		}
		if msg == "" {
			msg = apiErr.Message
		}
		return rpckit.Rejected(apiErr.Error.Code, apiErr.Error.Name, msg)
	}
	body := string(raw)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return rpckit.Transport(fmt.Errorf("%s: http %d: %s", path, status, strings.TrimSpace(body)))
}
