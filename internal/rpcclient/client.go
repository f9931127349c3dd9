// Package rpcclient is a stateless, single-shot JSON-RPC-over-HTTP caller,
// used both by the miner instance's local health probe and by external
// pollers for balance, hashrate, peer count and sync state. It transparently
// falls back to a fixed remote endpoint for read-only balance queries when
// the local node is unavailable.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultRemoteRPCURL is the fixed, read-only remote endpoint consulted when
// no local node can answer a balance query.
const DefaultRemoteRPCURL = "https://rpc.marscredit.org"

// DefaultTimeout bounds every HTTP call; callers treat timeouts as
// transient per spec §5.
const DefaultTimeout = 10 * time.Second

// HTTPError is RpcHttpError(status): the HTTP transport succeeded but
// returned a non-2xx status.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("rpc http error: status %d", e.Status) }

// RPCError is RpcError(message): the HTTP call succeeded but the JSON-RPC
// envelope carried an "error" object.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is safe for concurrent use; it holds no per-call state beyond a
// monotonic id counter and the configured remote fallback URL.
type Client struct {
	httpClient *http.Client
	remoteURL  string
	nextID     uint64
}

// New returns a Client using remoteURL as the balance-query fallback.
// An empty remoteURL uses DefaultRemoteRPCURL.
func New(remoteURL string) *Client {
	if remoteURL == "" {
		remoteURL = DefaultRemoteRPCURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		remoteURL:  remoteURL,
	}
}

// RemoteURL returns the fixed remote read-only endpoint this client falls
// back to, the getRemoteRpcUrl IPC operation.
func (c *Client) RemoteURL() string { return c.remoteURL }

// Call issues a single JSON-RPC request to url and decodes result into out.
func (c *Client) Call(ctx context.Context, url, method string, params []interface{}, out interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode}
	}

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if env.Error != nil {
		return &RPCError{Message: env.Error.Message, Code: env.Error.Code}
	}
	if out == nil {
		return nil
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode rpc result: %w", err)
	}
	return nil
}

// NetVersion issues net_version against url.
func (c *Client) NetVersion(ctx context.Context, url string) (string, error) {
	var out string
	err := c.Call(ctx, url, "net_version", nil, &out)
	return out, err
}

// NetPeerCount issues net_peerCount.
func (c *Client) NetPeerCount(ctx context.Context, url string) (string, error) {
	var out string
	err := c.Call(ctx, url, "net_peerCount", nil, &out)
	return out, err
}

// EthSyncing issues eth_syncing. The result is either the boolean false or
// an object describing sync progress, so it is returned as raw JSON.
func (c *Client) EthSyncing(ctx context.Context, url string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.Call(ctx, url, "eth_syncing", nil, &out)
	return out, err
}

// EthMining issues eth_mining.
func (c *Client) EthMining(ctx context.Context, url string) (bool, error) {
	var out bool
	err := c.Call(ctx, url, "eth_mining", nil, &out)
	return out, err
}

// EthHashrate issues eth_hashrate.
func (c *Client) EthHashrate(ctx context.Context, url string) (string, error) {
	var out string
	err := c.Call(ctx, url, "eth_hashrate", nil, &out)
	return out, err
}

// EthBlockNumber issues eth_blockNumber.
func (c *Client) EthBlockNumber(ctx context.Context, url string) (string, error) {
	var out string
	err := c.Call(ctx, url, "eth_blockNumber", nil, &out)
	return out, err
}

// EthGetBalance issues eth_getBalance(address, "latest").
func (c *Client) EthGetBalance(ctx context.Context, url, address string) (string, error) {
	var out string
	err := c.Call(ctx, url, "eth_getBalance", []interface{}{address, "latest"}, &out)
	return out, err
}

// MinerSetEtherbase issues miner_setEtherbase.
func (c *Client) MinerSetEtherbase(ctx context.Context, url, address string) (bool, error) {
	var out bool
	err := c.Call(ctx, url, "miner_setEtherbase", []interface{}{address}, &out)
	return out, err
}

// MinerStart issues miner_start(threads).
func (c *Client) MinerStart(ctx context.Context, url string, threads int) error {
	return c.Call(ctx, url, "miner_start", []interface{}{threads}, nil)
}

// MinerStop issues miner_stop.
func (c *Client) MinerStop(ctx context.Context, url string) error {
	return c.Call(ctx, url, "miner_stop", nil, nil)
}

// GetBalancePreferLocal tries localURL first (when non-empty); on any
// failure, or when localURL is empty, it falls back to the fixed remote
// endpoint.
func (c *Client) GetBalancePreferLocal(ctx context.Context, localURL, address string) (wei string, source string, err error) {
	if localURL != "" {
		wei, err = c.EthGetBalance(ctx, localURL, address)
		if err == nil {
			return wei, localURL, nil
		}
	}
	wei, err = c.EthGetBalance(ctx, c.remoteURL, address)
	if err != nil {
		return "", "", fmt.Errorf("remote balance fallback: %w", err)
	}
	return wei, c.remoteURL, nil
}
