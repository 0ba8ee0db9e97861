package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// BalanceClient reads account balances from the network.
type BalanceClient interface {
	Balance(ctx context.Context, owner string) (uint64, error)
}

// RPCClient speaks JSON-RPC 2.0 to a fullnode.
type RPCClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

func NewRPCClient(url string, timeout time.Duration) *RPCClient {
	return &RPCClient{url: url, client: &http.Client{Timeout: timeout}}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Call invokes method with params and decodes the result into out.
func (c *RPCClient) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

type balanceResult struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

// Balance returns the SUI balance of owner in MIST.
func (c *RPCClient) Balance(ctx context.Context, owner string) (uint64, error) {
	var res balanceResult
	if err := c.Call(ctx, "suix_getBalance", &res, owner, SuiCoinType); err != nil {
		return 0, err
	}
	mist, err := strconv.ParseUint(res.TotalBalance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", res.TotalBalance, err)
	}
	return mist, nil
}
