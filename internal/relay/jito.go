// internal/relay/jito.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var errMissingResult = errors.New("response has no result field")

// RPCError is a JSON-RPC error object returned by the block engine.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-2xx block engine response without a JSON-RPC body.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %v", e.Status, e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// bundleClient calls sendBundle on a Jito block engine.
type bundleClient struct {
	rpc jsonrpc.RPCClient
}

func newBundleClient(endpoint string, httpClient *http.Client) *bundleClient {
	return &bundleClient{
		rpc: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{HTTPClient: httpClient}),
	}
}

// sendBundle submits base58 transactions in order and returns the bundle id.
func (c *bundleClient) sendBundle(ctx context.Context, encoded []string) (string, error) {
	var bundleID string
	if err := c.rpc.CallForInto(ctx, &bundleID, "sendBundle", []interface{}{encoded}); err != nil {
		return "", mapRPCError(err)
	}
	if bundleID == "" {
		return "", errMissingResult
	}
	return bundleID, nil
}

func mapRPCError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return &HTTPError{Status: httpErr.Code, Err: err}
	}
	return err
}
