package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcHandler builds a JSON-RPC test server from a method table.
func rpcHandler(t *testing.T, methods map[string]func(params json.RawMessage) (interface{}, *RPCError)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     uint64          `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		fn, ok := methods[req.Method]
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		} else if result, rpcErr := fn(req.Params); rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": rpcErr.Code, "message": rpcErr.Message}
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestCall_Failover(t *testing.T) {
	var goodHits atomic.Int64

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_networkId": func(json.RawMessage) (interface{}, *RPCError) {
			goodHits.Add(1)
			return "catalyst-testnet", nil
		},
	}))
	defer good.Close()

	c := New([]string{bad.URL, good.URL})

	got, err := c.NetworkID(context.Background())
	if err != nil {
		t.Fatalf("NetworkID() error: %v", err)
	}
	if got != "catalyst-testnet" {
		t.Errorf("network id = %q", got)
	}
	if c.LastGood() != good.URL {
		t.Errorf("last good = %q, want %q", c.LastGood(), good.URL)
	}

	// The next call starts at the last good endpoint.
	if _, err := c.NetworkID(context.Background()); err != nil {
		t.Fatalf("second NetworkID() error: %v", err)
	}
	if goodHits.Load() != 2 {
		t.Errorf("good endpoint hits = %d, want 2", goodHits.Load())
	}
}

func TestCall_NoFailoverOnRPCError(t *testing.T) {
	var secondHit atomic.Bool

	first := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_getNonce": func(json.RawMessage) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -32000, Message: "unknown account"}
		},
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit.Store(true)
	}))
	defer second.Close()

	c := New([]string{first.URL, second.URL})
	_, err := c.GetNonce(context.Background(), "0xabc")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32000 {
		t.Fatalf("error = %v, want RPCError -32000", err)
	}
	if secondHit.Load() {
		t.Error("second endpoint was tried after a JSON-RPC error")
	}
}

func TestCall_NoFailoverOnClientError(t *testing.T) {
	var secondHit atomic.Bool

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit.Store(true)
	}))
	defer second.Close()

	c := New([]string{first.URL, second.URL})
	err := c.Call(context.Background(), "catalyst_chainId", nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
		t.Fatalf("error = %v, want HTTPError 404", err)
	}
	if secondHit.Load() {
		t.Error("second endpoint was tried after a 404")
	}
}

func TestCall_FailoverOnTooManyRequests(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer first.Close()
	second := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_chainId": func(json.RawMessage) (interface{}, *RPCError) {
			return "200820092", nil
		},
	}))
	defer second.Close()

	c := New([]string{first.URL, second.URL})
	got, err := c.ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID() error: %v", err)
	}
	if got != "200820092" {
		t.Errorf("chain id = %q", got)
	}
}

func TestCall_AllEndpointsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	c := New([]string{down.URL, down.URL + "/b"})
	err := c.Call(context.Background(), "catalyst_chainId", nil, nil)
	var epErr *EndpointsError
	if !errors.As(err, &epErr) {
		t.Fatalf("error = %v, want EndpointsError", err)
	}
	if len(epErr.Errs) != 2 {
		t.Errorf("recorded %d endpoint errors, want 2", len(epErr.Errs))
	}
}

func TestCall_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	c := NewWithTimeout([]string{slow.URL}, 50*time.Millisecond)
	start := time.Now()
	err := c.Call(context.Background(), "catalyst_chainId", nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Error("timeout did not abort the request")
	}
}

func TestCall_NoEndpoints(t *testing.T) {
	c := New(nil)
	if err := c.Call(context.Background(), "catalyst_chainId", nil, nil); !errors.Is(err, ErrNoEndpoints) {
		t.Errorf("error = %v, want ErrNoEndpoints", err)
	}
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_getBalance": func(params json.RawMessage) (interface{}, *RPCError) {
			var args []string
			json.Unmarshal(params, &args)
			if len(args) != 1 || args[0] != "0xaa" {
				return nil, &RPCError{Code: -32602, Message: "bad params"}
			}
			// Larger than 64 bits.
			return "340282366920938463463374607431768211456", nil
		},
	}))
	defer srv.Close()

	c := New([]string{srv.URL})
	bal, err := c.GetBalance(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if bal.String() != "340282366920938463463374607431768211456" {
		t.Errorf("balance = %s", bal)
	}
}

func TestEstimateFee(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_estimateFee": func(params json.RawMessage) (interface{}, *RPCError) {
			var args []EstimateFeeRequest
			if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
				return nil, &RPCError{Code: -32602, Message: "bad params"}
			}
			if args[0].Value != "250" || args[0].Data != nil {
				return nil, &RPCError{Code: -32602, Message: "bad request shape"}
			}
			return "5", nil
		},
	}))
	defer srv.Close()

	c := New([]string{srv.URL})
	fee, err := c.EstimateFee(context.Background(), "0xfrom", "0xto", bigInt(250))
	if err != nil {
		t.Fatalf("EstimateFee() error: %v", err)
	}
	if fee != 5 {
		t.Errorf("fee = %d, want 5", fee)
	}
}

func TestGetTransactionReceipt_Null(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, map[string]func(json.RawMessage) (interface{}, *RPCError){
		"catalyst_getTransactionReceipt": func(json.RawMessage) (interface{}, *RPCError) {
			return nil, nil
		},
	}))
	defer srv.Close()

	c := New([]string{srv.URL})
	rec, err := c.GetTransactionReceipt(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("GetTransactionReceipt() error: %v", err)
	}
	if rec != nil {
		t.Errorf("receipt = %+v, want nil", rec)
	}
}

func TestSetPreferred(t *testing.T) {
	c := New([]string{"http://a", "http://b", "http://c"})
	c.SetPreferred("http://b")
	if c.LastGood() != "http://b" {
		t.Errorf("last good = %q, want http://b", c.LastGood())
	}
	c.SetPreferred("http://nope")
	if c.LastGood() != "http://b" {
		t.Errorf("unknown URL changed rotation: %q", c.LastGood())
	}
}
