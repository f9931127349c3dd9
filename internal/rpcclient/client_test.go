package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRPCServer(t *testing.T, handler func(method string) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		result, rpcErr := handler(req.Method)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": rpcErr.Code, "message": rpcErr.Message}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNetVersion(t *testing.T) {
	srv := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		if method != "net_version" {
			t.Fatalf("unexpected method %s", method)
		}
		return "110110", nil
	})
	c := New("")
	got, err := c.NetVersion(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got != "110110" {
		t.Errorf("got %s, want 110110", got)
	}
}

func TestCallHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("")
	var out string
	err := c.Call(context.Background(), srv.URL, "net_version", nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.Status != http.StatusServiceUnavailable {
		t.Errorf("got status %d", httpErr.Status)
	}
}

func TestCallRPCError(t *testing.T) {
	srv := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "boom"}
	})
	c := New("")
	var out string
	err := c.Call(context.Background(), srv.URL, "eth_blockNumber", nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Message != "boom" {
		t.Errorf("got message %q", rpcErr.Message)
	}
}

func TestGetBalancePreferLocalFallsBackOnFailure(t *testing.T) {
	remote := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		return "0xde0b6b3a7640000", nil
	})
	c := New(remote.URL)

	wei, source, err := c.GetBalancePreferLocal(context.Background(), "http://127.0.0.1:1", "0xaddr")
	if err != nil {
		t.Fatal(err)
	}
	if source != remote.URL {
		t.Errorf("expected fallback to remote, got source %s", source)
	}
	if wei != "0xde0b6b3a7640000" {
		t.Errorf("unexpected wei %s", wei)
	}
}

func TestGetBalancePreferLocalUsesLocalWhenHealthy(t *testing.T) {
	local := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		return "0x1", nil
	})
	remote := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		t.Fatal("remote should not be called when local succeeds")
		return nil, nil
	})
	c := New(remote.URL)

	wei, source, err := c.GetBalancePreferLocal(context.Background(), local.URL, "0xaddr")
	if err != nil {
		t.Fatal(err)
	}
	if source != local.URL {
		t.Errorf("expected local source, got %s", source)
	}
	if wei != "0x1" {
		t.Errorf("unexpected wei %s", wei)
	}
}

func TestGetBalancePreferLocalNilLocal(t *testing.T) {
	remote := newRPCServer(t, func(method string) (interface{}, *RPCError) {
		return "0x2", nil
	})
	c := New(remote.URL)
	wei, source, err := c.GetBalancePreferLocal(context.Background(), "", "0xaddr")
	if err != nil {
		t.Fatal(err)
	}
	if source != remote.URL || wei != "0x2" {
		t.Errorf("unexpected result wei=%s source=%s", wei, source)
	}
}
