package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

func testKey(b byte) PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestHTTPClient_GetProgramAccounts(t *testing.T) {
	program := testKey(7)
	account := testKey(8)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getProgramAccounts" {
			t.Errorf("expected method getProgramAccounts, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		if req.Params[0] != program.String() {
			t.Errorf("expected program %s, got %v", program, req.Params[0])
		}

		config := req.Params[1].(map[string]interface{})
		if config["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", config["encoding"])
		}
		if config["commitment"] != "finalized" {
			t.Errorf("expected finalized commitment, got %v", config["commitment"])
		}
		filters := config["filters"].([]interface{})
		if len(filters) != 1 {
			t.Fatalf("expected 1 filter, got %d", len(filters))
		}
		memcmp := filters[0].(map[string]interface{})["memcmp"].(map[string]interface{})
		if memcmp["bytes"] != base58.Encode([]byte{1, 2, 3}) {
			t.Errorf("unexpected memcmp bytes: %v", memcmp["bytes"])
		}
		if memcmp["offset"].(float64) != 0 {
			t.Errorf("unexpected memcmp offset: %v", memcmp["offset"])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{
					"pubkey": account.String(),
					"account": map[string]interface{}{
						"lamports":   uint64(2039280),
						"owner":      program.String(),
						"data":       []string{base64.StdEncoding.EncodeToString(payload), "base64"},
						"executable": false,
						"rentEpoch":  uint64(361),
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithCommitment(CommitmentFinalized))
	ctx := context.Background()

	accounts, err := client.GetProgramAccounts(ctx, program, Memcmp(0, []byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("GetProgramAccounts: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].Address != account {
		t.Errorf("expected address %s, got %s", account, accounts[0].Address)
	}
	if accounts[0].Account.Owner != program {
		t.Errorf("expected owner %s, got %s", program, accounts[0].Account.Owner)
	}
	if string(accounts[0].Account.Data) != string(payload) {
		t.Errorf("unexpected data: %v", accounts[0].Account.Data)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	slot, err := client.GetSlot(ctx)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	owner := testKey(3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"lamports":   uint64(1000000),
					"owner":      owner.String(),
					"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
					"executable": false,
					"rentEpoch":  uint64(100),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, testKey(4))
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info == nil {
		t.Fatal("expected account info, got nil")
	}

	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}

	if info.Owner != owner {
		t.Errorf("unexpected owner: %s", info.Owner)
	}

	if string(info.Data) != "Hello World" {
		t.Errorf("unexpected data: %q", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": nil,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, testKey(5))
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info != nil {
		t.Errorf("expected nil for not found, got %+v", info)
	}
}

func TestHTTPClient_GetMultipleAccounts_Chunked(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getMultipleAccounts" {
			t.Errorf("expected method getMultipleAccounts, got %s", req.Method)
		}

		keys := req.Params[0].([]interface{})
		if len(keys) > MaxMultipleAccounts {
			t.Errorf("request carried %d keys, limit is %d", len(keys), MaxMultipleAccounts)
		}

		// Every second account is missing.
		values := make([]interface{}, len(keys))
		for i := range keys {
			if i%2 == 1 {
				continue
			}
			values[i] = map[string]interface{}{
				"lamports": uint64(1),
				"owner":    testKey(9).String(),
				"data":     []string{base64.StdEncoding.EncodeToString([]byte{byte(i)}), "base64"},
			}
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": values},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	addresses := make([]PublicKey, 150)
	for i := range addresses {
		addresses[i] = testKey(byte(i + 1))
	}

	infos, err := client.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		t.Fatalf("GetMultipleAccounts: %v", err)
	}

	if len(infos) != 150 {
		t.Fatalf("expected 150 results, got %d", len(infos))
	}
	if requests.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", requests.Load())
	}
	if infos[0] == nil || infos[1] != nil {
		t.Errorf("expected present/missing pattern, got %v / %v", infos[0], infos[1])
	}
	if infos[100] == nil || infos[100].Data[0] != 0 {
		t.Errorf("expected second chunk to restart indexing, got %+v", infos[100])
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
