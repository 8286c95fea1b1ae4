package stub

import (
	"context"
	"errors"
	"sync"

	"prediction-market-lab/internal/solana"
)

// ErrInjected is the default error returned for addresses marked as failing.
var ErrInjected = errors.New("stub: injected failure")

// RPCClient implements solana.RPCClient over an in-memory account set.
type RPCClient struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]solana.AccountInfo
	order    []solana.PublicKey

	// FailAddresses makes GetAccountInfo/GetMultipleAccounts fail when any listed address is requested.
	FailAddresses map[solana.PublicKey]error
	// FailScans makes GetProgramAccounts fail when a memcmp filter at Offset matches the given bytes.
	FailScans []ScanFailure
	// ScanErr, if set, fails every GetProgramAccounts call.
	ScanErr error

	calls map[string]int
}

// ScanFailure injects an error into filtered program scans.
type ScanFailure struct {
	Offset uint64
	Bytes  []byte
	Err    error
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts:      make(map[solana.PublicKey]solana.AccountInfo),
		FailAddresses: make(map[solana.PublicKey]error),
		calls:         make(map[string]int),
	}
}

// SetAccount adds or replaces an account. Insertion order is preserved for scans.
func (c *RPCClient) SetAccount(address, owner solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.accounts[address]; !exists {
		c.order = append(c.order, address)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.accounts[address] = solana.AccountInfo{
		Lamports: 1_000_000,
		Owner:    owner,
		Data:     buf,
	}
}

// Calls returns how many times a method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[method]
}

// GetProgramAccounts returns accounts owned by programID matching all filters, in insertion order.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID solana.PublicKey, filters ...solana.Filter) ([]solana.KeyedAccount, error) {
	c.mu.Lock()
	c.calls["getProgramAccounts"]++
	c.mu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ScanErr != nil {
		return nil, c.ScanErr
	}
	for _, f := range filters {
		if f.Memcmp == nil {
			continue
		}
		for _, fail := range c.FailScans {
			if fail.Offset == f.Memcmp.Offset && string(fail.Bytes) == string(f.Memcmp.Bytes) {
				if fail.Err != nil {
					return nil, fail.Err
				}
				return nil, ErrInjected
			}
		}
	}

	var out []solana.KeyedAccount
	for _, address := range c.order {
		info := c.accounts[address]
		if info.Owner != programID {
			continue
		}
		if !matchesAll(filters, info.Data) {
			continue
		}
		out = append(out, solana.KeyedAccount{Address: address, Account: cloneInfo(info)})
	}
	return out, nil
}

// GetAccountInfo returns an account, or nil if it does not exist.
func (c *RPCClient) GetAccountInfo(_ context.Context, address solana.PublicKey) (*solana.AccountInfo, error) {
	c.mu.Lock()
	c.calls["getAccountInfo"]++
	c.mu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err, ok := c.FailAddresses[address]; ok {
		if err == nil {
			err = ErrInjected
		}
		return nil, err
	}
	info, ok := c.accounts[address]
	if !ok {
		return nil, nil
	}
	out := cloneInfo(info)
	return &out, nil
}

// GetMultipleAccounts returns accounts in request order; missing entries are nil.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, addresses []solana.PublicKey) ([]*solana.AccountInfo, error) {
	c.mu.Lock()
	c.calls["getMultipleAccounts"]++
	c.mu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*solana.AccountInfo, len(addresses))
	for i, address := range addresses {
		if err, ok := c.FailAddresses[address]; ok {
			if err == nil {
				err = ErrInjected
			}
			return nil, err
		}
		if info, ok := c.accounts[address]; ok {
			cloned := cloneInfo(info)
			out[i] = &cloned
		}
	}
	return out, nil
}

func matchesAll(filters []solana.Filter, data []byte) bool {
	for _, f := range filters {
		if !f.Matches(data) {
			return false
		}
	}
	return true
}

func cloneInfo(info solana.AccountInfo) solana.AccountInfo {
	out := info
	out.Data = make([]byte, len(info.Data))
	copy(out.Data, info.Data)
	return out
}
