package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prediction-market-lab/internal/ledger"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
)

// DefaultAccountTTL is short enough that pool totals stay close to live.
const DefaultAccountTTL = 5 * time.Second

// AccountCache decorates a ledger.AccountFetcher with a read-through cache
// for single and multi account lookups. Program scans always go to the
// upstream. Missing accounts are not cached.
//
// Key schema:
//
//	account:{base58 address} - JSON encoded solana.AccountInfo
//
// Redis errors degrade to upstream reads.
type AccountCache struct {
	rdb    *redis.Client
	next   ledger.AccountFetcher
	ttl    time.Duration
	logger *zap.Logger
}

// Compile-time interface check.
var _ ledger.AccountFetcher = (*AccountCache)(nil)

// AccountCacheOption configures an AccountCache.
type AccountCacheOption func(*AccountCache)

// WithTTL sets the entry lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) AccountCacheOption {
	return func(c *AccountCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AccountCacheOption {
	return func(c *AccountCache) {
		c.logger = l
	}
}

// NewAccountCache wraps next with a cache backed by c.
func NewAccountCache(c *Client, next ledger.AccountFetcher, opts ...AccountCacheOption) *AccountCache {
	ac := &AccountCache{
		rdb:    c.Underlying(),
		next:   next,
		ttl:    DefaultAccountTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ac)
	}
	ac.logger = ac.logger.Named("account_cache")
	return ac
}

func accountKey(address solana.PublicKey) string { return "account:" + address.String() }

// GetProgramAccounts passes through to the upstream fetcher.
func (c *AccountCache) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters ...solana.Filter) ([]solana.KeyedAccount, error) {
	return c.next.GetProgramAccounts(ctx, programID, filters...)
}

// GetAccountInfo serves from cache when possible.
func (c *AccountCache) GetAccountInfo(ctx context.Context, address solana.PublicKey) (*solana.AccountInfo, error) {
	data, err := c.rdb.Get(ctx, accountKey(address)).Bytes()
	switch {
	case err == nil:
		if info, ok := c.decode(address, data); ok {
			observability.RecordCacheLookup(true)
			return info, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", zap.Stringer("address", address), zap.Error(err))
	}
	observability.RecordCacheLookup(false)

	info, err := c.next.GetAccountInfo(ctx, address)
	if err != nil || info == nil {
		return info, err
	}
	c.store(ctx, map[solana.PublicKey]*solana.AccountInfo{address: info})
	return info, nil
}

// GetMultipleAccounts serves hits from cache and fetches the rest upstream
// in one call. Results keep request order; missing entries are nil.
func (c *AccountCache) GetMultipleAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*solana.AccountInfo, error) {
	out := make([]*solana.AccountInfo, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	keys := make([]string, len(addresses))
	for i, addr := range addresses {
		keys[i] = accountKey(addr)
	}

	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("cache multi read failed", zap.Int("keys", len(keys)), zap.Error(err))
		cached = nil
	}

	var missIdx []int
	var missAddrs []solana.PublicKey
	for i, addr := range addresses {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				if info, ok := c.decode(addr, []byte(s)); ok {
					observability.RecordCacheLookup(true)
					out[i] = info
					continue
				}
			}
		}
		observability.RecordCacheLookup(false)
		missIdx = append(missIdx, i)
		missAddrs = append(missAddrs, addr)
	}

	if len(missAddrs) == 0 {
		return out, nil
	}

	fetched, err := c.next.GetMultipleAccounts(ctx, missAddrs)
	if err != nil {
		return nil, err
	}

	found := make(map[solana.PublicKey]*solana.AccountInfo, len(fetched))
	for j, info := range fetched {
		if j >= len(missIdx) {
			break
		}
		out[missIdx[j]] = info
		if info != nil {
			found[missAddrs[j]] = info
		}
	}
	c.store(ctx, found)
	return out, nil
}

// store writes entries in one pipeline. Failures are logged only.
func (c *AccountCache) store(ctx context.Context, infos map[solana.PublicKey]*solana.AccountInfo) {
	if len(infos) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for addr, info := range infos {
		data, err := json.Marshal(info)
		if err != nil {
			continue
		}
		pipe.Set(ctx, accountKey(addr), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache write failed", zap.Int("keys", len(infos)), zap.Error(err))
	}
}

func (c *AccountCache) decode(address solana.PublicKey, data []byte) (*solana.AccountInfo, bool) {
	var info solana.AccountInfo
	if err := json.Unmarshal(data, &info); err != nil {
		c.logger.Debug("dropping corrupt cache entry", zap.Stringer("address", address), zap.Error(err))
		return nil, false
	}
	return &info, true
}
