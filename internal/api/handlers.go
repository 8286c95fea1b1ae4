package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"prediction-market-lab/internal/activity"
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/leaderboard"
	"prediction-market-lab/internal/ledger"
	"prediction-market-lab/internal/settlement"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
)

// maxLimit caps caller supplied limits.
const maxLimit = 1000

// LeaderboardBuilder is implemented by *leaderboard.Engine.
type LeaderboardBuilder interface {
	Build(ctx context.Context, sortKey domain.SortKey, limit int) (*leaderboard.Result, error)
}

// StatsService is implemented by *stats.Service.
type StatsService interface {
	UserStats(ctx context.Context, wallet solana.PublicKey) (domain.UserStats, error)
	UserPositions(ctx context.Context, wallet solana.PublicKey) ([]domain.Position, error)
}

// ActivityFeed is implemented by *activity.Feed.
type ActivityFeed interface {
	Recent(ctx context.Context, limit int) ([]activity.Event, error)
	UserRecent(ctx context.Context, wallet solana.PublicKey, limit int) ([]activity.Event, error)
}

// MarketReader is implemented by *ledger.Repository.
type MarketReader interface {
	Market(ctx context.Context, address solana.PublicKey) (*domain.Market, error)
}

// SnapshotReader is the read side of storage.LeaderboardSnapshotStore.
type SnapshotReader interface {
	GetLatest(ctx context.Context, sortKey domain.SortKey) (*domain.LeaderboardSnapshot, error)
}

// Handlers serves the API endpoints. Snapshots may be nil.
type Handlers struct {
	Leaderboards LeaderboardBuilder
	Stats        StatsService
	Feed         ActivityFeed
	Markets      MarketReader
	Snapshots    SnapshotReader

	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewHandlers creates Handlers with defaults applied to cfg.
func NewHandlers(cfg Config, logger *zap.Logger) *Handlers {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.DefaultSort == "" {
		cfg.DefaultSort = string(domain.SortROI)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{cfg: cfg, logger: logger.Named("api"), now: time.Now}
}

type healthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

// Health reports liveness.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: h.now().Unix()})
}

type leaderboardResponse struct {
	SortKey     domain.SortKey            `json:"sortKey"`
	Limit       int                       `json:"limit"`
	TraderCount int                       `json:"traderCount"`
	FailedCount int                       `json:"failedCount"`
	Digest      string                    `json:"digest"`
	BuiltAt     int64                     `json:"builtAt"`
	Entries     []domain.LeaderboardEntry `json:"entries"`
}

// Leaderboard builds a live leaderboard.
// GET /leaderboard?sort=roi&limit=50
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	key, ok := h.sortKey(w, r)
	if !ok {
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	res, err := h.Leaderboards.Build(r.Context(), key, limit)
	if err != nil {
		h.fail(w, r, "build leaderboard", err)
		return
	}

	entries := res.Entries
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		SortKey:     res.SortKey,
		Limit:       limit,
		TraderCount: res.TraderCount,
		FailedCount: len(res.Failed),
		Digest:      res.Digest,
		BuiltAt:     res.BuiltAt.UnixMilli(),
		Entries:     entries,
	})
}

// LatestSnapshot returns the newest stored snapshot.
// GET /snapshots/latest?sort=roi
func (h *Handlers) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		writeError(w, http.StatusNotFound, "snapshots are disabled")
		return
	}
	key, ok := h.sortKey(w, r)
	if !ok {
		return
	}

	snap, err := h.Snapshots.GetLatest(r.Context(), key)
	if err != nil {
		h.fail(w, r, "get latest snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type userStatsResponse struct {
	Wallet solana.PublicKey `json:"wallet"`
	Stats  domain.UserStats `json:"stats"`
}

// UserStats returns a wallet's aggregate statistics.
// GET /users/{wallet}/stats
func (h *Handlers) UserStats(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletKey(w, r)
	if !ok {
		return
	}

	st, err := h.Stats.UserStats(r.Context(), wallet)
	if err != nil {
		h.fail(w, r, "user stats", err)
		return
	}
	writeJSON(w, http.StatusOK, userStatsResponse{Wallet: wallet, Stats: st})
}

type positionsResponse struct {
	Wallet    solana.PublicKey  `json:"wallet"`
	Positions []domain.Position `json:"positions"`
}

// UserPositions returns each bet with its market and settlement view.
// GET /users/{wallet}/positions
func (h *Handlers) UserPositions(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletKey(w, r)
	if !ok {
		return
	}

	positions, err := h.Stats.UserPositions(r.Context(), wallet)
	if err != nil {
		h.fail(w, r, "user positions", err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, positionsResponse{Wallet: wallet, Positions: positions})
}

type activityResponse struct {
	Events []activity.Event `json:"events"`
}

// UserActivity returns a wallet's recent events.
// GET /users/{wallet}/activity?limit=20
func (h *Handlers) UserActivity(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletKey(w, r)
	if !ok {
		return
	}
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	events, err := h.Feed.UserRecent(r.Context(), wallet, limit)
	if err != nil {
		h.fail(w, r, "user activity", err)
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{Events: nonNil(events)})
}

// Activity returns the program-wide recent events.
// GET /activity?limit=20
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	events, err := h.Feed.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{Events: nonNil(events)})
}

type quote struct {
	Outcome    string  `json:"outcome"`
	Stake      uint64  `json:"stake"`
	Payout     uint64  `json:"payout"`
	Multiplier float64 `json:"multiplier"`
}

type marketResponse struct {
	Market *domain.Market      `json:"market"`
	Status domain.MarketStatus `json:"status"`
	Odds   settlement.Odds     `json:"odds"`
	Quote  *quote              `json:"quote,omitempty"`
}

// Market returns a market with its current odds. With side and stake it
// also quotes the payout a new stake would receive if it won now.
// GET /markets/{address}?side=yes&stake=1000000
func (h *Handlers) Market(w http.ResponseWriter, r *http.Request) {
	address, ok := pathKey(w, r, "address")
	if !ok {
		return
	}

	var q *quote
	if side, stakeParam := r.URL.Query().Get("side"), r.URL.Query().Get("stake"); side != "" || stakeParam != "" {
		outcome, err := parseSide(side)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		stake, err := strconv.ParseUint(stakeParam, 10, 64)
		if err != nil || stake == 0 {
			writeError(w, http.StatusBadRequest, "stake must be a positive integer")
			return
		}
		q = &quote{Outcome: domain.OutcomeLabel(outcome), Stake: stake}
	}

	m, err := h.Markets.Market(r.Context(), address)
	if err != nil {
		h.fail(w, r, "get market", err)
		return
	}

	if q != nil {
		payout, ok := settlement.PotentialPayout(m, q.Outcome == "YES", q.Stake)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "payout overflows")
			return
		}
		q.Payout = payout
		q.Multiplier = settlement.Multiplier(payout, q.Stake)
	}

	writeJSON(w, http.StatusOK, marketResponse{
		Market: m,
		Status: m.Status(h.now().Unix()),
		Odds:   settlement.ImpliedOdds(m),
		Quote:  q,
	})
}

// fail maps domain errors to status codes and logs unexpected ones.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, leaderboard.ErrUnknownSortKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, op+" failed")
	}
}

func (h *Handlers) sortKey(w http.ResponseWriter, r *http.Request) (domain.SortKey, bool) {
	raw := r.URL.Query().Get("sort")
	if raw == "" {
		raw = h.cfg.DefaultSort
	}
	key, err := leaderboard.ParseSortKey(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

// limit parses ?limit=. 0 and values above maxLimit both mean maxLimit.
func (h *Handlers) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.cfg.DefaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	if n == 0 || n > maxLimit {
		n = maxLimit
	}
	return n, true
}

func pathKey(w http.ResponseWriter, r *http.Request, name string) (solana.PublicKey, bool) {
	pk, err := solana.ParsePublicKey(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return solana.PublicKey{}, false
	}
	return pk, true
}

// walletKey parses the {wallet} segment. Bets are signed by their user, so a
// key off the ed25519 curve (a program derived address) can never own one.
func walletKey(w http.ResponseWriter, r *http.Request) (solana.PublicKey, bool) {
	pk, ok := pathKey(w, r, "wallet")
	if !ok {
		return pk, false
	}
	if !pk.IsOnCurve() {
		writeError(w, http.StatusBadRequest, "wallet is not an ed25519 public key")
		return solana.PublicKey{}, false
	}
	return pk, true
}

func parseSide(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, errors.New("side must be yes or no")
}

func nonNil(events []activity.Event) []activity.Event {
	if events == nil {
		return []activity.Event{}
	}
	return events
}

// writeJSON serialises v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
