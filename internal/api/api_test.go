package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediction-market-lab/internal/activity"
	"prediction-market-lab/internal/codec"
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/leaderboard"
	"prediction-market-lab/internal/ledger"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/solana/stub"
	"prediction-market-lab/internal/stats"
	"prediction-market-lab/internal/storage/memory"
)

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

var (
	program = key(200)
	m1      = key(1)
	m2      = key(2)
	alice   = key(50)
	bob     = key(51)
)

type testEnv struct {
	rpc      *stub.RPCClient
	handlers *Handlers
	server   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rpc := stub.NewRPCClient()
	rpc.SetAccount(m1, program, codec.EncodeMarket(&domain.Market{
		Authority: key(90), Question: "Will it rain?", CreatedAt: 100, EndTime: 200,
		TotalYesAmount: 600, TotalNoAmount: 400, Resolved: true, WinningOutcome: true,
	}))
	rpc.SetAccount(m2, program, codec.EncodeMarket(&domain.Market{
		Authority: key(90), Question: "Will it snow?", CreatedAt: 110, EndTime: 4_000_000_000,
		TotalYesAmount: 50, TotalNoAmount: 50,
	}))
	rpc.SetAccount(key(10), program, codec.EncodeBet(&domain.Bet{User: alice, Market: m1, Amount: 300, Outcome: true, Timestamp: 150}))
	rpc.SetAccount(key(11), program, codec.EncodeBet(&domain.Bet{User: bob, Market: m1, Amount: 200, Outcome: false, Timestamp: 160}))
	rpc.SetAccount(key(12), program, codec.EncodeBet(&domain.Bet{User: alice, Market: m2, Amount: 40, Outcome: true, Timestamp: 170}))

	repo := ledger.NewRepository(rpc, program)

	h := NewHandlers(Config{DefaultLimit: 10}, nil)
	h.Leaderboards = leaderboard.NewEngine(repo, repo, leaderboard.WithBatchSize(2))
	h.Stats = stats.NewService(repo)
	h.Feed = activity.NewFeed(repo)
	h.Markets = repo
	h.now = func() time.Time { return time.Unix(1_000, 0) }

	return &testEnv{rpc: rpc, handlers: h, server: Routes(h)}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(1_000), body.Time)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/leaderboard?sort=roi&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[leaderboardResponse](t, rec)
	assert.Equal(t, domain.SortROI, body.SortKey)
	assert.Equal(t, 2, body.TraderCount)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, alice, body.Entries[0].Wallet)
	assert.Equal(t, 1, body.Entries[0].Rank)
	assert.Equal(t, bob, body.Entries[1].Wallet)
	assert.NotEmpty(t, body.Digest)
}

func TestLeaderboard_SortAliasAndLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/leaderboard?sort=total_wagered&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[leaderboardResponse](t, rec)
	assert.Equal(t, domain.SortTotalWagered, body.SortKey)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, alice, body.Entries[0].Wallet)
}

func TestLeaderboard_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/leaderboard?sort=alpha",
		"/leaderboard?limit=-1",
		"/leaderboard?limit=abc",
	} {
		rec := env.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestLimit_ZeroAndOversizedAreCapped(t *testing.T) {
	h := NewHandlers(Config{DefaultLimit: 20}, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=7", 7},
		{"limit=0", maxLimit},
		{"limit=5000", maxLimit},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/activity?"+tt.query, nil)

		got, ok := h.limit(rec, req)
		require.True(t, ok, tt.query)
		assert.Equal(t, tt.want, got, tt.query)
	}
}

func TestLeaderboard_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.rpc.ScanErr = errors.New("rpc down")

	rec := env.get(t, "/leaderboard")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUserStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/users/"+alice.String()+"/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[userStatsResponse](t, rec)
	assert.Equal(t, alice, body.Wallet)
	assert.Equal(t, 2, body.Stats.TotalBets)
	assert.Equal(t, 1, body.Stats.ActiveBets)
	assert.Equal(t, 1, body.Stats.WonBets)
	assert.Equal(t, uint64(340), body.Stats.TotalWagered)
	assert.Equal(t, uint64(500), body.Stats.UnclaimedWinnings)
}

func TestUserStats_InvalidWallet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/users/not-a-key/stats")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserRoutes_RejectOffCurveWallet(t *testing.T) {
	env := newTestEnv(t)
	offCurve := key(5)
	require.False(t, offCurve.IsOnCurve())

	for _, route := range []string{"stats", "positions", "activity"} {
		rec := env.get(t, "/users/"+offCurve.String()+"/"+route)
		assert.Equal(t, http.StatusBadRequest, rec.Code, route)
		assert.Contains(t, rec.Body.String(), "ed25519", route)
	}
}

func TestUserPositions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/users/"+alice.String()+"/positions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Positions []struct {
			Bet      domain.Bet            `json:"bet"`
			Winnings domain.WinningsResult `json:"winnings"`
		} `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Positions, 2)
	assert.Equal(t, int64(170), body.Positions[0].Bet.Timestamp)
	assert.Equal(t, domain.ReasonUnresolved, body.Positions[0].Winnings.Reason)
	assert.Equal(t, domain.ReasonClaimable, body.Positions[1].Winnings.Reason)
	assert.Equal(t, uint64(500), body.Positions[1].Winnings.PayoutAmount)
}

func TestUserPositions_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/users/"+key(77).String()+"/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"wallet":"`+key(77).String()+`","positions":[]}`, rec.Body.String())
}

type eventsBody struct {
	Events []struct {
		Type      activity.EventType `json:"type"`
		Timestamp int64              `json:"timestamp"`
	} `json:"events"`
}

func TestActivity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/activity?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[eventsBody](t, rec)
	require.Len(t, body.Events, 3)
	// m1 resolves at its end time (200), newest of all.
	assert.Equal(t, activity.EventMarketResolved, body.Events[0].Type)
	assert.Equal(t, int64(200), body.Events[0].Timestamp)
	assert.Equal(t, int64(170), body.Events[1].Timestamp)
	assert.Equal(t, int64(160), body.Events[2].Timestamp)
}

func TestUserActivity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/users/"+bob.String()+"/activity")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[eventsBody](t, rec)
	require.Len(t, body.Events, 1)
	assert.Equal(t, activity.EventBetPlaced, body.Events[0].Type)
}

func TestMarket(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/markets/"+m1.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Market domain.Market       `json:"market"`
		Status domain.MarketStatus `json:"status"`
		Odds   struct {
			YesPercent float64 `json:"yesPercent"`
			TotalPool  string  `json:"totalPool"`
		} `json:"odds"`
		Quote *quote `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Will it rain?", body.Market.Question)
	assert.Equal(t, domain.MarketStatusResolved, body.Status)
	assert.InDelta(t, 60.0, body.Odds.YesPercent, 1e-9)
	assert.Equal(t, "1000", body.Odds.TotalPool)
	assert.Nil(t, body.Quote)
}

func TestMarket_Quote(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/markets/"+m1.String()+"?side=YES&stake=400")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Quote quote `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "YES", body.Quote.Outcome)
	assert.Equal(t, uint64(560), body.Quote.Payout)
	assert.InDelta(t, 1.4, body.Quote.Multiplier, 1e-9)
}

func TestMarket_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path string
		code int
	}{
		{"/markets/" + key(99).String(), http.StatusNotFound},
		{"/markets/xyz", http.StatusBadRequest},
		{"/markets/" + m1.String() + "?side=maybe&stake=1", http.StatusBadRequest},
		{"/markets/" + m1.String() + "?side=no&stake=0", http.StatusBadRequest},
		{"/markets/" + m1.String() + "?side=no", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := env.get(t, tt.path)
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}
}

func TestLatestSnapshot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/snapshots/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code, "disabled without a store")

	store := memory.NewSnapshotStore()
	env.handlers.Snapshots = store

	rec = env.get(t, "/snapshots/latest?sort=roi")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no snapshot yet")

	require.NoError(t, store.Insert(context.Background(), &domain.LeaderboardSnapshot{
		SnapshotID: "s1", SortKey: domain.SortROI, CreatedAt: 5,
		Entries: []domain.LeaderboardEntry{{Rank: 1, Wallet: alice}},
	}))

	rec = env.get(t, "/snapshots/latest?sort=roi")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[domain.LeaderboardSnapshot](t, rec)
	assert.Equal(t, "s1", snap.SnapshotID)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, alice, snap.Entries[0].Wallet)
}

func TestServer_LoggingMiddlewareKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	srv := NewServer(Config{Addr: ":0"}, env.handlers, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/bad/stats", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
