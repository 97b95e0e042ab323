package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"valwatch/application/dto"
	"valwatch/domain/entities"
	"valwatch/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatchSource serves canned payloads per external id
type fakeMatchSource struct {
	mu       sync.Mutex
	payloads map[string][]json.RawMessage
	failures map[string]error
	calls    []string

	// block, when set, holds every fetch until it is closed; entered receives one value per blocked call
	block   chan struct{}
	entered chan struct{}
	// onFetch runs synchronously inside every fetch
	onFetch func(externalID string)
}

func newFakeMatchSource() *fakeMatchSource {
	return &fakeMatchSource{
		payloads: make(map[string][]json.RawMessage),
		failures: make(map[string]error),
	}
}

func (s *fakeMatchSource) add(externalID string, payloads ...json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[externalID] = append(s.payloads[externalID], payloads...)
}

func (s *fakeMatchSource) FetchRecentMatches(ctx context.Context, region, externalID string) ([]json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, externalID)
	block, entered, onFetch := s.block, s.entered, s.onFetch
	s.mu.Unlock()

	if onFetch != nil {
		onFetch(externalID)
	}

	if block != nil {
		entered <- struct{}{}
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[externalID]; err != nil {
		return nil, err
	}
	return s.payloads[externalID], nil
}

func (s *fakeMatchSource) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeAlertSink struct {
	mu     sync.Mutex
	alerts []dto.MatchAlertDTO
	err    error
}

func (s *fakeAlertSink) PublishMatchAlert(ctx context.Context, alert dto.MatchAlertDTO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

type countingMetrics struct {
	NoopWatchMetrics
	skipped int
}

func (m *countingMetrics) RecordTickSkipped() { m.skipped++ }

type rawPlayer struct {
	puuid  string
	team   string
	kills  int
	deaths int
}

// rawMatch builds an upstream payload that completes endsAfter past testhelpers.BaseTime
func rawMatch(t *testing.T, id, mode string, endsAfter time.Duration, redWins, blueWins int, players ...rawPlayer) json.RawMessage {
	t.Helper()

	const length = 30 * time.Minute
	start := testhelpers.BaseTime.Add(endsAfter - length)

	var rounds []map[string]any
	for i := 0; i < redWins; i++ {
		rounds = append(rounds, map[string]any{"winning_team": "Red", "end_type": "Eliminated"})
	}
	for i := 0; i < blueWins; i++ {
		rounds = append(rounds, map[string]any{"winning_team": "Blue", "end_type": "Bomb defused"})
	}

	var roster []map[string]any
	for _, p := range players {
		roster = append(roster, map[string]any{
			"puuid":               p.puuid,
			"name":                p.puuid,
			"tag":                 "NA1",
			"team":                p.team,
			"character":           "Omen",
			"currenttier_patched": "Silver 3",
			"stats": map[string]any{
				"score":     250 * (redWins + blueWins),
				"kills":     p.kills,
				"deaths":    p.deaths,
				"assists":   4,
				"headshots": 8,
				"bodyshots": 30,
				"legshots":  2,
			},
		})
	}

	payload := map[string]any{
		"metadata": map[string]any{
			"matchid":     id,
			"map":         "Split",
			"mode":        mode,
			"game_start":  start.Unix(),
			"game_length": int(length.Seconds()),
		},
		"players": map[string]any{"all_players": roster},
		"rounds":  rounds,
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

type workerFixture struct {
	store  *testhelpers.MemoryAccountStore
	source *fakeMatchSource
	sink   *fakeAlertSink
	worker *WatchCycleWorker
	sleeps []time.Duration
	now    time.Time
}

func newWorkerFixture(t *testing.T, accounts ...*entities.TrackedAccount) *workerFixture {
	t.Helper()

	f := &workerFixture{
		store:  testhelpers.NewMemoryAccountStore(),
		source: newFakeMatchSource(),
		sink:   &fakeAlertSink{},
		now:    testhelpers.BaseTime.Add(3 * time.Hour),
	}
	for _, a := range accounts {
		_, err := f.store.Upsert(context.Background(), a)
		require.NoError(t, err)
	}
	f.store.Upserts = nil

	f.worker = NewWatchCycleWorker(f.store, f.source, f.sink, nil, WatchCycleConfig{
		TickInterval:    30 * time.Second,
		AccountDelay:    500 * time.Millisecond,
		FetchTimeout:    time.Second,
		DefaultCooldown: 5 * time.Minute,
		StreakThreshold: 3,
	})
	f.worker.now = func() time.Time { return f.now }
	f.worker.sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	return f
}

func (f *workerFixture) account(t *testing.T, id int64) *entities.TrackedAccount {
	t.Helper()
	account, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account
}

func TestWatchCycleWorker_IngestsNewMatch(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 5, 12}))

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Polled)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Alerts)

	account := f.account(t, 1)
	assert.Equal(t, testhelpers.BaseTime.Add(time.Hour), account.LastProcessedEnd)
	assert.Equal(t, 1, account.Streak)
	assert.Len(t, account.RollingWindow, 1)
	assert.Equal(t, "Silver 3", account.RankLabel)

	require.Len(t, f.sink.alerts, 1)
	alert := f.sink.alerts[0]
	assert.Equal(t, "m1", alert.MatchID)
	assert.Equal(t, int64(100), alert.GuildID)
	assert.Equal(t, int64(1), alert.OriginAccountID)
	assert.Equal(t, []int64{1}, alert.Party.TeamA)
	assert.Empty(t, alert.Party.TeamB)
	assert.Equal(t, "win", alert.Result)
	assert.Equal(t, dto.ScoreDTO{TeamA: 13, TeamB: 9}, alert.Score)
	assert.Equal(t, "competitive", alert.Mode)
	require.Len(t, alert.Feeding, 1, "5/12 is over the feeding threshold")
	assert.Equal(t, int64(1), alert.Feeding[0].AccountID)
	assert.InDelta(t, 250.0, alert.Feeding[0].ACS, 1e-9)
	assert.Empty(t, alert.Streaking)
	assert.Empty(t, alert.WaitersToNotify)
}

func TestWatchCycleWorker_SecondTickDoesNotReapply(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}))

	_, err := f.worker.RunTick(ctx)
	require.NoError(t, err)
	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Ingested)
	assert.Len(t, f.sink.alerts, 1)
	assert.Equal(t, 1, f.account(t, 1).Streak)
}

func TestWatchCycleWorker_CooldownGateNeverFetches(t *testing.T) {
	ctx := context.Background()
	recent := testhelpers.NewAccount(1, 100, "p1")
	stale := testhelpers.NewAccount(2, 100, "p2")
	f := newWorkerFixture(t, recent, stale)
	recent.LastProcessedEnd = f.now.Add(-time.Minute)
	_, err := f.store.Upsert(ctx, recent)
	require.NoError(t, err)

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"p2"}, f.source.fetched())
	assert.Equal(t, 1, report.CooledDown)
}

func TestWatchCycleWorker_GuildCooldownOverride(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	cooldown := int((4 * time.Hour).Seconds())
	f.store.PutGuildSettings(entities.GuildSettings{GuildID: 100, CooldownSeconds: &cooldown})

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Empty(t, f.source.fetched())
	assert.Equal(t, 1, report.CooledDown)
}

func TestWatchCycleWorker_SourceFailureContinues(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"), testhelpers.NewAccount(2, 100, "p2"))
	f.source.failures["p1"] = &entities.SourceUnavailableError{Status: 429}
	f.source.add("p2", rawMatch(t, "m2", "Unrated", time.Hour, 13, 5, rawPlayer{"p2", "Blue", 10, 10}))

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Polled)
	assert.Equal(t, testhelpers.BaseTime, f.account(t, 1).LastProcessedEnd, "failed account is untouched")
	assert.Equal(t, -1, f.account(t, 2).Streak)
	require.Len(t, f.sink.alerts, 1)
	assert.Equal(t, "loss", f.sink.alerts[0].Result)
}

func TestWatchCycleWorker_MalformedMatchKeepsSiblings(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	f.source.add("p1",
		json.RawMessage(`{"metadata": {"matchid": "broken"}}`),
		rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}),
	)

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Ingested)
}

func TestWatchCycleWorker_PartyMatesProcessedOnce(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t,
		testhelpers.NewAccount(1, 100, "p1"),
		testhelpers.NewAccount(2, 100, "p2"),
		testhelpers.NewAccount(3, 200, "p3"),
	)

	shared := rawMatch(t, "shared", "Competitive", time.Hour, 13, 11,
		rawPlayer{"p1", "Red", 18, 10},
		rawPlayer{"p2", "Red", 14, 12},
		rawPlayer{"p3", "Blue", 12, 15},
	)
	f.source.add("p1", shared)
	f.source.add("p2", shared)
	f.source.add("p3", shared)

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Ingested, "account 2 sees the shared match as already accounted for")
	require.Len(t, f.sink.alerts, 2)

	first := f.sink.alerts[0]
	assert.Equal(t, int64(1), first.OriginAccountID)
	assert.Equal(t, []int64{1, 2}, first.Party.TeamA)
	assert.Empty(t, first.Party.TeamB, "account 3 belongs to another guild")
	assert.Equal(t, "win", first.Result)

	second := f.sink.alerts[1]
	assert.Equal(t, int64(3), second.OriginAccountID)
	assert.Equal(t, int64(200), second.GuildID)
	assert.Equal(t, []int64{3}, second.Party.TeamB)
	assert.Empty(t, second.Party.TeamA)
	assert.Equal(t, "loss", second.Result)

	mate := f.account(t, 2)
	assert.Equal(t, testhelpers.BaseTime.Add(time.Hour), mate.LastProcessedEnd)
	assert.Equal(t, 1, mate.Streak)
	assert.Len(t, mate.RollingWindow, 1)
}

func TestWatchCycleWorker_PartyStreakAlertsIncludeMates(t *testing.T) {
	ctx := context.Background()
	origin := testhelpers.NewAccount(1, 100, "p1")
	mate := testhelpers.NewAccount(2, 100, "p2")
	mate.Streak = 2
	f := newWorkerFixture(t, origin, mate)

	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 3,
		rawPlayer{"p1", "Red", 20, 8},
		rawPlayer{"p2", "Red", 0, 9},
	))

	_, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	require.Len(t, f.sink.alerts, 1)
	alert := f.sink.alerts[0]
	require.Len(t, alert.Streaking, 1)
	assert.Equal(t, dto.StreakDTO{AccountID: 2, Magnitude: 3, Direction: "win"}, alert.Streaking[0])
	require.Len(t, alert.Feeding, 1)
	assert.Equal(t, int64(2), alert.Feeding[0].AccountID)
}

func TestWatchCycleWorker_ReleasesPartyWaitlists(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"), testhelpers.NewAccount(2, 100, "p2"))
	require.NoError(t, f.store.AddWaiters(ctx, 1, []int64{70, 71}))
	require.NoError(t, f.store.AddWaiters(ctx, 2, []int64{71, 72}))

	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9,
		rawPlayer{"p1", "Red", 15, 12},
		rawPlayer{"p2", "Blue", 15, 12},
	))

	_, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	require.Len(t, f.sink.alerts, 1)
	alert := f.sink.alerts[0]
	assert.Equal(t, []int64{70, 71, 72}, alert.WaitersToNotify)
	assert.Equal(t, []int64{2}, alert.OtherTeam)

	for _, id := range []int64{1, 2} {
		waiters, err := f.store.GetWaitlist(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, waiters)
	}
}

func TestWatchCycleWorker_SinkFailureRestoresWaiters(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	require.NoError(t, f.store.AddWaiters(ctx, 1, []int64{70}))
	f.sink.err = errors.New("discord unavailable")
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}))

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Alerts)
	waiters, err := f.store.GetWaitlist(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{70}, waiters)
	assert.Equal(t, testhelpers.BaseTime.Add(time.Hour), f.account(t, 1).LastProcessedEnd, "stats stay applied")
}

func TestWatchCycleWorker_StoreWriteFailureDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	require.NoError(t, f.store.AddWaiters(ctx, 1, []int64{70}))
	f.store.FailUpsertFor[1] = errors.New("disk full")
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}))

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, f.sink.alerts)
	assert.Equal(t, testhelpers.BaseTime, f.account(t, 1).LastProcessedEnd)
	waiters, err := f.store.GetWaitlist(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{70}, waiters)
}

func TestWatchCycleWorker_DeathmatchOnlyAlertsForWaiters(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"), testhelpers.NewAccount(2, 100, "p2"))
	require.NoError(t, f.store.AddWaiters(ctx, 2, []int64{80}))

	dm := json.RawMessage(`{"metadata": {"matchid": "dm", "map": "Piazza", "mode": "Deathmatch", "game_start": ` +
		jsonInt(testhelpers.BaseTime.Unix()) + `, "game_length": 600}}`)
	f.source.add("p1", dm)
	f.source.add("p2", dm)

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Ingested)
	require.Len(t, f.sink.alerts, 1)
	alert := f.sink.alerts[0]
	assert.Equal(t, int64(2), alert.OriginAccountID)
	assert.Equal(t, []int64{80}, alert.WaitersToNotify)
	assert.Empty(t, alert.Result)
	assert.Empty(t, alert.Party.TeamA)
	assert.Empty(t, alert.Party.TeamB)

	assert.Equal(t, testhelpers.BaseTime.Add(10*time.Minute), f.account(t, 1).LastProcessedEnd)
}

func TestWatchCycleWorker_PrivateScopeAlertsAlone(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 0, "p1"), testhelpers.NewAccount(2, 0, "p2"))
	shared := rawMatch(t, "m1", "Competitive", time.Hour, 13, 9,
		rawPlayer{"p1", "Red", 15, 12},
		rawPlayer{"p2", "Red", 15, 12},
	)
	f.source.add("p1", shared)
	f.source.add("p2", shared)

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Ingested, "private accounts never party, each ingests on its own turn")
	require.Len(t, f.sink.alerts, 2)
	assert.Equal(t, []int64{1}, f.sink.alerts[0].Party.TeamA)
	assert.Equal(t, []int64{2}, f.sink.alerts[1].Party.TeamA)
	assert.Zero(t, f.sink.alerts[0].ChannelID)
}

func TestWatchCycleWorker_RoutesToPollingChannel(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	channel := int64(555)
	threshold := 1
	f.store.PutGuildSettings(entities.GuildSettings{GuildID: 100, PollingChannelID: &channel, StreakThreshold: &threshold})
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}))

	_, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	require.Len(t, f.sink.alerts, 1)
	assert.Equal(t, channel, f.sink.alerts[0].ChannelID)
	require.Len(t, f.sink.alerts[0].Streaking, 1, "guild threshold of 1 alerts on the first win")
}

func TestWatchCycleWorker_DelaysBetweenAccounts(t *testing.T) {
	f := newWorkerFixture(t,
		testhelpers.NewAccount(1, 100, "p1"),
		testhelpers.NewAccount(2, 100, "p2"),
		testhelpers.NewAccount(3, 100, "p3"),
	)

	_, err := f.worker.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, f.sleeps)
}

func TestWatchCycleWorker_ListFailureAbortsTick(t *testing.T) {
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	f.store.FailListAll = errors.New("connection refused")

	_, err := f.worker.RunTick(context.Background())

	require.Error(t, err)
	assert.Empty(t, f.source.fetched())
	assert.False(t, f.worker.IsRunning())
}

func TestWatchCycleWorker_OverlappingTickIsSkipped(t *testing.T) {
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"))
	metrics := &countingMetrics{}
	f.worker.metrics = metrics
	f.source.block = make(chan struct{})
	f.source.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.worker.RunTick(context.Background())
		done <- err
	}()

	select {
	case <-f.source.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first tick never reached the match source")
	}

	_, err := f.worker.RunTick(context.Background())
	assert.ErrorIs(t, err, ErrTickInFlight)
	assert.Equal(t, 1, metrics.skipped)

	close(f.source.block)
	require.NoError(t, <-done)
	assert.Len(t, f.source.fetched(), 1, "the skipped tick never queued a fetch")
}

func TestWatchCycleWorker_UnregisteredMidTickIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, testhelpers.NewAccount(1, 100, "p1"), testhelpers.NewAccount(2, 100, "p2"))
	f.source.add("p1", rawMatch(t, "m1", "Competitive", time.Hour, 13, 9, rawPlayer{"p1", "Red", 15, 12}))

	f.source.onFetch = func(externalID string) {
		if externalID == "p1" {
			require.NoError(t, f.store.Delete(ctx, 2))
		}
	}

	report, err := f.worker.RunTick(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, f.source.fetched())
	assert.Equal(t, 0, report.Failed)
}

func jsonInt(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
