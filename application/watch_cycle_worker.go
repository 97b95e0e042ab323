package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"valwatch/domain/entities"
	"valwatch/domain/interfaces"
	"valwatch/domain/services"

	log "github.com/sirupsen/logrus"
)

// ErrTickInFlight is returned when a tick is requested while another is still running
var ErrTickInFlight = errors.New("watch cycle tick already in flight")

// WatchCycleConfig tunes the watch cycle
type WatchCycleConfig struct {
	TickInterval    time.Duration
	AccountDelay    time.Duration
	FetchTimeout    time.Duration
	DefaultCooldown time.Duration
	StreakThreshold int
}

// TickReport summarizes one tick
type TickReport struct {
	Accounts   int
	CooledDown int
	Polled     int
	Failed     int
	Ingested   int
	Alerts     int
}

// WatchCycleWorker polls the match source for every tracked account and folds new matches into
// their stats. Accounts are processed one at a time, re-read right before their turn, so that a
// party-mate's watermark bump earlier in the tick is visible.
type WatchCycleWorker struct {
	store     interfaces.AccountStore
	source    MatchSource
	sink      AlertSink
	metrics   WatchMetrics
	engine    *services.StatsEngine
	parties   *services.PartyResolver
	waitlists *services.WaitlistReconciler
	cfg       WatchCycleConfig

	running atomic.Bool
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewWatchCycleWorker creates a new watch cycle worker
func NewWatchCycleWorker(
	store interfaces.AccountStore,
	source MatchSource,
	sink AlertSink,
	metrics WatchMetrics,
	cfg WatchCycleConfig,
) *WatchCycleWorker {
	if metrics == nil {
		metrics = NoopWatchMetrics{}
	}
	if cfg.StreakThreshold < 1 {
		cfg.StreakThreshold = services.DefaultStreakThreshold
	}
	return &WatchCycleWorker{
		store:     store,
		source:    source,
		sink:      sink,
		metrics:   metrics,
		engine:    services.NewStatsEngine(),
		parties:   services.NewPartyResolver(),
		waitlists: services.NewWaitlistReconciler(store),
		cfg:       cfg,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Start begins the watch cycle. The first tick runs immediately.
func (w *WatchCycleWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	// Ticks are not cancelled mid-flight; shutdown only stops new ones from starting
	tickCtx := context.WithoutCancel(ctx)
	launch := func() {
		go func() {
			if _, err := w.RunTick(tickCtx); err != nil && !errors.Is(err, ErrTickInFlight) {
				log.WithError(err).Error("Watch cycle tick aborted")
			}
		}()
	}

	go func() {
		log.WithField("interval", w.cfg.TickInterval).Info("Watch cycle worker started")

		ticker := time.NewTicker(w.cfg.TickInterval)
		defer ticker.Stop()

		launch()
		for {
			select {
			case <-ctx.Done():
				log.Info("Watch cycle worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Watch cycle worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				launch()
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// IsRunning reports whether a tick is in flight
func (w *WatchCycleWorker) IsRunning() bool {
	return w.running.Load()
}

// RunTick runs one pass over the roster. It returns ErrTickInFlight without doing anything when
// another tick has not finished yet. Only a failure to list the roster aborts the tick.
func (w *WatchCycleWorker) RunTick(ctx context.Context) (TickReport, error) {
	var report TickReport

	if !w.running.CompareAndSwap(false, true) {
		log.Warn("Previous watch cycle tick still running, skipping this one")
		w.metrics.RecordTickSkipped()
		return report, ErrTickInFlight
	}
	defer w.running.Store(false)

	started := w.now()
	roster, err := w.store.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list tracked accounts: %w", err)
	}
	report.Accounts = len(roster)

	for i, snapshot := range roster {
		if i > 0 && w.cfg.AccountDelay > 0 {
			w.sleep(w.cfg.AccountDelay)
		}

		if err := w.processAccount(ctx, snapshot.AccountID, roster, &report); err != nil {
			report.Failed++
			log.WithFields(log.Fields{
				"account_id":         snapshot.AccountID,
				"guild_id":           snapshot.GuildID,
				"source_unavailable": entities.IsSourceUnavailable(err),
			}).WithError(err).Warn("Skipping account for this tick")
		}
	}

	elapsed := w.now().Sub(started)
	w.metrics.RecordTick(elapsed, report.Accounts)
	log.WithFields(log.Fields{
		"accounts":    report.Accounts,
		"polled":      report.Polled,
		"cooled_down": report.CooledDown,
		"failed":      report.Failed,
		"ingested":    report.Ingested,
		"alerts":      report.Alerts,
		"duration":    elapsed,
	}).Info("Completed watch cycle tick")

	return report, nil
}

// processAccount polls one account and applies whatever it has not seen yet
func (w *WatchCycleWorker) processAccount(ctx context.Context, accountID int64, roster []*entities.TrackedAccount, report *TickReport) error {
	account, err := w.store.Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to reload account: %w", err)
	}
	if account == nil {
		log.WithField("account_id", accountID).Debug("Account unregistered during tick, skipping")
		return nil
	}

	settings := w.guildSettings(ctx, account.GuildID)

	cooldown := settings.Cooldown(w.cfg.DefaultCooldown)
	if w.now().Sub(account.LastProcessedEnd) < cooldown {
		report.CooledDown++
		w.metrics.RecordFetch(FetchOutcomeCooldown)
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	raws, err := w.source.FetchRecentMatches(fetchCtx, account.ExternalRef.Region, account.ExternalRef.PUUID)
	cancel()
	if err != nil {
		if entities.IsSourceUnavailable(err) {
			w.metrics.RecordFetch(FetchOutcomeUnavailable)
		} else {
			w.metrics.RecordFetch(FetchOutcomeError)
		}
		return fmt.Errorf("failed to fetch recent matches: %w", err)
	}
	w.metrics.RecordFetch(FetchOutcomeSuccess)
	report.Polled++

	matches, failures := services.ParseMatches(raws)
	for idx, parseErr := range failures {
		log.WithFields(log.Fields{
			"account_id": account.AccountID,
			"index":      idx,
		}).WithError(parseErr).Warn("Discarding malformed match")
	}

	opts := services.EngineOptions{StreakThreshold: settings.StreakAlertThreshold(w.cfg.StreakThreshold)}
	updated, outcomes, err := w.engine.Apply(account, matches, opts)
	if err != nil {
		return fmt.Errorf("failed to apply matches: %w", err)
	}
	if len(outcomes) == 0 {
		return nil
	}

	if _, err := w.store.Upsert(ctx, updated); err != nil {
		return fmt.Errorf("failed to save account stats: %w", err)
	}

	for _, outcome := range outcomes {
		report.Ingested++
		w.metrics.RecordMatchesIngested(string(outcome.Match.Mode()), 1)
		if w.handleOutcome(ctx, updated, outcome, roster, settings, opts) {
			report.Alerts++
		}
	}

	log.WithFields(log.Fields{
		"account_id": account.AccountID,
		"ingested":   len(outcomes),
		"watermark":  updated.LastProcessedEnd,
		"streak":     updated.Streak,
	}).Debug("Applied new matches")

	return nil
}

// handleOutcome resolves the party for one ingested match, brings party-mates up to date with it,
// releases their waiters and hands the alert to the sink. Returns true when an alert was delivered.
func (w *WatchCycleWorker) handleOutcome(
	ctx context.Context,
	origin *entities.TrackedAccount,
	outcome entities.MatchOutcome,
	roster []*entities.TrackedAccount,
	settings *entities.GuildSettings,
	opts services.EngineOptions,
) bool {
	match := outcome.Match

	party := w.parties.Resolve(match, origin, roster)
	if party.IsEmpty() && outcome.Substantive {
		party = services.SoloParty(match, origin)
	}
	classification := w.parties.Classify(party, match, origin)

	outcomes := []entities.MatchOutcome{outcome}
	for _, mate := range party.Members() {
		if mate.AccountID == origin.AccountID {
			continue
		}
		if mateOutcome, ok := w.applyToPartyMate(ctx, mate.AccountID, match, opts); ok {
			outcomes = append(outcomes, mateOutcome)
		}
	}

	memberIDs := append(party.MemberIDs(), origin.AccountID)
	released, err := w.waitlists.Reconcile(ctx, memberIDs)
	if err != nil {
		log.WithFields(log.Fields{
			"match_id":  match.ID(),
			"member_ids": memberIDs,
		}).WithError(err).Warn("Failed to release some waitlists")
	}

	if !outcome.Substantive && released.IsEmpty() {
		return false
	}

	alert := buildMatchAlert(origin, match, party, classification, outcomes, released, settings)
	if err := w.sink.PublishMatchAlert(ctx, alert); err != nil {
		w.metrics.RecordAlertPublished(false)
		log.WithFields(log.Fields{
			"match_id":   match.ID(),
			"account_id": origin.AccountID,
		}).WithError(err).Error("Failed to publish match alert")

		if restoreErr := w.waitlists.Restore(ctx, released); restoreErr != nil {
			log.WithField("match_id", match.ID()).WithError(restoreErr).Error("Failed to restore released waiters")
		}
		return false
	}

	w.metrics.RecordAlertPublished(true)
	return true
}

// applyToPartyMate folds a shared match into a party-mate's stats so their own turn treats it as
// already accounted for. Returns false when the mate had already seen the match.
func (w *WatchCycleWorker) applyToPartyMate(ctx context.Context, accountID int64, match *entities.MatchRecord, opts services.EngineOptions) (entities.MatchOutcome, bool) {
	mate, err := w.store.Get(ctx, accountID)
	if err != nil {
		log.WithField("account_id", accountID).WithError(err).Warn("Failed to reload party member")
		return entities.MatchOutcome{}, false
	}
	if mate == nil {
		return entities.MatchOutcome{}, false
	}

	updated, outcomes, err := w.engine.Apply(mate, []*entities.MatchRecord{match}, opts)
	if err != nil || len(outcomes) == 0 {
		return entities.MatchOutcome{}, false
	}

	if _, err := w.store.Upsert(ctx, updated); err != nil {
		log.WithFields(log.Fields{
			"account_id": accountID,
			"match_id":   match.ID(),
		}).WithError(err).Warn("Failed to save party member stats, they will pick the match up on their own turn")
		return entities.MatchOutcome{}, false
	}

	return outcomes[0], true
}

// guildSettings loads guild overrides, falling back to defaults when they cannot be read
func (w *WatchCycleWorker) guildSettings(ctx context.Context, guildID int64) *entities.GuildSettings {
	if guildID == 0 {
		return nil
	}
	settings, err := w.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		log.WithField("guild_id", guildID).WithError(err).Warn("Failed to load guild settings, using defaults")
		return nil
	}
	return settings
}
