package service

import (
	"context"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/metrics"
	"connect4_bot/internal/repository"
)

const (
	recorderBuffer  = 1024
	recorderTimeout = 5 * time.Second
)

// MatchRecorder сохраняет итоги партий и журнал матчей.
// Notify только кладет события в буфер, запись идет в горутине Run
type MatchRecorder struct {
	stats  *StatsService
	audit  *AuditService
	events chan matchmaking.Event
	log    *slog.Logger
}

func NewMatchRecorder(stats *StatsService, audit *AuditService, log *slog.Logger) *MatchRecorder {
	return &MatchRecorder{
		stats:  stats,
		audit:  audit,
		events: make(chan matchmaking.Event, recorderBuffer),
		log:    log,
	}
}

func (r *MatchRecorder) Notify(events []matchmaking.Event) {
	for _, ev := range events {
		if !recorded(ev) {
			continue
		}
		select {
		case r.events <- ev:
		default:
			metrics.DeliveryErrors.WithLabelValues("recorder").Inc()
			r.log.Warn("recorder buffer full, event dropped", "kind", ev.Kind, "session_id", ev.SessionID)
		}
	}
}

func (r *MatchRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.record(ctx, ev)
		}
	}
}

func recorded(ev matchmaking.Event) bool {
	switch ev.Kind {
	case matchmaking.EventPaired,
		matchmaking.EventExpired,
		matchmaking.EventMatchResult,
		matchmaking.EventRematchStarted,
		matchmaking.EventRematchCancelled,
		matchmaking.EventRematchTimeout:
		return true
	case matchmaking.EventBoardUpdated:
		return isOpeningBoard(ev)
	}
	return false
}

// первая доска партии: пустая и с указанием ходящего
func isOpeningBoard(ev matchmaking.Event) bool {
	return ev.Board != nil && ev.Mover != nil && ev.Board.Pieces() == 0
}

func (r *MatchRecorder) record(parent context.Context, ev matchmaking.Event) {
	ctx, cancel := context.WithTimeout(parent, recorderTimeout)
	defer cancel()

	switch ev.Kind {
	case matchmaking.EventPaired:
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionPaired, domain.AuditCategoryPairing, "", nil)
	case matchmaking.EventExpired:
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionExpired, domain.AuditCategoryPairing, "", nil)
	case matchmaking.EventBoardUpdated:
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionGameStart, domain.AuditCategoryGame, ev.SessionID,
			map[string]any{"first_mover": ev.Mover.ID})
	case matchmaking.EventMatchResult:
		r.recordResult(ctx, ev)
	case matchmaking.EventRematchStarted:
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionRematchStart, domain.AuditCategoryRematch, "", nil)
	case matchmaking.EventRematchCancelled:
		var details map[string]any
		if len(ev.Players) > 0 {
			details = map[string]any{"by": ev.Players[0].ID}
		}
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionRematchCancel, domain.AuditCategoryRematch, "", details)
	case matchmaking.EventRematchTimeout:
		r.audit.LogPair(ctx, ev.Players, domain.AuditActionRematchTimeout, domain.AuditCategoryRematch, "", nil)
	}
}

func (r *MatchRecorder) recordResult(ctx context.Context, ev matchmaking.Event) {
	res := ev.Result
	if res == nil || len(ev.Players) != 2 {
		return
	}

	outcome := repository.MatchOutcome{First: ev.Players[0], Second: ev.Players[1], Tie: res.Tie}
	if !res.Tie && res.Winner != nil && res.Loser != nil {
		outcome.First, outcome.Second = *res.Winner, *res.Loser
	}
	r.stats.Record(ctx, outcome)
	r.audit.LogResult(ctx, ev.SessionID, outcome.First, outcome.Second, outcome.Tie, res.Moves)
	r.log.Info("match recorded", "session_id", ev.SessionID, "tie", res.Tie, "moves", res.Moves)
}
