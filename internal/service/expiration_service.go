package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/internship-market/internal/archive"
	"github.com/shinyyama/internship-market/internal/model"
	"github.com/shinyyama/internship-market/internal/pagination"
	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shinyyama/internship-market/internal/repository"
	"go.uber.org/zap"
)

const sweeperActor = "expiration-sweeper"

type ExpirationConfig struct {
	// GracePeriod is how long a negotiation may stay rejected before it is canceled.
	GracePeriod time.Duration
	// Hour is the wall-clock hour of the daily sweep, in Location.
	Hour     int
	Location *time.Location
}

type SweepReport struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	Cutoff     time.Time `json:"cutoff"`
	Scanned    int       `json:"scanned"`
	Canceled   []uint64  `json:"canceled"`
	Skipped    []uint64  `json:"skipped"`
	Failed     []uint64  `json:"failed"`
	ArchiveURL string    `json:"-"`
}

type ExpirationService interface {
	// Run sweeps once a day until ctx is done.
	Run(ctx context.Context) error
	SweepOnce(ctx context.Context) (*SweepReport, error)
}

type expirationService struct {
	repo     repository.NegotiationRepository
	history  NegotiationHistoryService
	archiver archive.Archiver
	cfg      ExpirationConfig
	log      *zap.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewExpirationService(
	repo repository.NegotiationRepository,
	history NegotiationHistoryService,
	archiver archive.Archiver,
	cfg ExpirationConfig,
	log *zap.Logger,
) (ExpirationService, error) {
	if cfg.GracePeriod <= 0 {
		return nil, fmt.Errorf("grace period must be positive, got %s", cfg.GracePeriod)
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		return nil, fmt.Errorf("sweep hour must be within 0-23, got %d", cfg.Hour)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &expirationService{
		repo:     repo,
		history:  history,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// NextRun is the first occurrence of hour:00 in loc strictly after now.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}

func (s *expirationService) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := NextRun(now, s.cfg.Hour, s.cfg.Location)
		s.log.Info("next expiration sweep scheduled", zap.Time("at", next))
		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			return err
		}
		if _, err := s.SweepOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("expiration sweep failed", zap.Error(err))
		}
	}
}

func (s *expirationService) SweepOnce(ctx context.Context) (*SweepReport, error) {
	started := s.now()
	report := &SweepReport{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Cutoff:    started.Add(-s.cfg.GracePeriod),
		Canceled:  []uint64{},
		Skipped:   []uint64{},
		Failed:    []uint64{},
	}
	log := s.log.With(zap.String("run_id", report.RunID))
	ctx = reqctx.WithActor(ctx, sweeperActor)

	candidates, err := pagination.Collect(ctx,
		s.repo.GetNegotiationsWithStatus(model.NegotiationStatusRejected).LastAttemptBefore(report.Cutoff))
	if err != nil {
		return nil, fmt.Errorf("scan rejected negotiations: %w", err)
	}
	report.Scanned = len(candidates)

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cur := candidates[i]
		next, ok := expire(cur, report.Cutoff)
		if !ok {
			continue
		}
		if _, err := s.repo.UpdateNegotiation(ctx, &cur, &next); err != nil {
			if errors.Is(err, repository.ErrStaleRecord) {
				report.Skipped = append(report.Skipped, cur.ID)
				log.Info("negotiation changed since scan, skipped", zap.Uint64("negotiation_id", cur.ID))
				continue
			}
			report.Failed = append(report.Failed, cur.ID)
			log.Warn("failed to cancel expired negotiation", zap.Uint64("negotiation_id", cur.ID), zap.Error(err))
			continue
		}
		report.Canceled = append(report.Canceled, cur.ID)
		if s.history != nil {
			s.history.Record(ctx, model.NegotiationEventExpired, &cur, next)
		}
	}

	log.Info("expiration sweep finished",
		zap.Time("cutoff", report.Cutoff),
		zap.Int("scanned", report.Scanned),
		zap.Int("canceled", len(report.Canceled)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))

	if s.archiver != nil && len(report.Canceled) > 0 {
		url, err := s.archiver.Archive(ctx, "expiration-"+report.RunID, started, report)
		if err != nil {
			log.Warn("sweep report archive failed", zap.Error(err))
		} else {
			report.ArchiveURL = url
		}
	}
	return report, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
