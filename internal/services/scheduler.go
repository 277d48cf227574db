package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ece-marketplace/internal/domain"
	"ece-marketplace/pkg/logger"
	"ece-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CronAuctionScheduler runs due start/end jobs on a cron tick. Only the
// instance holding the Redis leadership key executes them.
type CronAuctionScheduler struct {
	cron       *cron.Cron
	repo       domain.SchedulerRepository
	auctionMgr *AuctionManager
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	log        logger.Logger
}

var _ domain.AuctionScheduler = (*CronAuctionScheduler)(nil)

func NewCronAuctionScheduler(repo domain.SchedulerRepository, auctionMgr *AuctionManager,
	leader domain.LeaderElection, instanceID string, interval time.Duration, log logger.Logger) *CronAuctionScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CronAuctionScheduler{
		cron:       cron.New(cron.WithSeconds()),
		repo:       repo,
		auctionMgr: auctionMgr,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		log:        log,
	}
}

func (s *CronAuctionScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting auction scheduler", "interval", s.interval.String(), "instance_id", s.instanceID)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronAuctionScheduler) Stop() error {
	s.log.Info("Stopping auction scheduler")
	<-s.cron.Stop().Done()

	if s.leader == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.leader.ReleaseLeadership(ctx, s.instanceID)
}

func (s *CronAuctionScheduler) ScheduleAuctionStart(ctx context.Context, auctionID string, startTime time.Time) error {
	return s.schedule(ctx, auctionID, domain.JobStartAuction, startTime)
}

func (s *CronAuctionScheduler) ScheduleAuctionEnd(ctx context.Context, auctionID string, endTime time.Time) error {
	return s.schedule(ctx, auctionID, domain.JobEndAuction, endTime)
}

func (s *CronAuctionScheduler) schedule(ctx context.Context, auctionID string, jobType domain.JobType, runAt time.Time) error {
	job := &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auctionID,
		JobType:   jobType,
		RunAt:     runAt.UTC(),
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateJob(ctx, job)
}

func (s *CronAuctionScheduler) CancelSchedule(ctx context.Context, auctionID string) error {
	return s.repo.CancelJobsForAuction(ctx, auctionID)
}

// RunOnce executes every due job when this instance leads, then sweeps
// active auctions that are past their end time.
func (s *CronAuctionScheduler) RunOnce(ctx context.Context) {
	leading, err := s.isLeader(ctx)
	if err != nil {
		s.log.Error("Leader check failed", "error", err)
		return
	}
	if !leading {
		return
	}

	jobs, err := s.repo.GetPendingJobs(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("Failed to get pending jobs", "error", err)
		return
	}

	for _, job := range jobs {
		s.log.Info("Processing job", "job_id", job.ID, "type", string(job.JobType), "auction_id", job.AuctionID)

		var err error
		switch job.JobType {
		case domain.JobStartAuction:
			err = s.auctionMgr.StartAuction(ctx, job.AuctionID)
		case domain.JobEndAuction:
			_, err = s.auctionMgr.EndAuction(ctx, job.AuctionID)
		}

		// an auction that already left the expected state needs no retry
		if err != nil && !errors.Is(err, domain.ErrInvalidState) && !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("Failed to execute job", "job_id", job.ID, "error", err)
			continue
		}

		if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("Failed to mark job executed", "job_id", job.ID, "error", err)
		}
	}

	if n, err := s.auctionMgr.ExpireDueAuctions(ctx); err != nil {
		s.log.Error("Failed to sweep expired auctions", "error", err)
	} else if n > 0 {
		s.log.Info("Expired auctions ended", "count", n)
	}
}

func (s *CronAuctionScheduler) isLeader(ctx context.Context) (bool, error) {
	if s.leader == nil {
		return true, nil
	}
	leading, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil || leading {
		return leading, err
	}
	return s.leader.BecomeLeader(ctx, s.instanceID)
}
