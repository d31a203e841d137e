package services

import (
	"context"
	"time"

	"student-portal/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// CronService runs scheduled maintenance jobs
type CronService struct {
	cron     *cron.Cron
	otp      *OTPService
	schedule string
	timeout  time.Duration
	log      *logger.Logger
}

// NewCronService creates a new cron service
func NewCronService(otp *OTPService, schedule string, log *logger.Logger) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		otp:      otp,
		schedule: schedule,
		timeout:  time.Minute,
		log:      log,
	}
}

// Start registers jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.SweepOTP); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("cron started", "otp_sweep", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// SweepOTP deletes long-expired OTP records
func (s *CronService) SweepOTP() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.otp.Sweep(ctx)
	if err != nil {
		s.log.Error("otp sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("otp sweep completed", "deleted", n)
	}
}
