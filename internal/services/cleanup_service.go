package services

import (
	"time"

	"pickhub/internal/repos"

	"github.com/gofiber/fiber/v2"

	applog "pickhub/internal/log"
)

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func staleCutoff(minutes int) time.Time {
	return time.Now().Add(-time.Duration(minutes) * time.Minute)
}

// CleanupService runs the background janitor: it frees pick locks that went
// idle past the timeout and prunes terminal requests older than the retention
// window.
type CleanupService struct {
	Lifecycle *LifecycleService
	Requests  *repos.RequestRepo
	Registry  *Registry

	PickTimeoutMinutes int
	IntervalMinutes    int
	RetentionHours     int

	stop chan struct{}
	done chan struct{}
}

func NewCleanupService(lc *LifecycleService, requests *repos.RequestRepo, reg *Registry, timeoutMin, intervalMin, retentionHours int) *CleanupService {
	return &CleanupService{
		Lifecycle:          lc,
		Requests:           requests,
		Registry:           reg,
		PickTimeoutMinutes: timeoutMin,
		IntervalMinutes:    intervalMin,
		RetentionHours:     retentionHours,
		stop:               make(chan struct{}),
		done:               make(chan struct{}),
	}
}

func (s *CleanupService) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(time.Duration(s.IntervalMinutes) * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.RunOnce()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *CleanupService) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce performs a single sweep; exported so tests and an admin endpoint
// can trigger it without waiting for the ticker.
func (s *CleanupService) RunOnce() {
	released, err := s.Lifecycle.ReleaseStale(s.PickTimeoutMinutes)
	if err != nil {
		applog.Error(nil, "cleanup.stale_locks.fail", err, nil)
	} else if released > 0 {
		applog.Info(nil, "cleanup.stale_locks", fiber.Map{"released": released})
	}

	cutoff := time.Now().Add(-time.Duration(s.RetentionHours) * time.Hour)
	removed, err := s.Requests.DeleteOld(cutoff)
	if err != nil {
		applog.Error(nil, "cleanup.old_requests.fail", err, nil)
	} else if removed > 0 {
		applog.Info(nil, "cleanup.old_requests", fiber.Map{"removed": removed})
	}

	if s.Registry != nil {
		if closed := s.Registry.CloseIdle(time.Duration(s.PickTimeoutMinutes) * time.Minute); closed > 0 {
			applog.Info(nil, "cleanup.idle_sessions", fiber.Map{"closed": closed})
		}
	}
}
