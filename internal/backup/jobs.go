// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"time"

	"github.com/olegiv/ngocms/internal/scheduler"
)

// ScheduledJobName is the scheduler name of the automatic backup job.
const ScheduledJobName = "backup"

// ScheduledJob returns a job that creates a backup of type t and then
// deletes stored backups older than retention. A zero retention keeps
// every backup. The backup is recorded without a user.
func (s *Service) ScheduledJob(schedule string, t Type, retention time.Duration) scheduler.Job {
	return scheduler.Job{
		Name:     ScheduledJobName,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if _, err := s.Create(ctx, Actor{}, t); err != nil {
				return err
			}
			if retention <= 0 {
				return nil
			}
			if _, err := s.Cleanup(ctx, retention); err != nil {
				s.logger.Warn("failed to clean up old backups", "error", err)
			}
			return nil
		},
	}
}
