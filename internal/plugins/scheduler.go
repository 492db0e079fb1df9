package plugins

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// PluginScheduler lets a scripted plugin register cron-syntax maintenance
// jobs (periodic self-diagnostics, housekeeping) without spinning up its
// own goroutine and ticker. It wraps a single host-owned *cron.Cron shared
// across every plugin instance — one background goroutine for the whole
// process rather than one per plugin — and keeps a per-plugin job
// namespace so RemoveAll() on unload only touches that plugin's jobs. This
// is a direct generalization of api/internal/plugins/scheduler.go's
// PluginScheduler to this domain: same shared-cron-instance rationale,
// same panic-recovering job wrapper, same RemoveAll-on-unload discipline.
//
// Native plugins in the scan hot path never touch this: §5's suspension-
// point rule forbids unbounded waits there, and cron jobs run on their own
// schedule, not the scan cycle.
type PluginScheduler struct {
	cron       *cron.Cron
	pluginName string
	jobIDs     map[string]cron.EntryID
	logger     *zerolog.Logger
}

// NewPluginScheduler wraps the shared cron instance for one plugin.
func NewPluginScheduler(cronInstance *cron.Cron, pluginName string, logger *zerolog.Logger) *PluginScheduler {
	return &PluginScheduler{
		cron:       cronInstance,
		pluginName: pluginName,
		jobIDs:     make(map[string]cron.EntryID),
		logger:     logger,
	}
}

// Schedule registers job under cronExpr, replacing any existing job of the
// same name. The job is wrapped with panic recovery so a plugin bug cannot
// take down the shared cron goroutine.
func (ps *PluginScheduler) Schedule(jobName, cronExpr string, job func()) error {
	if existingID, exists := ps.jobIDs[jobName]; exists {
		ps.cron.Remove(existingID)
		delete(ps.jobIDs, jobName)
	}

	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				ps.logger.Error().Interface("panic", r).Str("plugin", ps.pluginName).Str("job", jobName).
					Msg("scheduled plugin job panicked")
			}
		}()
		job()
	}

	entryID, err := ps.cron.AddFunc(cronExpr, wrapped)
	if err != nil {
		return fmt.Errorf("schedule job %s for plugin %s: %w", jobName, ps.pluginName, err)
	}

	ps.jobIDs[jobName] = entryID
	return nil
}

// RemoveAll removes every job this plugin scheduled, called on unload so no
// orphaned job touches a torn-down plugin's state.
func (ps *PluginScheduler) RemoveAll() {
	for _, entryID := range ps.jobIDs {
		ps.cron.Remove(entryID)
	}
	ps.jobIDs = make(map[string]cron.EntryID)
}

// ListJobs returns the names of this plugin's currently scheduled jobs.
func (ps *PluginScheduler) ListJobs() []string {
	jobs := make([]string, 0, len(ps.jobIDs))
	for name := range ps.jobIDs {
		jobs = append(jobs, name)
	}
	return jobs
}
