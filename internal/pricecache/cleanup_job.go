package pricecache

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes stale quotations from the price cache.
// It should be scheduled to run daily.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new price cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "price_cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job, removing all stale quotations.
func (j *CleanupJob) Run() error {
	results, err := j.repo.DeleteExpired()
	if err != nil {
		return err
	}

	var totalDeleted int64
	for class, count := range results {
		if count > 0 {
			j.log.Info().
				Str("asset_class", string(class)).
				Int64("deleted", count).
				Msg("Cleaned up stale quotations")
			totalDeleted += count
		}
	}

	if totalDeleted > 0 {
		j.log.Info().
			Int64("total_deleted", totalDeleted).
			Msg("Price cache cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "price_cache_cleanup"
}
