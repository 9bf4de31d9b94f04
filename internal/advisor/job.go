package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/jobs"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/rs/zerolog"
)

// JobHandler returns a queue handler that summarises the current ledger,
// asks adv for advice and records it on the job. An empty ledger fails the
// job permanently; advice service errors are left to the queue's retries.
func JobHandler(loader ledger.Loader, engine *alerts.Engine, adv Advisor, now func() time.Time, log zerolog.Logger) jobs.JobHandler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, job *jobs.AdviceJob) error {
		l, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("advice job: load ledger: %w", err)
		}

		summary, err := Summarize(l, engine.Evaluate(l, now()))
		if errors.Is(err, ErrEmptyLedger) {
			return jobs.Permanent(err)
		}
		if err != nil {
			return fmt.Errorf("advice job: %w", err)
		}

		advice, err := adv.Advise(ctx, summary)
		if err != nil {
			log.Warn().Err(err).Str("job_id", job.JobID).Int("retry_count", job.RetryCount).Msg("Advice request failed")
			return err
		}

		job.Advice = advice
		log.Info().Str("job_id", job.JobID).Int("alerts", len(summary.Alerts)).Msg("Advice generated")
		return nil
	}
}
