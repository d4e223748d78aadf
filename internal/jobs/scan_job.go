package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/Akash01010101/threadcraft/internal/repository"
	"github.com/Akash01010101/threadcraft/internal/service"
)

// ScanJob is the due-work scanner: each run queries for unposted threads
// whose scheduled time has elapsed and feeds them, earliest first, to the
// publisher. It backstops the task queue, so a thread whose queued task
// was lost still goes out.
type ScanJob struct {
	tr  repository.ThreadRepository
	pub *service.Publisher
	now func() time.Time
}

func NewScanJob(tr repository.ThreadRepository, pub *service.Publisher) *ScanJob {
	return &ScanJob{tr: tr, pub: pub, now: time.Now}
}

// Run is the cron entrypoint.
func (j *ScanJob) Run() {
	if err := j.Scan(context.Background()); err != nil {
		slog.Error("scheduler scan failed", "error", err)
	}
}

// Scan processes every due thread sequentially. One thread's failure is
// logged and does not stop the rest; failed threads stay stored and are
// picked up again on the next pass. Re-running with no new due threads is
// a no-op because publishing deletes the row.
func (j *ScanJob) Scan(ctx context.Context) error {
	threads, err := j.tr.ListDue(ctx, j.now())
	if err != nil {
		return err
	}

	if len(threads) == 0 {
		slog.Info("no due threads")
		return nil
	}

	slog.Info("processing due threads", "count", len(threads))

	for _, thread := range threads {
		if err := j.pub.ProcessThread(ctx, thread); err != nil {
			slog.Error("thread publish failed, leaving for next pass",
				"thread_id", thread.ID, "error", err)
			continue
		}
	}

	return nil
}
