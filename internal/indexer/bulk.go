package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"docrag/internal/contextutil"
)

// Job is one file to ingest.
type Job struct {
	Path     string
	SourceID string
}

// JobError records why a job failed.
type JobError struct {
	Job Job
	Err error
}

// Report summarises a bulk ingestion run.
type Report struct {
	Stats  IngestStats
	Failed []JobError
}

// IngestAll ingests jobs concurrently on a bounded ants pool and waits for
// all of them. Individual failures are collected in the report; they do not
// stop other jobs. Jobs not yet started when ctx is cancelled are reported as failed.
func (p *Pipeline) IngestAll(ctx context.Context, jobs []Job) (*Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = &Report{}
		acc    = newStatsAccumulator()
	)

	record := func(job Job, out ingestOutcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		acc.add(out, err)
		if err != nil && !errors.Is(err, ErrEmptyInput) {
			report.Failed = append(report.Failed, JobError{Job: job, Err: err})
		}
	}

	for _, job := range jobs {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				record(job, ingestOutcome{}, err)
				return
			}
			out, err := p.ingestFile(ctx, job)
			record(job, out, err)
		})
		if submitErr != nil {
			wg.Done()
			record(job, ingestOutcome{}, fmt.Errorf("failed to submit job: %w", submitErr))
		}
	}
	wg.Wait()

	report.Stats = acc.stats()
	logger.InfoContext(ctx, "bulk ingestion completed",
		"jobs", len(jobs),
		"ingested", report.Stats.DocsIngested,
		"empty", report.Stats.DocsEmpty,
		"skipped", report.Stats.DocsSkipped,
		"failed", len(report.Failed),
		"chunks", report.Stats.ChunksIndexed,
	)
	return report, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, job Job) (ingestOutcome, error) {
	res, err := p.extractor.ExtractFile(ctx, job.Path)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to extract file", "path", job.Path, "error", err)
		return ingestOutcome{}, err
	}
	return p.ingest(ctx, res.Text, job.SourceID)
}
