package downloader

import (
	"context"
	"sync"

	"autodj/logger"
)

// Job is one download request for the pool.
type Job struct {
	Query string // The request text that produced this URL
	URL   string
}

// Result is the outcome of one download job.
type Result struct {
	Job      Job
	FilePath string
	Err      error
}

// DownloadAll runs the jobs through a bounded worker pool and returns all
// results. onDone, when non-nil, is invoked as each job finishes so callers
// can stream progress to displays.
func (d *Downloader) DownloadAll(ctx context.Context, jobs []Job, workers int, onDone func(Result)) []Result {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	jobChan := make(chan Job, len(jobs))
	resultChan := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				select {
				case <-ctx.Done():
					resultChan <- Result{Job: job, Err: ctx.Err()}
					continue
				default:
				}

				path, err := d.Download(ctx, job.URL)
				if err != nil {
					logger.Warn("download failed",
						logger.Int("worker", workerID),
						logger.String("query", job.Query),
						logger.ErrorField(err))
				}
				resultChan <- Result{Job: job, FilePath: path, Err: err}
			}
		}(i)
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	wg.Wait()
	close(resultChan)

	results := make([]Result, 0, len(jobs))
	for res := range resultChan {
		if onDone != nil {
			onDone(res)
		}
		results = append(results, res)
	}
	return results
}
