package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// BacktestJob is one symbol's replay
type BacktestJob struct {
	Config   Config
	Data     []types.OHLCV
	Strategy strategy.Strategy
}

// BacktestResult pairs a job with its outcome
type BacktestResult struct {
	Symbol   string
	Results  *BacktestResults
	Duration time.Duration
	Error    error
}

// WorkerPool runs independent backtests in parallel
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool; workerCount <= 0 uses one worker per CPU
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// Run executes every job and returns results sorted by symbol. Jobs not
// started before ctx is cancelled report ctx's error.
func (wp *WorkerPool) Run(ctx context.Context, jobs []BacktestJob) []BacktestResult {
	jobQueue := make(chan BacktestJob)
	resultQueue := make(chan BacktestResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < wp.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobQueue {
				resultQueue <- processJob(job)
			}
		}()
	}

	for _, job := range jobs {
		select {
		case jobQueue <- job:
		case <-ctx.Done():
			resultQueue <- BacktestResult{Symbol: job.Config.Symbol, Error: ctx.Err()}
		}
	}
	close(jobQueue)
	wg.Wait()
	close(resultQueue)

	results := make([]BacktestResult, 0, len(jobs))
	for r := range resultQueue {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })
	return results
}

func processJob(job BacktestJob) BacktestResult {
	startTime := time.Now()
	result := BacktestResult{Symbol: job.Config.Symbol}

	engine, err := NewBacktestEngine(job.Config, job.Strategy)
	if err != nil {
		result.Error = err
		return result
	}
	result.Results = engine.Run(job.Data)
	result.Duration = time.Since(startTime)
	return result
}
