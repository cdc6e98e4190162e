// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-forker/internal/domain"
	"github.com/naka-gawa/github-forker/internal/gateway"
	"github.com/naka-gawa/github-forker/internal/report"
)

// Options configures a replication run. The interval fields exist so tests
// can shrink the delays; DefaultOptions holds the production values.
type Options struct {
	Org             string
	IncludeForks    bool
	IncludeArchived bool
	Wait            bool
	Parallel        int

	// PaceInterval is slept after every fork attempt to stay under the
	// remote's rate limits.
	PaceInterval time.Duration
	// PollInterval and PollAttempts bound the wait-mode polling loop.
	PollInterval time.Duration
	PollAttempts int
}

// DefaultOptions returns the production settings: sequential processing,
// 300ms pacing, and up to a minute of wait-mode polling.
func DefaultOptions() Options {
	return Options{
		Parallel:     1,
		PaceInterval: 300 * time.Millisecond,
		PollInterval: 5 * time.Second,
		PollAttempts: 12,
	}
}

// Replicator is the use case that converges the target owner's repository
// set toward one fork per qualifying source repository. Each run re-probes
// the live remote state, so runs are independently idempotent.
type Replicator struct {
	forge    gateway.Forge
	reporter report.Emitter
	logger   *log.Logger
	opts     Options
}

// NewReplicator creates a new Replicator instance.
func NewReplicator(forge gateway.Forge, reporter report.Emitter, logger *log.Logger, opts Options) *Replicator {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	return &Replicator{
		forge:    forge,
		reporter: reporter,
		logger:   logger,
		opts:     opts,
	}
}

// ResolveOwner returns the owner that will receive the forks: the explicit
// organization when one was given (unvalidated; fork creation validates it
// implicitly), otherwise the authenticated login. A failure here is the one
// unrecoverable startup error of a run.
func (r *Replicator) ResolveOwner(ctx context.Context) (string, error) {
	if r.opts.Org != "" {
		return r.opts.Org, nil
	}
	login, err := r.forge.Login(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve the target owner: %w", err)
	}
	return login, nil
}

// Run lists the source user's repositories and processes each qualifying
// one: probe the target, fork when absent, record the outcome. A fork
// failure never aborts the run; only a failed listing does. The returned
// tally is also handed to the reporter as the summary.
func (r *Replicator) Run(ctx context.Context, sourceUser, targetOwner string) (domain.Tally, error) {
	repos, err := r.forge.ListByUser(ctx, sourceUser)
	if err != nil {
		return domain.Tally{}, err
	}

	filter := domain.Filter{
		IncludeForks:    r.opts.IncludeForks,
		IncludeArchived: r.opts.IncludeArchived,
	}

	var (
		mu    sync.Mutex
		tally domain.Tally
	)

	// With Parallel == 1 the group degenerates to the sequential baseline:
	// submission blocks until the previous repository is done, so repos are
	// processed and reported in listing order.
	var eg errgroup.Group
	eg.SetLimit(r.opts.Parallel)

	for _, repo := range repos {
		if !filter.Keep(repo) {
			r.logger.Printf("Filtered out %s (fork=%t, archived=%t).", repo.FullName(), repo.Fork, repo.Archived)
			continue
		}
		eg.Go(func() error {
			r.replicate(ctx, repo, targetOwner, &mu, &tally)
			return nil
		})
	}
	_ = eg.Wait()

	r.logger.Printf("Run complete: %d created, %d skipped, %d failed.", tally.Created, tally.Skipped, tally.Failed)
	r.reporter.Summary(tally)
	return tally, nil
}

// replicate drives one repository through its terminal state: skip when the
// target already has it, otherwise fork and optionally wait for the fork to
// become visible.
func (r *Replicator) replicate(ctx context.Context, repo domain.Repository, targetOwner string, mu *sync.Mutex, tally *domain.Tally) {
	if r.forge.Exists(ctx, targetOwner, repo.Name) {
		mu.Lock()
		tally.Skipped++
		r.reporter.Skip(repo, targetOwner)
		mu.Unlock()
		return
	}

	err := r.forge.CreateFork(ctx, repo.Owner, repo.Name, r.opts.Org)
	mu.Lock()
	if err != nil {
		tally.Failed++
		r.reporter.Fail(repo, err)
	} else {
		tally.Created++
		r.reporter.Fork(repo, targetOwner)
	}
	mu.Unlock()

	if err == nil && r.opts.Wait {
		r.awaitVisible(ctx, targetOwner, repo.Name)
	}
	// Pacing follows the optional wait, so in wait mode the two delays
	// stack: the polling protects the read path, this sleep the write path.
	sleepCtx(ctx, r.opts.PaceInterval)
}

// awaitVisible polls until the just-created fork shows up at the target,
// giving the remote's eventual consistency a chance to catch up. The
// outcome is deliberately unreported: this is a convenience delay for
// callers that chain further operations on the fork, not a verdict.
func (r *Replicator) awaitVisible(ctx context.Context, owner, name string) {
	for i := 0; i < r.opts.PollAttempts; i++ {
		if !sleepCtx(ctx, r.opts.PollInterval) {
			return
		}
		if r.forge.Exists(ctx, owner, name) {
			return
		}
		r.logger.Printf("Fork %s/%s is not visible yet, polling again...", owner, name)
	}
	r.logger.Printf("Gave up waiting for %s/%s to become visible.", owner, name)
}

// sleepCtx sleeps for d unless the context is cancelled first. It reports
// whether the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
