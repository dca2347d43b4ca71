// Package packsaver implements the PackSaver: a bounded worker pool
// that persists finalized packs to the backend in parallel.
//
// Built on golang.org/x/sync/errgroup so the first worker error
// cancels the group and is easy to retrieve.
package packsaver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/blob"
)

// Job is one finalized pack ready to be written.
type Job struct {
	ID    blob.ID
	Bytes []byte
}

// Saver owns a channel of Jobs drained by a fixed number of workers,
// each writing pack bytes to the backend via write-temp-then-rename
// into objects/<fanout>/<id-hex>.
type Saver struct {
	b           backend.Backend
	objectsRoot string
	jobs        chan Job
	group       *errgroup.Group
	ctx         context.Context
}

// New starts a Saver with concurrency workers, writing into
// objectsRoot (e.g. "objects") under b.
func New(ctx context.Context, b backend.Backend, objectsRoot string, concurrency int) *Saver {
	if concurrency <= 0 {
		concurrency = 5
	}
	g, gctx := errgroup.WithContext(ctx)
	s := &Saver{
		b:           b,
		objectsRoot: objectsRoot,
		jobs:        make(chan Job, concurrency*2),
		group:       g,
		ctx:         gctx,
	}
	for i := 0; i < concurrency; i++ {
		g.Go(s.worker)
	}
	return s
}

func (s *Saver) worker() error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case job, ok := <-s.jobs:
			if !ok {
				return nil
			}
			if err := s.save(job); err != nil {
				return err
			}
		}
	}
}

func (s *Saver) save(job Job) error {
	dest := fmt.Sprintf("%s/%s/%s", s.objectsRoot, job.ID.FanoutDir(), job.ID.String())
	exists, err := s.b.Exists(dest)
	if err != nil {
		return err
	}
	if exists {
		// Content-addressed: an identical pack already on disk
		// needs no second write (idempotent submission).
		return nil
	}
	return backend.WriteAtomic(s.b, fmt.Sprintf("%s/%s", s.objectsRoot, job.ID.FanoutDir()), dest, job.Bytes)
}

// Submit enqueues a pack for a worker to persist. It blocks if the
// queue is full.
func (s *Saver) Submit(job Job) {
	select {
	case s.jobs <- job:
	case <-s.ctx.Done():
	}
}

// Finish closes the job channel and waits for every worker to drain
// and exit, returning the first error any worker encountered.
func (s *Saver) Finish() error {
	close(s.jobs)
	return s.group.Wait()
}
