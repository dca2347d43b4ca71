package repository

import (
	"context"

	"github.com/jLantxa/backup/pkg/packsaver"
)

// Flush drains both Packers (flushing any partially-filled pack to
// the PackSaver), waits for every submitted pack to be written, and
// persists any still-pending Index.
//
// The archiver calls Flush exactly once per run, after every reader
// has either succeeded or the run is being abandoned: a snapshot file
// is only ever written once Flush has returned successfully, so a
// worker failure never leaves a dangling snapshot referencing
// unwritten blobs.
func (r *Repository) Flush() error {
	r.packMu.Lock()
	dataFlushed, err := r.dataPacker.Flush(r.env)
	if err != nil {
		r.packMu.Unlock()
		return err
	}
	treeFlushed, err := r.treePacker.Flush(r.env)
	if err != nil {
		r.packMu.Unlock()
		return err
	}
	r.packMu.Unlock()

	if dataFlushed != nil {
		if err := r.submitFlushedPack(dataFlushed); err != nil {
			return err
		}
	}
	if treeFlushed != nil {
		if err := r.submitFlushedPack(treeFlushed); err != nil {
			return err
		}
	}

	finishErr := r.saver.Finish()
	// Finish closes the saver's job queue; start a fresh saver so the
	// Repository keeps accepting blobs (and later Flushes) afterwards.
	r.saver = packsaver.New(context.Background(), r.b, objectsDir, r.cfg.WriteConcurrency)
	if finishErr != nil {
		return finishErr
	}
	return r.idx.Save(r)
}
