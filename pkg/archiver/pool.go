package archiver

import (
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/chunker"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// fileJob is one New or Changed regular file waiting to be chunked
// and encoded. result is buffered so the worker never blocks handing
// its answer back, even if the walker has since failed and stopped
// collecting.
type fileJob struct {
	path     string
	template treemodel.Node
	result   chan fileResult
}

type fileResult struct {
	node treemodel.Node
	err  error
}

// readerPool is a fixed-size worker pool reading and chunking files
// concurrently, built on errgroup like packsaver.Saver. Each job
// carries its own result channel rather than the pool aggregating one
// error for the whole run: the Archiver's bottom-up stack needs the
// outcome of a specific file, not just "some worker failed".
type readerPool struct {
	repo  Repo
	jobs  chan *fileJob
	group *errgroup.Group
}

func newReaderPool(repo Repo, concurrency int) *readerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	g := new(errgroup.Group)
	p := &readerPool{repo: repo, jobs: make(chan *fileJob, concurrency*2), group: g}
	for i := 0; i < concurrency; i++ {
		g.Go(p.worker)
	}
	return p
}

func (p *readerPool) worker() error {
	for job := range p.jobs {
		node, err := p.process(job)
		job.result <- fileResult{node: node, err: err}
	}
	return nil
}

func (p *readerPool) process(job *fileJob) (treemodel.Node, error) {
	node := job.template
	f, err := os.Open(job.path)
	if err != nil {
		return node, err
	}
	defer f.Close()

	splitter := chunker.NewSplitter(f)
	var ids []blob.ID
	for {
		chunk, err := splitter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return node, err
		}
		id, err := p.repo.EncodeAndSaveBlob(blob.TypeData, chunk.Data, nil)
		if err != nil {
			return node, err
		}
		ids = append(ids, id)
	}
	node.Blobs = ids
	return node, nil
}

// submit enqueues job, blocking if every worker is busy (the pool's
// bound on concurrent open files).
func (p *readerPool) submit(job *fileJob) {
	p.jobs <- job
}

// close stops accepting new jobs and waits for every worker to drain
// and exit. worker never returns a non-nil error itself (per-job
// errors are delivered through each job's result channel instead), so
// this is always nil; it exists so the pool shuts down the same way
// packsaver.Saver.Finish does.
func (p *readerPool) close() error {
	close(p.jobs)
	return p.group.Wait()
}
