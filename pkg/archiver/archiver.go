// Package archiver implements the Archiver: the orchestrator that
// walks a NodeDiffStreamer merge of the live filesystem against an
// optional parent snapshot, dispatches New and Changed regular files
// to a bounded reader pool, and serializes directories bottom-up into
// Tree blobs as their children complete.
package archiver

import (
	"io"
	"strings"
	"time"

	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/streamers"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Repo is the narrow Repository capability the Archiver needs, kept
// local to avoid an import cycle with pkg/repository (which does not
// itself depend on archiver).
type Repo interface {
	streamers.BlobLoader
	EncodeAndSaveBlob(typ blob.Type, data []byte, saveID *blob.ID) (blob.ID, error)
	SaveFile(kind repository.FileKind, data []byte) (blob.ID, error)
	Flush() error
}

// Options configures one Archiver.
type Options struct {
	ReadConcurrency int
}

// childSlot is one pending or resolved entry of a directory-in-progress.
type childSlot struct {
	ready *treemodel.Node
	job   *fileJob
}

// dirFrame is one level of the explicit bottom-up build stack: the
// directory currently being assembled, and its children collected so
// far in path order. The bottommost stack frame is the run's virtual
// root and is never attached to a parent.
type dirFrame struct {
	path     string
	node     treemodel.Node
	children []childSlot
}

// Archiver drives one archive (backup) run against a Repo.
type Archiver struct {
	repo    Repo
	pool    *readerPool
	summary treemodel.Summary
}

// New returns an Archiver over repo.
func New(repo Repo, opts Options) *Archiver {
	return &Archiver{repo: repo, pool: newReaderPool(repo, opts.ReadConcurrency)}
}

// Run walks sources (excluding excludes), diffing against parent's
// tree (if non-nil), and produces a new Snapshot. It returns the
// Snapshot, its content-addressed ID, and persists it via SaveFile
// only once Flush has succeeded.
//
// Cancellation: there is no mid-run cancellation. A worker error
// propagates after in-flight work drains; Flush is attempted
// regardless, so the repository is left consistent even though no
// snapshot file is written.
func (a *Archiver) Run(sources, excludes []string, parent *treemodel.Snapshot, tags []string, description string) (treemodel.Snapshot, blob.ID, error) {
	rootPath, err := streamers.RootPath(sources)
	if err != nil {
		return treemodel.Snapshot{}, blob.ID{}, err
	}

	next, err := streamers.NewFSNodeStreamer(sources, excludes)
	if err != nil {
		return treemodel.Snapshot{}, blob.ID{}, err
	}

	var prev streamers.Streamer
	var parentID *blob.ID
	if parent != nil {
		s, err := streamers.NewSerializedNodeStreamer(a.repo, rootPath, parent.RootTree, nil, nil)
		if err != nil {
			return treemodel.Snapshot{}, blob.ID{}, err
		}
		prev = s
		id, err := parent.ID()
		if err != nil {
			return treemodel.Snapshot{}, blob.ID{}, err
		}
		parentID = &id
	}

	diff := streamers.NewNodeDiffStreamer(prev, next)

	rootTreeID, walkErr := a.walk(diff, rootPath)
	poolErr := a.pool.close()
	if walkErr != nil {
		_ = a.repo.Flush()
		return treemodel.Snapshot{}, blob.ID{}, walkErr
	}
	if poolErr != nil {
		_ = a.repo.Flush()
		return treemodel.Snapshot{}, blob.ID{}, poolErr
	}
	if err := a.repo.Flush(); err != nil {
		return treemodel.Snapshot{}, blob.ID{}, err
	}

	snap := treemodel.Snapshot{
		Timestamp:   time.Now(),
		RootPath:    rootPath,
		RootTree:    rootTreeID,
		SourcePaths: append([]string(nil), sources...),
		Tags:        append([]string(nil), tags...),
		Description: description,
		Parent:      parentID,
		Summary:     a.summary,
	}
	data, err := snap.Marshal()
	if err != nil {
		return treemodel.Snapshot{}, blob.ID{}, err
	}
	id, err := a.repo.SaveFile(repository.FileSnapshot, data)
	if err != nil {
		return treemodel.Snapshot{}, blob.ID{}, err
	}
	return snap, id, nil
}

// walk drives the merged diff stream through the explicit bottom-up
// stack and returns the finalized root Tree's blob ID.
func (a *Archiver) walk(diff *streamers.NodeDiffStreamer, rootPath string) (blob.ID, error) {
	stack := []*dirFrame{{path: rootPath}}

	for {
		item, err := diff.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return blob.ID{}, err
		}
		if err := a.popAncestors(&stack, item.Path); err != nil {
			return blob.ID{}, err
		}
		top := stack[len(stack)-1]

		if item.Kind == streamers.Deleted {
			continue
		}

		n := *item.Next
		switch n.Type {
		case treemodel.NodeDirectory:
			if item.Kind == streamers.New {
				a.summary.DirsNew++
			}
			stack = append(stack, &dirFrame{path: item.Path, node: n})

		case treemodel.NodeFile:
			switch item.Kind {
			case streamers.Unchanged:
				a.summary.FilesUnchanged++
				node := n
				node.Blobs = item.Prev.Blobs
				top.children = append(top.children, childSlot{ready: &node})
			default:
				if item.Kind == streamers.New {
					a.summary.FilesNew++
				} else {
					a.summary.FilesChanged++
				}
				job := &fileJob{path: item.Path, template: n, result: make(chan fileResult, 1)}
				a.pool.submit(job)
				top.children = append(top.children, childSlot{job: job})
			}

		default:
			// Symlinks and special files carry no content blobs.
			node := n
			top.children = append(top.children, childSlot{ready: &node})
		}
	}

	for len(stack) > 1 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := a.attachFinalized(stack[len(stack)-1], top); err != nil {
			return blob.ID{}, err
		}
	}
	return a.finalizeChildren(stack[0])
}

// popAncestors pops and finalizes every non-root frame that is not an
// ancestor directory of path, attaching each finalized Node into its
// parent's children in turn.
func (a *Archiver) popAncestors(stack *[]*dirFrame, path string) error {
	for len(*stack) > 1 {
		top := (*stack)[len(*stack)-1]
		if strings.HasPrefix(path, top.path+"/") {
			return nil
		}
		*stack = (*stack)[:len(*stack)-1]
		if err := a.attachFinalized((*stack)[len(*stack)-1], top); err != nil {
			return err
		}
	}
	return nil
}

// attachFinalized builds frame's Tree blob and appends its Node,
// carrying the resulting Tree reference, into parent's children.
func (a *Archiver) attachFinalized(parent, frame *dirFrame) error {
	treeID, err := a.finalizeChildren(frame)
	if err != nil {
		return err
	}
	node := frame.node
	node.Tree = &treeID
	parent.children = append(parent.children, childSlot{ready: &node})
	return nil
}

// finalizeChildren resolves every pending file job in frame's
// children (blocking on each job's result channel), builds the
// canonical Tree, and saves it as a Tree blob.
func (a *Archiver) finalizeChildren(frame *dirFrame) (blob.ID, error) {
	children := make([]treemodel.Node, 0, len(frame.children))
	for _, slot := range frame.children {
		var node treemodel.Node
		if slot.ready != nil {
			node = *slot.ready
		} else {
			res := <-slot.job.result
			if res.err != nil {
				return blob.ID{}, backuperrors.Workerf("archiver: read %q: %w", slot.job.path, res.err)
			}
			node = res.node
		}
		if node.Type == treemodel.NodeFile {
			a.summary.DataBlobs += len(node.Blobs)
			a.summary.TotalBytes += node.Meta.Size
		}
		children = append(children, node)
	}

	tree := treemodel.Tree{Children: children}
	data, err := tree.Marshal()
	if err != nil {
		return blob.ID{}, err
	}
	id, err := a.repo.EncodeAndSaveBlob(blob.TypeTree, data, nil)
	if err != nil {
		return blob.ID{}, err
	}
	a.summary.TreeBlobs++
	return id, nil
}
