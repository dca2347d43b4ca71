package treemodel

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/jLantxa/backup/pkg/blob"
)

// Summary holds the counters the archiver accumulates while building
// a snapshot, surfaced by `stats`.
type Summary struct {
	FilesNew       int   `json:"files_new"`
	FilesChanged   int   `json:"files_changed"`
	FilesUnchanged int   `json:"files_unchanged"`
	DirsNew        int   `json:"dirs_new"`
	DataBlobs      int   `json:"data_blobs"`
	TreeBlobs      int   `json:"tree_blobs"`
	TotalBytes     int64 `json:"total_bytes"`
}

// Snapshot is a named, timestamped pointer to a root Tree.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	RootPath    string    `json:"root_path"`
	RootTree    blob.ID   `json:"root_tree"`
	SourcePaths []string  `json:"source_paths"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
	Parent      *blob.ID  `json:"parent,omitempty"`
	Summary     Summary   `json:"summary"`
}

// wireSnapshot pins the canonicalization rules needed for
// content-addressed IDs to be stable: UTF-8 JSON, fixed field order,
// sorted tags, timestamps as RFC3339Nano UTC, no trailing whitespace
// (encoding/json.Marshal emits none by default).
type wireSnapshot struct {
	Timestamp   string   `json:"timestamp"`
	RootPath    string   `json:"root_path"`
	RootTree    string   `json:"root_tree"`
	SourcePaths []string `json:"source_paths"`
	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Summary     Summary  `json:"summary"`
}

func (s Snapshot) wire() wireSnapshot {
	sourcePaths := append([]string(nil), s.SourcePaths...)
	tags := append([]string(nil), s.Tags...)
	sort.Strings(tags)

	w := wireSnapshot{
		Timestamp:   s.Timestamp.UTC().Format(time.RFC3339Nano),
		RootPath:    s.RootPath,
		RootTree:    s.RootTree.String(),
		SourcePaths: sourcePaths,
		Tags:        tags,
		Description: s.Description,
		Summary:     s.Summary,
	}
	if s.Parent != nil {
		w.Parent = s.Parent.String()
	}
	return w
}

// Marshal produces the canonical plaintext whose hash is the
// snapshot's file name.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s.wire())
}

// ID computes the content-addressed ID of s's canonical serialization.
func (s Snapshot) ID() (blob.ID, error) {
	data, err := s.Marshal()
	if err != nil {
		return blob.ID{}, err
	}
	return blob.Compute(data), nil
}

// UnmarshalSnapshot parses a persisted Snapshot file's plaintext.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return Snapshot{}, err
	}
	s := Snapshot{
		RootPath: w.RootPath, SourcePaths: w.SourcePaths, Tags: w.Tags,
		Description: w.Description, Summary: w.Summary,
	}
	var err error
	if s.Timestamp, err = time.Parse(time.RFC3339Nano, w.Timestamp); err != nil {
		return Snapshot{}, err
	}
	if s.RootTree, err = blob.ParseID(w.RootTree); err != nil {
		return Snapshot{}, err
	}
	if w.Parent != "" {
		id, err := blob.ParseID(w.Parent)
		if err != nil {
			return Snapshot{}, err
		}
		s.Parent = &id
	}
	return s, nil
}
