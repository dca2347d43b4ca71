package main

import (
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/treemodel"
)

// loadSnapshot reads and unmarshals the snapshot file stored under id.
func loadSnapshot(repo *repository.Repository, id blob.ID) (treemodel.Snapshot, error) {
	data, err := repo.ReadFile(repository.FileSnapshot, id)
	if err != nil {
		return treemodel.Snapshot{}, err
	}
	return treemodel.UnmarshalSnapshot(data)
}
