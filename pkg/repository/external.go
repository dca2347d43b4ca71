package repository

import (
	"os"
	"path/filepath"
)

// External KeyFiles (the `--key <path>` CLI flag) live outside the
// repository root on the operator's local filesystem
// regardless of which Backend the repository itself uses — a KeyFile
// held by an SFTP repository's owner is still a local file the
// operator keeps on their own machine.
func writeExternalFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readExternalFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
