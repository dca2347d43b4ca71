package repository

import (
	"time"

	"github.com/jLantxa/backup/pkg/envelope"
)

// Config is the small, fixed configuration surface the CLI passes
// into a Repository: concurrency hints and the pack-size target. The
// CLI passes only repo URL, password, optional keyfile path,
// concurrency hints, and pack-size target; everything else is core
// behavior.
type Config struct {
	// ReadConcurrency is the Archiver's reader pool size. Default 4.
	ReadConcurrency int
	// WriteConcurrency is the PackSaver's worker count. Default 5.
	WriteConcurrency int
	// PackSize is the flush threshold for a Packer, in bytes.
	// Default 16 MiB; hard max ~4 GiB.
	PackSize int64
	// CompressionLevel is the zstd level used by the secure envelope.
	CompressionLevel envelope.Level
	// IndexFlushTimeout is not read by the Repository: the MasterIndex
	// always ages out its pending Index after index.FlushTimeout.
	IndexFlushTimeout time.Duration
}

const (
	// DefaultPackSize is the Packer flush threshold.
	DefaultPackSize = 16 << 20
	// MaxPackSize is the hard ceiling on a single pack's body size.
	MaxPackSize = 4 << 30
	// DefaultReadConcurrency is the Archiver reader pool size.
	DefaultReadConcurrency = 4
	// DefaultWriteConcurrency is the PackSaver worker count.
	DefaultWriteConcurrency = 5
	// GCRepackConcurrency is fixed, not configurable.
	GCRepackConcurrency = 4
)

func (c Config) withDefaults() Config {
	if c.ReadConcurrency <= 0 {
		c.ReadConcurrency = DefaultReadConcurrency
	}
	if c.WriteConcurrency <= 0 {
		c.WriteConcurrency = DefaultWriteConcurrency
	}
	if c.PackSize <= 0 {
		c.PackSize = DefaultPackSize
	}
	if c.PackSize > MaxPackSize {
		c.PackSize = MaxPackSize
	}
	if c.CompressionLevel == 0 {
		c.CompressionLevel = envelope.LevelDefault
	}
	return c
}
