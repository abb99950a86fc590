// Package ingest locates source documents on disk and reads them for the
// pipeline.
package ingest

import (
	"time"
)

// Source is a document read from disk.
type Source struct {
	Path    string
	Data    []byte
	HashHex string // sha256 of Data
	Size    int64
	ReadAt  time.Time
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// ReadConfig bounds the retry of a locked or briefly unavailable file.
type ReadConfig struct {
	Attempts int           // default 3
	Delay    time.Duration // default 2s
}

func (c ReadConfig) withDefaults() ReadConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Delay < 0 {
		c.Delay = 0
	} else if c.Delay == 0 {
		c.Delay = 2 * time.Second
	}
	return c
}
