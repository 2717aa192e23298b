/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tablet writes row batches into size-bounded segment files on
// behalf of one tablet. A write session is all-or-nothing: until Finish
// succeeds, none of the written segments become visible, and Close after a
// failed session removes them.
package tablet

import (
	"math"
	"os"
	"path/filepath"

	"github.com/tundradb/tundra/go/td/log"
	"github.com/tundradb/tundra/go/td/terrors"
)

// maxSegmentRows bounds the row count of one segment. Segment row indexes
// are 32-bit signed in the on-disk format.
const maxSegmentRows = math.MaxInt32

// Config holds the thresholds of a write session.
type Config struct {
	// MaxSegmentFileSize rotates to a new segment once the current one
	// holds at least this many payload bytes.
	MaxSegmentFileSize int64
}

// DefaultConfig is used when a zero Config is given.
var DefaultConfig = Config{
	MaxSegmentFileSize: 1 << 30, // 1GiB
}

// Row is one encoded row.
type Row []byte

// RowBatch is a group of rows written together.
type RowBatch struct {
	Rows []Row
}

// NumRows returns the number of rows in the batch.
func (b RowBatch) NumRows() int64 {
	return int64(len(b.Rows))
}

// Writer accumulates row batches into segment files under a tablet
// directory. The call sequence is Open, any number of Write/Flush, then
// Finish, then Close. Close without a successful Finish deletes everything
// the session wrote.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	dir string
	cfg Config

	seg      *segmentWriter
	files    []string
	numRows  int64
	dataSize int64
	finished bool
}

// NewWriter creates a Writer for the tablet directory dir.
func NewWriter(dir string, cfg Config) *Writer {
	if cfg.MaxSegmentFileSize <= 0 {
		cfg.MaxSegmentFileSize = DefaultConfig.MaxSegmentFileSize
	}
	return &Writer{dir: dir, cfg: cfg}
}

// Open prepares the writer. It performs no I/O; segments are created
// lazily on the first Write.
func (w *Writer) Open() error {
	return nil
}

// Write appends a batch, rotating to a new segment when the current one is
// over the size threshold or would exceed the row-count bound. Any error
// is fatal to the session; the caller must still Close.
func (w *Writer) Write(batch RowBatch) error {
	if w.finished {
		return terrors.New(terrors.CodeFailedPrecondition, "write after finish")
	}
	if w.seg == nil ||
		w.seg.estimateSegmentSize() >= w.cfg.MaxSegmentFileSize ||
		w.seg.numRowsWritten()+batch.NumRows() >= maxSegmentRows {
		if err := w.flushSegmentWriter(); err != nil {
			return err
		}
		if err := w.resetSegmentWriter(); err != nil {
			return err
		}
	}
	if err := w.seg.appendBatch(batch); err != nil {
		return err
	}
	w.numRows += batch.NumRows()
	return nil
}

// Flush finalizes the current segment, if any. The next Write starts a
// fresh segment.
func (w *Writer) Flush() error {
	return w.flushSegmentWriter()
}

// Finish flushes the last segment and marks the session successful, so
// Close keeps the files.
func (w *Writer) Finish() error {
	if err := w.flushSegmentWriter(); err != nil {
		return err
	}
	w.finished = true
	return nil
}

// Close releases the writer. When Finish has not succeeded, every segment
// file of the session is deleted so no partial data stays discoverable.
func (w *Writer) Close() {
	if w.seg != nil {
		w.seg.abort()
		w.seg = nil
	}
	if !w.finished && len(w.files) > 0 {
		for _, name := range w.files {
			path := w.segmentPath(name)
			if err := os.Remove(path); err != nil {
				log.Warningf("removing partial segment %v: %v", path, err)
			}
		}
	}
	w.files = nil
}

// Files returns the names of the segments written so far.
func (w *Writer) Files() []string {
	return w.files
}

// NumRows returns the rows accepted so far.
func (w *Writer) NumRows() int64 {
	return w.numRows
}

// DataSize returns the bytes of finalized segments.
func (w *Writer) DataSize() int64 {
	return w.dataSize
}

func (w *Writer) segmentPath(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *Writer) resetSegmentWriter() error {
	name := randomSegmentName()
	seg, err := newSegmentWriter(w.dir, name)
	if err != nil {
		return err
	}
	w.seg = seg
	w.files = append(w.files, name)
	return nil
}

func (w *Writer) flushSegmentWriter() error {
	if w.seg == nil {
		return nil
	}
	size, err := w.seg.finalize()
	if err != nil {
		return err
	}
	w.dataSize += size
	w.seg = nil
	return nil
}
