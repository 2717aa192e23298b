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

package tablet

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tundradb/tundra/go/td/terrors"
)

// segmentMagic trails every finalized segment file.
var segmentMagic = [4]byte{'T', 'S', 'G', '1'}

// randomSegmentName returns a fresh segment file name. Names are random so
// that retried write sessions never collide with leftovers.
func randomSegmentName() string {
	return uuid.New().String() + ".dat"
}

// segmentWriter writes one segment file: length-prefixed rows followed by
// a footer with the row count and magic.
type segmentWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer

	rowsWritten int64
	bytes       int64
}

func newSegmentWriter(dir, name string) (*segmentWriter, error) {
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, terrors.Wrapf(err, "creating segment %v", path)
	}
	return &segmentWriter{
		path: path,
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

func (sw *segmentWriter) numRowsWritten() int64 {
	return sw.rowsWritten
}

// estimateSegmentSize is the number of payload bytes accepted so far. The
// buffered tail not yet on disk is included; the footer is not.
func (sw *segmentWriter) estimateSegmentSize() int64 {
	return sw.bytes
}

func (sw *segmentWriter) appendBatch(batch RowBatch) error {
	var prefix [4]byte
	for _, row := range batch.Rows {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(row)))
		if _, err := sw.buf.Write(prefix[:]); err != nil {
			return terrors.Wrapf(err, "writing to segment %v", sw.path)
		}
		if _, err := sw.buf.Write(row); err != nil {
			return terrors.Wrapf(err, "writing to segment %v", sw.path)
		}
		sw.bytes += int64(len(prefix) + len(row))
		sw.rowsWritten++
	}
	return nil
}

// finalize flushes the buffer, writes the footer and closes the file. The
// segment size on disk is returned.
func (sw *segmentWriter) finalize() (int64, error) {
	var footer [12]byte
	binary.LittleEndian.PutUint64(footer[:8], uint64(sw.rowsWritten))
	copy(footer[8:], segmentMagic[:])
	if _, err := sw.buf.Write(footer[:]); err != nil {
		sw.file.Close()
		return 0, terrors.Wrapf(err, "writing footer of segment %v", sw.path)
	}
	if err := sw.buf.Flush(); err != nil {
		sw.file.Close()
		return 0, terrors.Wrapf(err, "flushing segment %v", sw.path)
	}
	if err := sw.file.Sync(); err != nil {
		sw.file.Close()
		return 0, terrors.Wrapf(err, "syncing segment %v", sw.path)
	}
	if err := sw.file.Close(); err != nil {
		return 0, terrors.Wrapf(err, "closing segment %v", sw.path)
	}
	return sw.bytes + int64(len(footer)), nil
}

// abort closes the file handle without finalizing. The caller removes the
// file afterwards.
func (sw *segmentWriter) abort() {
	sw.file.Close()
}
