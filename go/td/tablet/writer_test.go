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
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundradb/tundra/go/td/terrors"
)

func batchOf(rows ...string) RowBatch {
	b := RowBatch{}
	for _, r := range rows {
		b.Rows = append(b.Rows, Row(r))
	}
	return b
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriterSingleSegment(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{})
	require.NoError(t, w.Open())

	require.NoError(t, w.Write(batchOf("aaa", "bb")))
	require.NoError(t, w.Write(batchOf("c")))
	require.NoError(t, w.Finish())
	w.Close()

	require.Len(t, w.Files(), 1)
	assert.EqualValues(t, 3, w.NumRows())
	assert.Equal(t, w.Files(), listDir(t, dir))

	// 3 rows with 4-byte length prefixes plus the 12-byte footer.
	payload := int64(4+3) + int64(4+2) + int64(4+1)
	assert.Equal(t, payload+12, w.DataSize())

	data, err := os.ReadFile(filepath.Join(dir, w.Files()[0]))
	require.NoError(t, err)
	require.EqualValues(t, payload+12, len(data))
	footer := data[len(data)-12:]
	assert.EqualValues(t, 3, binary.LittleEndian.Uint64(footer[:8]))
	assert.Equal(t, segmentMagic[:], footer[8:])
}

func TestWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{MaxSegmentFileSize: 16})
	defer w.Close()

	// Each row costs 4+8 bytes, so the second batch starts a new segment.
	require.NoError(t, w.Write(batchOf("12345678", "12345678")))
	require.NoError(t, w.Write(batchOf("12345678")))
	require.NoError(t, w.Finish())

	assert.Len(t, w.Files(), 2)
	assert.EqualValues(t, 3, w.NumRows())
}

func TestWriterFlushRotates(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{})
	defer w.Close()

	require.NoError(t, w.Write(batchOf("a")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Write(batchOf("b")))
	require.NoError(t, w.Finish())

	assert.Len(t, w.Files(), 2)
}

func TestWriterCloseWithoutFinishDeletesFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{MaxSegmentFileSize: 8})

	require.NoError(t, w.Write(batchOf("12345678")))
	require.NoError(t, w.Write(batchOf("12345678")))
	require.Len(t, w.Files(), 2)

	w.Close()
	assert.Empty(t, listDir(t, dir))
}

func TestWriterCloseAfterFinishKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{})

	require.NoError(t, w.Write(batchOf("a")))
	require.NoError(t, w.Finish())
	w.Close()

	assert.Len(t, listDir(t, dir), 1)
}

func TestWriterWriteAfterFinish(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{})
	defer w.Close()

	require.NoError(t, w.Write(batchOf("a")))
	require.NoError(t, w.Finish())

	err := w.Write(batchOf("b"))
	require.Error(t, err)
	assert.Equal(t, terrors.CodeFailedPrecondition, terrors.Code(err))
}

func TestWriterEmptySession(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{})

	require.NoError(t, w.Open())
	require.NoError(t, w.Finish())
	w.Close()

	assert.Empty(t, w.Files())
	assert.Empty(t, listDir(t, dir))
	assert.Zero(t, w.NumRows())
	assert.Zero(t, w.DataSize())
}

func TestWriterSegmentNamesUnique(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Config{MaxSegmentFileSize: 4})
	defer w.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, w.Write(batchOf("1234")))
	}
	require.NoError(t, w.Finish())

	seen := map[string]bool{}
	for _, name := range w.Files() {
		assert.False(t, seen[name], "duplicate segment name %v", name)
		seen[name] = true
	}
	assert.Len(t, seen, 4)
}
