package zipdir

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_MatchesArchiveZip(t *testing.T) {
	files := []struct {
		name    string
		content string
	}{
		{name: "test/a.txt", content: "hello world"},
		{name: "test/path/b.txt", content: strings.Repeat("b", 4096)},
		{name: "test/another/path/c.txt", content: "c"},
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		assert.NoErrorf(t, err, "Create(%s) error = %v", f.name, err)

		_, err = w.Write([]byte(f.content))
		assert.NoErrorf(t, err, "Write(...) error = %v", err)
	}

	err := zw.SetComment("the archive comment")
	assert.NoErrorf(t, err, "SetComment(...) error = %v", err)

	err = zw.Close()
	assert.NoErrorf(t, err, "Close() error = %v", err)

	data := buf.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	assert.NoErrorf(t, err, "zip.NewReader(...) error = %v", err)

	d, headers, err := Scan(data)
	assert.NoErrorf(t, err, "Scan() error = %v", err)
	assert.EqualValues(t, len(files), d.CDCount)
	assert.Equal(t, []byte("the archive comment"), d.EOCD.Comment)

	actual := make(map[string]FileHeader)
	var offsets []uint64
	for fh, err := range headers {
		assert.NoErrorf(t, err, "headers error = %v", err)
		actual[fh.Name] = fh
		offsets = append(offsets, fh.Offset)
	}
	assert.Len(t, actual, len(files))

	for _, f := range zr.File {
		fh, ok := actual[f.Name]
		assert.Truef(t, ok, "missing file header for %s", f.Name)
		assert.Equal(t, f.Method, fh.Method)
		assert.Equal(t, f.CRC32, fh.CRC32)
		assert.Equal(t, f.Flags, fh.Flags)
		assert.Equal(t, f.CompressedSize64, fh.CompressedSize64)
		assert.Equal(t, f.UncompressedSize64, fh.UncompressedSize64)
	}

	// the first local file header starts at the beginning of the archive and the rest follow in write order.
	assert.EqualValues(t, 0, offsets[0])
	for i := 1; i < len(offsets); i++ {
		assert.Greater(t, offsets[i], offsets[i-1])
	}
}

func TestScan_ConcurrentReaders(t *testing.T) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		w, err := zw.Create(name)
		assert.NoErrorf(t, err, "Create(%s) error = %v", name, err)

		_, err = w.Write([]byte(name))
		assert.NoErrorf(t, err, "Write(...) error = %v", err)
	}

	err := zw.Close()
	assert.NoErrorf(t, err, "Close() error = %v", err)

	// parsing borrows immutably from data, so goroutines need no synchronisation between them.
	data := buf.Bytes()
	done := make(chan []string)
	for range 4 {
		go func() {
			var names []string
			_, headers, err := Scan(data)
			if err == nil {
				for fh, err := range headers {
					if err != nil {
						break
					}
					names = append(names, fh.Name)
				}
			}
			done <- names
		}()
	}

	for range 4 {
		assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, <-done)
	}
}

func TestScan_CDRegionOutOfBounds(t *testing.T) {
	// an EOCD whose declared central directory extends past the end of the buffer.
	buf := &bytes.Buffer{}
	buf.Write(sigEOCD)
	writeLE(buf, uint16(0), uint16(0), uint16(1), uint16(1))
	writeLE(buf, uint32(1024), uint32(0), uint16(0))

	_, _, err := Scan(buf.Bytes())
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestScan_SpannedEOCD(t *testing.T) {
	// a plain (non-zip64) EOCD that places the central directory on another disk.
	build := func() []byte {
		buf := &bytes.Buffer{}
		buf.Write(sigEOCD)
		writeLE(buf, uint16(0), uint16(1), uint16(0), uint16(3))
		writeLE(buf, uint32(0), uint32(0), uint16(0))
		return buf.Bytes()
	}

	_, _, err := Scan(build())
	assert.ErrorIs(t, err, ErrSpannedArchive)

	_, _, err = Scan(build(), func(o *Options) {
		o.AllowSpanned = true
	})
	assert.NoErrorf(t, err, "Scan() error = %v", err)
}
