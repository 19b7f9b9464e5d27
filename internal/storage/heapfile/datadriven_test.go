package heapfile

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/order"
	"github.com/gostonefire/blobheap/internal/storage"
	"github.com/gostonefire/blobheap/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// errName - Returns a short name of the kind of err for test output
func errName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, bherr.ErrCorruptionDetected):
		return "corruption detected"
	case errors.Is(err, bherr.ErrNoRecordFound):
		return "no record found"
	case errors.Is(err, bherr.ErrCorruptRecord):
		return "corrupt record"
	case errors.Is(err, bherr.ErrMalformedKey):
		return "malformed key"
	case errors.Is(err, bherr.ErrKeyLength):
		return "wrong key length"
	case errors.Is(err, bherr.ErrIO):
		return "i/o error"
	default:
		return err.Error()
	}
}

// describeLayout - Walks the heap file and describes every record, the end of file and the free list
func describeLayout(t *testing.T, hf *HeapFile) string {
	var sb strings.Builder

	validEnd, cause, err := storage.Walk(hf.heapFile, hf.keyLength, func(h model.RecordHeader) error {
		if h.IsGap() {
			fmt.Fprintf(&sb, "%d: gap len=%d\n", h.Offset, h.Length)
		} else {
			fmt.Fprintf(&sb, "%d: %s len=%d\n", h.Offset, utils.Printable(h.Key), h.Length)
		}
		return nil
	})
	require.NoError(t, err, "walk heap file")
	if cause != nil {
		fmt.Fprintf(&sb, "%d: %s\n", validEnd, errName(cause))
	}

	fileSize, err := storage.FileSize(hf.heapFile)
	require.NoError(t, err, "heap file size")
	fmt.Fprintf(&sb, "eof: %d\n", fileSize)

	gaps := hf.Gaps()
	if len(gaps) == 0 {
		sb.WriteString("free: none\n")
	} else {
		parts := make([]string, 0, len(gaps))
		for _, g := range gaps {
			parts = append(parts, fmt.Sprintf("%d/%d", g.Offset, g.Size))
		}
		fmt.Fprintf(&sb, "free: %s\n", strings.Join(parts, " "))
	}

	return sb.String()
}

// inputLines - Returns the non-empty lines of the command input
func inputLines(td *datadriven.TestData) (lines []string) {
	for _, line := range strings.Split(td.Input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return
}

func TestHeapFile_DataDriven(t *testing.T) {
	var hf *HeapFile
	var hfConf HeapFileConf
	defer func() {
		if hf != nil {
			_ = hf.Close()
		}
	}()

	datadriven.RunTest(t, "testdata/heap", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "open":
			if hf != nil {
				require.NoError(t, hf.Close())
			}
			keyLength, bufferMax := 12, 0
			td.MaybeScanArgs(t, "key-length", &keyLength)
			td.MaybeScanArgs(t, "buffer-max", &bufferMax)
			var ordering byteorder.ByteOrder = order.NewNaturalOrder()
			if td.HasArg("base64") {
				ordering = order.NewBase64Order()
			}
			hfConf = HeapFileConf{
				Path:            filepath.Join(t.TempDir(), "test.heap"),
				KeyLength:       int64(keyLength),
				ByteOrder:       ordering,
				BufferMax:       int64(bufferMax),
				AsyncIndexBuild: td.HasArg("async"),
				VerifySamples:   3,
				Logger:          zaptest.NewLogger(t).Sugar(),
			}
			var err error
			hf, err = NewHeapFile(hfConf)
			require.NoError(t, err, "new heap file")
			return "ok"

		case "reopen":
			require.NoError(t, hf.Close(), "close heap file")
			var err error
			hf, err = NewHeapFile(hfConf)
			require.NoError(t, err, "reopen heap file")
			source := "dump"
			if hf.indexRebuilds > 0 {
				source = "scan"
			}
			return fmt.Sprintf("index from %s, size=%d", source, hf.Size())

		case "put":
			var out []string
			for _, line := range inputLines(td) {
				key, payload, _ := strings.Cut(line, " ")
				if err := hf.Put([]byte(key), []byte(payload)); err != nil {
					out = append(out, fmt.Sprintf("%s: %s", key, errName(err)))
				}
			}
			if len(out) == 0 {
				return "ok"
			}
			return strings.Join(out, "\n")

		case "get":
			var out []string
			for _, key := range inputLines(td) {
				payload, err := hf.Get([]byte(key))
				if err != nil {
					out = append(out, fmt.Sprintf("%s: %s", key, errName(err)))
					continue
				}
				out = append(out, fmt.Sprintf("%s: %s", key, payload))
			}
			return strings.Join(out, "\n")

		case "remove":
			var out []string
			for _, key := range inputLines(td) {
				if err := hf.Remove([]byte(key)); err != nil {
					out = append(out, fmt.Sprintf("%s: %s", key, errName(err)))
				}
			}
			if len(out) == 0 {
				return "ok"
			}
			return strings.Join(out, "\n")

		case "keys":
			var from []byte
			if td.HasArg("from") {
				var s string
				td.ScanArgs(t, "from", &s)
				from = []byte(s)
			}
			ascending := !td.HasArg("desc")
			keys := hf.Keys
			if td.HasArg("rotating") {
				keys = hf.RotatingKeys
			}
			it, err := keys(ascending, from)
			require.NoError(t, err, "keys")
			var out []string
			for it.HasNext() {
				key, err := it.Next()
				require.NoError(t, err, "next key")
				out = append(out, string(key))
			}
			if len(out) == 0 {
				return "none"
			}
			return strings.Join(out, "\n")

		case "size":
			return fmt.Sprintf("%d", hf.Size())

		case "stat":
			stat, err := hf.Stat()
			require.NoError(t, err, "stat")
			return fmt.Sprintf("records=%d buffered=%d buffered-bytes=%d gaps=%d gap-bytes=%d file-size=%d",
				stat.Records, stat.BufferedRecords, stat.BufferedBytes, stat.Gaps, stat.GapBytes, stat.FileSize)

		case "layout":
			return describeLayout(t, hf)

		case "rebuild":
			require.NoError(t, hf.RebuildIndex(), "rebuild index")
			return fmt.Sprintf("size=%d", hf.Size())

		case "overwrite-key":
			var offset int
			var key string
			td.ScanArgs(t, "offset", &offset)
			td.ScanArgs(t, "key", &key)
			_, err := hf.heapFile.WriteAt([]byte(key), int64(offset)+4)
			require.NoError(t, err, "overwrite key")
			return "ok"

		default:
			return fmt.Sprintf("unknown command: %s", td.Cmd)
		}
	})
}
