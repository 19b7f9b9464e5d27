package index

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/conf"
)

// Fingerprint - Returns a short digest of the heap file that tells whether an index dump belongs to it.
// The digest covers the file size and up to conf.FingerprintSampleBytes from each end of the file, so that it can be
// computed quickly also for large files.
//   - heapPath is the path of the heap file
//
// It returns:
//   - fp which is a hex string of conf.FingerprintLength characters
//   - err which is an i/o error from reading the heap file
func Fingerprint(heapPath string) (fp string, err error) {
	f, err := os.Open(heapPath)
	if err != nil {
		err = bherr.IOErrorf(err, "open heap file %s for fingerprint", heapPath)
		return
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		err = bherr.IOErrorf(err, "stat heap file %s for fingerprint", heapPath)
		return
	}
	size := stat.Size()

	digest := xxhash.New()
	_, _ = digest.Write(binary.BigEndian.AppendUint64(nil, uint64(size)))

	head := min(size, conf.FingerprintSampleBytes)
	tail := min(size-head, conf.FingerprintSampleBytes)

	buf := make([]byte, head+tail)
	if _, err = f.ReadAt(buf[:head], 0); err != nil {
		err = bherr.IOErrorf(err, "read head of heap file %s for fingerprint", heapPath)
		return
	}
	if _, err = f.ReadAt(buf[head:], size-tail); err != nil {
		err = bherr.IOErrorf(err, "read tail of heap file %s for fingerprint", heapPath)
		return
	}
	_, _ = digest.Write(buf)

	fp = hex.EncodeToString(binary.BigEndian.AppendUint64(nil, digest.Sum64()))[:conf.FingerprintLength]

	return
}

// DumpFileName - Returns the path of the index dump file for a heap file with the given fingerprint
func DumpFileName(heapPath, fp string) string {
	return heapPath + "." + fp + conf.IndexFileSuffix
}

// isDumpFileName - Returns true if name is the base name of an index dump file of the heap file named base
func isDumpFileName(base, name string) bool {
	return len(name) == len(base)+1+conf.FingerprintLength+len(conf.IndexFileSuffix) &&
		strings.HasPrefix(name, base+".") &&
		strings.HasSuffix(name, conf.IndexFileSuffix)
}

// RemoveStaleDumps - Removes every index dump file of the heap file except the one at keep
//   - heapPath is the path of the heap file
//   - keep is the path of a dump file to leave in place, empty to remove all
//
// It returns:
//   - removed which holds the paths of the removed files
//   - err which is an i/o error from listing the directory or removing a file
func RemoveStaleDumps(heapPath, keep string) (removed []string, err error) {
	dir, base := filepath.Dir(heapPath), filepath.Base(heapPath)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		err = bherr.IOErrorf(err, "list directory %s", dir)
		return
	}

	for _, de := range dirEntries {
		if de.IsDir() || !isDumpFileName(base, de.Name()) {
			continue
		}
		path := filepath.Join(dir, de.Name())
		if keep != "" && filepath.Clean(path) == filepath.Clean(keep) {
			continue
		}
		if err = os.Remove(path); err != nil {
			err = bherr.IOErrorf(err, "remove stale index dump %s", path)
			return
		}
		removed = append(removed, path)
	}

	return
}
