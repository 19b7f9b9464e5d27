package storage

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
)

// OpenHeapFile - Opens the heap file for reading and writing, creating an empty one if it does not exist
func OpenHeapFile(fileName string) (f *os.File, err error) {
	f, err = os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		f = nil
		err = bherr.IOErrorf(err, "open/create heap file %s", fileName)
	}

	return
}

// OpenHeapFileReadOnly - Opens an existing heap file for reading only
func OpenHeapFileReadOnly(fileName string) (f *os.File, err error) {
	f, err = os.OpenFile(fileName, os.O_RDONLY, 0644)
	if err != nil {
		f = nil
		err = bherr.IOErrorf(err, "open heap file %s", fileName)
	}

	return
}

// CloseFile - Syncs and closes the heap file
func CloseFile(f *os.File) (err error) {
	if f == nil {
		return
	}

	err = errors.CombineErrors(f.Sync(), f.Close())
	if err != nil {
		err = bherr.IOErrorf(err, "close heap file %s", f.Name())
	}

	return
}

// RemoveFile - Removes the file, make sure to close it first before calling this function
func RemoveFile(fileName string) (err error) {
	// Only try to remove if exists, and is not by accident a directory
	if stat, ok := os.Stat(fileName); ok == nil {
		if !stat.IsDir() {
			err = os.Remove(fileName)
			if err != nil {
				err = bherr.IOErrorf(err, "remove file %s", fileName)
				return
			}
		}
	}

	return
}
