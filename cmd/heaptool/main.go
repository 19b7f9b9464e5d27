package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	keyLength int64
	ordering  string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "heaptool [command] (flags)",
	Short: "blob heap inspection and repair tool",
	Long: `
Inspects and repairs heap files of variable length records with fixed length keys.
The key length and ordering must be the ones the heap file was written with.
`,
	SilenceUsage: true,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		scanCmd,
		keysCmd,
		getCmd,
		statCmd,
		putCmd,
		removeCmd,
		rebuildCmd,
	)

	rootCmd.PersistentFlags().Int64VarP(
		&keyLength, "key-length", "k", 12, "fixed length of keys in the heap file")
	rootCmd.PersistentFlags().StringVar(
		&ordering, "order", "natural", "ordering of keys, natural or base64")
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable logging from the heap")

	keysCmd.Flags().BoolVarP(
		&keysReverse, "reverse", "r", false, "list keys in descending order")
	keysCmd.Flags().StringVar(
		&keysFrom, "from", "", "key to start listing at")
	keysCmd.Flags().IntVarP(
		&keysLimit, "limit", "n", 0, "maximum number of keys to list (0 means all)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// byteOrder - Returns the key ordering named by the --order flag
func byteOrder() (order byteorder.ByteOrder, err error) {
	switch ordering {
	case "natural":
		order = byteorder.Natural()
	case "base64":
		order = byteorder.Base64()
	default:
		err = errors.Newf("unknown order %q, use natural or base64", ordering)
	}

	return
}

// newLogger - Returns a development logger if --verbose is set, otherwise a logger that discards everything
func newLogger() (logger *zap.Logger, err error) {
	if !verbose {
		logger = zap.NewNop()
		return
	}

	return zap.NewDevelopment()
}

// openHeap - Opens the heap file at path with the key length and ordering given by flags. Records are written
// directly to the heap file since every command closes the heap before it exits.
func openHeap(path string) (bh *blobheap.BlobHeap, err error) {
	order, err := byteOrder()
	if err != nil {
		return
	}

	logger, err := newLogger()
	if err != nil {
		return
	}

	return blobheap.Open(blobheap.Conf{
		Path:      path,
		KeyLength: keyLength,
		ByteOrder: order,
		Logger:    logger,
	})
}

// withHeap - Opens the heap file at path, runs fn and closes the heap
func withHeap(path string, fn func(bh *blobheap.BlobHeap) error) (err error) {
	bh, err := openHeap(path)
	if err != nil {
		return
	}

	return errors.CombineErrors(fn(bh), bh.Close())
}
