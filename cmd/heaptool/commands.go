package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/storage"
	"github.com/gostonefire/blobheap/internal/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	keysReverse bool
	keysFrom    string
	keysLimit   int
)

var scanCmd = &cobra.Command{
	Use:   "scan <heap-file>",
	Short: "list every record and gap of a heap file",
	Long: `
Walks the heap file from the start without opening it as a heap, so nothing is
changed. A record that can not be valid ends the walk and is reported last.
`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var keysCmd = &cobra.Command{
	Use:   "keys <heap-file>",
	Short: "list the keys of a heap file in key order",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeys,
}

var getCmd = &cobra.Command{
	Use:   "get <heap-file> <key>",
	Short: "print the payload stored for a key",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var statCmd = &cobra.Command{
	Use:   "stat <heap-file>",
	Short: "print usage statistics of a heap file",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var putCmd = &cobra.Command{
	Use:   "put <heap-file> <key> <payload>",
	Short: "store a payload for a key",
	Args:  cobra.ExactArgs(3),
	RunE:  runPut,
}

var removeCmd = &cobra.Command{
	Use:   "remove <heap-file> <key>...",
	Short: "remove the records of one or more keys",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRemove,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <heap-file>",
	Short: "rebuild the index by scanning the heap file, cutting off a torn record at its end",
	Args:  cobra.ExactArgs(1),
	RunE:  runRebuild,
}

func runScan(cmd *cobra.Command, args []string) (err error) {
	f, err := storage.OpenHeapFileReadOnly(args[0])
	if err != nil {
		return
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	tbl := tablewriter.NewWriter(cmd.OutOrStdout())
	tbl.SetHeader([]string{"Offset", "Length", "Kind", "Key"})

	var records, gaps int
	validEnd, cause, err := storage.Walk(f, keyLength, func(h model.RecordHeader) error {
		if h.IsGap() {
			gaps++
			tbl.Append([]string{fmt.Sprintf("%d", h.Offset), fmt.Sprintf("%d", h.Length), "gap", ""})
			return nil
		}
		records++
		tbl.Append([]string{fmt.Sprintf("%d", h.Offset), fmt.Sprintf("%d", h.Length), "record", utils.Printable(h.Key)})
		return nil
	})
	if err != nil {
		return
	}
	if cause != nil {
		tbl.Append([]string{fmt.Sprintf("%d", validEnd), "", "invalid", cause.Error()})
	}
	tbl.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d records, %d gaps, valid up to %d\n", records, gaps, validEnd)

	return
}

func runKeys(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) (err error) {
		var from []byte
		if keysFrom != "" {
			from = []byte(keysFrom)
		}

		it, err := bh.Keys(!keysReverse, from)
		if err != nil {
			return
		}

		for n := 0; it.HasNext() && (keysLimit <= 0 || n < keysLimit); n++ {
			var key []byte
			key, err = it.Next()
			if err != nil {
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), utils.Printable(key))
		}

		return
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) (err error) {
		payload, err := bh.Get([]byte(args[1]))
		if err != nil {
			return
		}

		_, err = cmd.OutOrStdout().Write(payload)

		return
	})
}

func runStat(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) (err error) {
		stat, err := bh.Stat()
		if err != nil {
			return
		}

		tbl := tablewriter.NewWriter(cmd.OutOrStdout())
		tbl.SetHeader([]string{"Statistic", "Value"})
		tbl.Append([]string{"records", fmt.Sprintf("%d", stat.Records)})
		tbl.Append([]string{"gaps", fmt.Sprintf("%d", stat.Gaps)})
		tbl.Append([]string{"gap bytes", fmt.Sprintf("%d", stat.GapBytes)})
		tbl.Append([]string{"file size", fmt.Sprintf("%d", stat.FileSize)})
		tbl.Append([]string{"index rebuilds", fmt.Sprintf("%d", stat.IndexRebuilds)})
		tbl.Render()

		return
	})
}

func runPut(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) error {
		return bh.Put([]byte(args[1]), []byte(args[2]))
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) (err error) {
		for _, key := range args[1:] {
			if !bh.Has([]byte(key)) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no record\n", key)
				continue
			}
			err = bh.Remove([]byte(key))
			if err != nil {
				return errors.Wrapf(err, "remove %s", key)
			}
		}

		return
	})
}

func runRebuild(cmd *cobra.Command, args []string) error {
	return withHeap(args[0], func(bh *blobheap.BlobHeap) (err error) {
		err = bh.RebuildIndex()
		if err != nil {
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d records indexed\n", bh.Size())

		return
	})
}
