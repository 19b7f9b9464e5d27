package blobheap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector - A prometheus.Collector exporting the statistics of a heap, each metric is labeled with the heap file name.
// Nothing is exported while the heap is closed.
type Collector struct {
	blobHeap        *BlobHeap
	records         *prometheus.Desc
	bufferedRecords *prometheus.Desc
	bufferedBytes   *prometheus.Desc
	gaps            *prometheus.Desc
	gapBytes        *prometheus.Desc
	fileSize        *prometheus.Desc
	indexRebuilds   *prometheus.Desc
}

// NewCollector - Returns a pointer to a new Collector for blobHeap, register it with a prometheus.Registerer
func NewCollector(blobHeap *BlobHeap) *Collector {
	labels := prometheus.Labels{"heap": blobHeap.Name()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("blobheap", "", name), help, nil, labels)
	}

	return &Collector{
		blobHeap:        blobHeap,
		records:         desc("records", "Number of records, buffered ones included."),
		bufferedRecords: desc("buffered_records", "Number of records waiting in the write buffer."),
		bufferedBytes:   desc("buffered_bytes", "Number of payload bytes waiting in the write buffer."),
		gaps:            desc("gaps", "Number of free records in the heap file."),
		gapBytes:        desc("gap_bytes", "Number of bytes held by free records."),
		fileSize:        desc("file_size_bytes", "Size of the heap file."),
		indexRebuilds:   desc("index_rebuilds_total", "Number of times the index was rebuilt by scanning the heap file."),
	}
}

// Describe - Sends the descriptors of all metrics to ch
func (C *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- C.records
	ch <- C.bufferedRecords
	ch <- C.bufferedBytes
	ch <- C.gaps
	ch <- C.gapBytes
	ch <- C.fileSize
	ch <- C.indexRebuilds
}

// Collect - Sends the current statistics of the heap to ch
func (C *Collector) Collect(ch chan<- prometheus.Metric) {
	stat, err := C.blobHeap.Stat()
	if err != nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(C.records, prometheus.GaugeValue, float64(stat.Records))
	ch <- prometheus.MustNewConstMetric(C.bufferedRecords, prometheus.GaugeValue, float64(stat.BufferedRecords))
	ch <- prometheus.MustNewConstMetric(C.bufferedBytes, prometheus.GaugeValue, float64(stat.BufferedBytes))
	ch <- prometheus.MustNewConstMetric(C.gaps, prometheus.GaugeValue, float64(stat.Gaps))
	ch <- prometheus.MustNewConstMetric(C.gapBytes, prometheus.GaugeValue, float64(stat.GapBytes))
	ch <- prometheus.MustNewConstMetric(C.fileSize, prometheus.GaugeValue, float64(stat.FileSize))
	ch <- prometheus.MustNewConstMetric(C.indexRebuilds, prometheus.CounterValue, float64(stat.IndexRebuilds))
}
