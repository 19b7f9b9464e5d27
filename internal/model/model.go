package model

import "github.com/gostonefire/blobheap/internal/conf"

// RecordHeader - Represents the leading part of one record in the heap file as found when walking the file
//   - Offset is the position of the length field in the file
//   - Length is the value of the length field, i.e. the number of key and payload bytes
//   - Key is the stored key, it may be shorter than the configured key length for very small free records
type RecordHeader struct {
	Offset int64
	Length int32
	Key    []byte
}

// IsGap - Returns true if the record is a free record
func (R RecordHeader) IsGap() bool {
	return len(R.Key) > 0 && R.Key[0] == conf.GapMarker
}

// Footprint - Returns the total number of bytes the record occupies in the heap file
func (R RecordHeader) Footprint() int64 {
	return conf.LengthFieldBytes + int64(R.Length)
}

// End - Returns the offset of the record that follows this one
func (R RecordHeader) End() int64 {
	return R.Offset + R.Footprint()
}

// Gap - Represents one free record in the heap file. The bytes [Offset, Offset+4+Size) belong to it.
type Gap struct {
	Offset int64
	Size   int32
}

// End - Returns the offset directly after the gap
func (G Gap) End() int64 {
	return G.Offset + conf.LengthFieldBytes + int64(G.Size)
}

// Placement - Represents where a record was laid out in the heap file
type Placement struct {
	Key    []byte
	Offset int64
}

// HeapStat - Statistics on the usage of a heap file
//   - Records is the number of live records, buffered ones included
//   - BufferedRecords is the number of records waiting in the write buffer
//   - BufferedBytes is the number of payload bytes waiting in the write buffer
//   - Gaps is the number of free records in the heap file
//   - GapBytes is the number of bytes held by free records, length fields included
//   - FileSize is the current size of the heap file
//   - IndexRebuilds is the number of times the index has been rebuilt by scanning the heap file
type HeapStat struct {
	Records         int64
	BufferedRecords int64
	BufferedBytes   int64
	Gaps            int64
	GapBytes        int64
	FileSize        int64
	IndexRebuilds   int64
}
