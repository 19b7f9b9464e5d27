package conf

// LengthFieldBytes - Number of bytes of the length field in front of every record in the heap file
const LengthFieldBytes int64 = 4

// GapMarker - Value of the first key byte of a free record
const GapMarker byte = 0

// MaxRecordLength - Largest value the signed 32-bit record length field can hold
const MaxRecordLength int64 = 1<<31 - 1

// DefaultBufferMax - Default number of payload bytes held in the write buffer before it is flushed
const DefaultBufferMax int64 = 1024 * 512

// DefaultVerifySamples - Number of index entries checked against the heap file when a dump is used
const DefaultVerifySamples = 3

// FingerprintLength - Number of characters of the heap file fingerprint used in index dump file names
const FingerprintLength = 12

// FingerprintSampleBytes - Number of bytes read from each end of the heap file to compute its fingerprint
const FingerprintSampleBytes int64 = 64 * 1024

// IndexFileSuffix - File name suffix of index dump files
const IndexFileSuffix = ".idx"

// IndexFileMagic - First bytes of an index dump file
const IndexFileMagic = "BHIX"

// IndexFileVersion - Version of the index dump file layout
const IndexFileVersion uint8 = 1
