// Package pngsplit carves individual PNG images out of a flat binary blob.
//
// Some providers answer with several PNGs bundled back-to-back (with
// arbitrary padding between them) rather than a JSON envelope. This package
// scans the raw bytes for PNG signature markers and each image's own IEND
// chunk, producing zero or more byte ranges. It is deliberately independent
// of any HTTP concerns.
package pngsplit

import "bytes"

var (
	// signature is the 8-byte PNG file signature (starts 89 50 4E 47).
	signature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	// iend is the IEND chunk type marker (49 45 4E 44).
	iend = []byte{0x49, 0x45, 0x4E, 0x44}
)

// iendTrailer covers the IEND chunk type plus its 4-byte CRC, which is the
// last byte of a well-formed PNG stream.
const iendTrailer = len("IEND") + 4

// Split returns every embedded PNG in data, in order of appearance. Each
// slice begins with the PNG signature and ends with its own IEND chunk. A
// signature with no terminating IEND chunk is dropped as truncated.
//
// The returned slices alias data; callers that outlive the buffer must copy.
func Split(data []byte) [][]byte {
	var images [][]byte

	for offset := 0; offset < len(data); {
		start := bytes.Index(data[offset:], signature)
		if start < 0 {
			break
		}
		start += offset

		end := bytes.Index(data[start:], iend)
		if end < 0 {
			break
		}
		end += start + iendTrailer
		if end > len(data) {
			// IEND present but the CRC is cut off.
			break
		}

		images = append(images, data[start:end])
		offset = end
	}

	return images
}

// Count returns the number of complete embedded PNGs without materializing
// the slices.
func Count(data []byte) int {
	return len(Split(data))
}
