package zipdir

import (
	"bytes"
	"fmt"
)

// EOCDRecord models the end of central directory record of a ZIP file.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type EOCDRecord struct {
	// DiskNumber is the number of this disk (or 0xffff for ZIP64).
	DiskNumber uint16
	// CDDisk is the disk where the central directory starts (or 0xffff for ZIP64).
	CDDisk uint16
	// CDCountOnDisk is the number of central directory records on this disk (or 0xffff for ZIP64).
	CDCountOnDisk uint16
	// CDCount is the total number of central directory records (or 0xffff for ZIP64).
	CDCount uint16
	// CDSize is the size of the central directory in bytes (or 0xffffffff for ZIP64).
	CDSize uint32
	// CDOffset is the offset of the start of the central directory, relative to the start of the archive
	// (or 0xffffffff for ZIP64).
	CDOffset uint32
	// Comment is the comment section of the EOCD. It aliases the archive buffer.
	Comment []byte
}

// eocdFixedSize counts the EOCD's signature, fixed fields, and comment length field.
const eocdFixedSize = 22

// findEOCD returns the offset of the last EOCD signature in buf.
//
// The EOCD sits at a variable distance from the end of the buffer because up to 65535 bytes of archive comment may
// follow it, so the only correct search runs backwards from the tail.
func findEOCD(buf []byte) (int, error) {
	if i := bytes.LastIndex(buf, sigEOCD); i != -1 {
		return i, nil
	}
	return 0, ErrNoEOCDFound
}

// parseEOCD parses an EOCDRecord from data, which must begin at the signature.
//
// The signature is checked again even though findEOCD already matched it; a crafted buffer could slip a near-match
// in between the search and the parse.
func parseEOCD(data []byte) (r EOCDRecord, err error) {
	if len(data) < eocdFixedSize {
		return r, fmt.Errorf("%w: EOCD needs at least %d bytes, got %d", ErrMalformedRecord, eocdFixedSize, len(data))
	}
	if !bytes.Equal(data[:4], sigEOCD) {
		return r, fmt.Errorf("%w: mismatched EOCD signature", ErrMalformedRecord)
	}

	data = data[4:]
	r.DiskNumber = u16(&data)
	r.CDDisk = u16(&data)
	r.CDCountOnDisk = u16(&data)
	r.CDCount = u16(&data)
	r.CDSize = u32(&data)
	r.CDOffset = u32(&data)

	n, err := toInt(uint64(u16(&data)))
	if err != nil {
		return r, err
	}
	if n > len(data) {
		return r, fmt.Errorf("%w: EOCD comment length %d exceeds %d remaining bytes", ErrMalformedRecord, n, len(data))
	}

	r.Comment = data[:n]
	return r, nil
}
