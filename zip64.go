package zipdir

import (
	"bytes"
	"fmt"
)

// Zip64Locator models the zip64 end of central directory locator, the fixed 20-byte record immediately preceding
// the EOCD in a zip64 archive.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#ZIP64.
type Zip64Locator struct {
	// CDDisk is the disk holding the start of the zip64 end of central directory record.
	CDDisk uint32
	// EOCDOffset is the offset of the zip64 end of central directory record, relative to the start of the
	// archive.
	EOCDOffset uint64
	// Disks is the total number of disks.
	Disks uint32
}

const (
	zip64LocatorSize   = 20
	zip64EOCDFixedSize = 56
)

// parseZip64Locator parses the zip64 EOCD locator from data.
//
// Returns nil if the signature is absent or data is too short to hold the record: most archives are not zip64 and
// carry no locator, so absence is not an error.
func parseZip64Locator(data []byte) *Zip64Locator {
	if len(data) < zip64LocatorSize || !bytes.Equal(data[:4], sigZip64Locator) {
		return nil
	}

	data = data[4:]
	l := &Zip64Locator{}
	l.CDDisk = u32(&data)
	l.EOCDOffset = u64(&data)
	l.Disks = u32(&data)
	return l
}

// findZip64EOCD returns the offset of the first zip64 EOCD signature in buf at or after hint.
//
// hint comes from Zip64Locator.EOCDOffset. Some writers pad or misalign that pointer, so the signature is searched
// forward from there instead of being trusted outright.
func findZip64EOCD(buf []byte, hint int) (int, error) {
	if hint < len(buf) {
		if i := bytes.Index(buf[hint:], sigZip64EOCD); i != -1 {
			return hint + i, nil
		}
	}
	return 0, ErrNoZip64EOCDFound
}

// Zip64EOCDRecord models the zip64 end of central directory record, the wide-field counterpart of EOCDRecord.
type Zip64EOCDRecord struct {
	// CreatorVersion is the "version made by" field.
	CreatorVersion uint16
	// ReaderVersion is the minimum version needed to extract.
	ReaderVersion uint16
	// DiskNumber is the number of this disk.
	DiskNumber uint32
	// CDDisk is the disk where the central directory starts.
	CDDisk uint32
	// CDCountOnDisk is the number of central directory records on this disk.
	CDCountOnDisk uint64
	// CDCount is the total number of central directory records.
	CDCount uint64
	// CDSize is the size of the central directory in bytes.
	CDSize uint64
	// CDOffset is the offset of the start of the central directory, relative to the start of the archive.
	CDOffset uint64
	// ExtensibleData is the zip64 extensible data sector, aliasing the archive buffer. Its contents are
	// vendor-defined and left opaque.
	ExtensibleData []byte
}

// parseZip64EOCD parses a Zip64EOCDRecord from data, which must span from the signature to the end of the record
// (the byte just before the zip64 locator).
func parseZip64EOCD(data []byte) (r Zip64EOCDRecord, err error) {
	if len(data) < zip64EOCDFixedSize {
		return r, fmt.Errorf("%w: zip64 EOCD needs at least %d bytes, got %d", ErrMalformedRecord, zip64EOCDFixedSize, len(data))
	}
	if !bytes.Equal(data[:4], sigZip64EOCD) {
		return r, fmt.Errorf("%w: mismatched zip64 EOCD signature", ErrMalformedRecord)
	}

	data = data[4:]
	size, err := toInt(u64(&data))
	if err != nil {
		return r, err
	}
	r.CreatorVersion = u16(&data)
	r.ReaderVersion = u16(&data)
	r.DiskNumber = u32(&data)
	r.CDDisk = u32(&data)
	r.CDCountOnDisk = u64(&data)
	r.CDCount = u64(&data)
	r.CDSize = u64(&data)
	r.CDOffset = u64(&data)

	// APPNOTE 4.3.14.1: the size field counts the record minus its leading 12 bytes, so size+12-56 is the
	// length of the extensible data sector. A size field that disagrees with the actual record boundary would
	// let the sector alias adjacent directory bytes, so both directions are checked.
	if size < zip64EOCDFixedSize-12 {
		return r, fmt.Errorf("%w: zip64 EOCD declares size %d, smaller than its own fixed fields", ErrMalformedRecord, size)
	}
	if n := size - (zip64EOCDFixedSize - 12); n != len(data) {
		return r, fmt.Errorf("%w: zip64 EOCD declares %d bytes of extensible data, got %d", ErrMalformedRecord, n, len(data))
	}

	r.ExtensibleData = data
	return r, nil
}
