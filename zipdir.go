// Package zipdir reads the metadata trailer of a ZIP archive held in memory.
//
// The package locates and decodes the end of central directory record (EOCD), its zip64 extensions, and the
// central directory file headers describing each stored file. It never touches file contents: decompression,
// extraction, and acquiring the buffer in the first place (typically by memory-mapping the file) are the caller's
// business.
//
// All byte-slice fields of the returned records alias the input buffer, so the buffer must outlive them and must
// not be mutated once parsing begins. Under that discipline, any number of goroutines may Scan the same buffer
// concurrently without synchronisation; parsing keeps no internal state.
package zipdir

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// Options customises Scan.
type Options struct {
	// AllowSpanned disables the rejection of spanned (multi-disk) archives.
	//
	// By default, Scan returns ErrSpannedArchive when the disk fields place any part of the central directory
	// on another disk. This package can only see the one buffer it is given, so a spanned archive would
	// otherwise be silently mis-parsed. Set AllowSpanned if you know the archive is whole despite what its disk
	// fields claim.
	AllowSpanned bool
}

// Directory describes where the central directory lives and how to iterate it.
type Directory struct {
	// EOCD is the end of central directory record as read from the buffer, sentinel values and all.
	EOCD EOCDRecord
	// Zip64Locator and Zip64EOCD are non-nil only if the EOCD held zip64 sentinel values.
	Zip64Locator *Zip64Locator
	Zip64EOCD    *Zip64EOCDRecord
	// CDCount, CDSize and CDOffset are the zip64-corrected entry count and central directory size and offset,
	// usable without re-applying any sentinel logic.
	CDCount  uint64
	CDSize   uint64
	CDOffset uint64
}

// Scan parses buf, which must hold one entire ZIP archive, for its central directory.
//
// Returns the directory summary, an iterator over the central directory file headers, and any error from locating
// and parsing the end of central directory records. Errors from parsing individual file headers are yielded
// in-band by the iterator, which stops at the first error.
//
// A collaborator seeks to each FileHeader.Offset to reach the local file header and picks a decompression codec
// from FileHeader.Method; none of that happens here.
func Scan(buf []byte, optFns ...func(*Options)) (Directory, iter.Seq2[FileHeader, error], error) {
	opts := &Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	d, err := findDirectory(buf, opts)
	if err != nil {
		return d, nil, err
	}

	offset, err := toInt(d.CDOffset)
	if err != nil {
		return d, nil, err
	}
	size, err := toInt(d.CDSize)
	if err != nil {
		return d, nil, err
	}
	if offset > len(buf) || size > len(buf)-offset {
		return d, nil, fmt.Errorf("%w: central directory at %d spanning %d bytes extends past %d buffered bytes", ErrMalformedRecord, offset, size, len(buf))
	}

	return d, func(yield func(FileHeader, error) bool) {
		cd := buf[offset : offset+size]
		for i := uint64(0); i < d.CDCount; i++ {
			fh, err := parseFileHeader(&cd)
			if err != nil {
				yield(FileHeader{}, err)
				return
			}
			if !yield(fh, nil) {
				return
			}
		}
	}, nil
}

// findDirectory locates and parses the EOCD, consulting the zip64 records only when the EOCD holds sentinel
// values.
func findDirectory(buf []byte, opts *Options) (d Directory, err error) {
	i, err := findEOCD(buf)
	if err != nil {
		return d, err
	}
	if d.EOCD, err = parseEOCD(buf[i:]); err != nil {
		return d, err
	}

	d.CDCount = uint64(d.EOCD.CDCount)
	d.CDSize = uint64(d.EOCD.CDSize)
	d.CDOffset = uint64(d.EOCD.CDOffset)

	if d.EOCD.CDCount == 0xffff || d.EOCD.CDCountOnDisk == 0xffff || d.EOCD.CDSize == 0xffffffff || d.EOCD.CDOffset == 0xffffffff {
		if err = resolveZip64(buf, i, &d); err != nil {
			return d, err
		}
	}

	if !opts.AllowSpanned {
		if err = rejectSpanned(&d); err != nil {
			return d, err
		}
	}

	return d, nil
}

// resolveZip64 reads the zip64 locator sitting immediately before the EOCD at eocdOffset, then the zip64 EOCD it
// points at, replacing d's count/size/offset with the 64-bit values.
func resolveZip64(buf []byte, eocdOffset int, d *Directory) error {
	if eocdOffset < zip64LocatorSize {
		return fmt.Errorf("%w: EOCD holds zip64 sentinel values but has no room for a zip64 locator", ErrMalformedRecord)
	}

	end := eocdOffset - zip64LocatorSize
	if d.Zip64Locator = parseZip64Locator(buf[end:eocdOffset]); d.Zip64Locator == nil {
		return fmt.Errorf("%w: EOCD holds zip64 sentinel values but the zip64 locator is missing", ErrMalformedRecord)
	}

	hint, err := toInt(d.Zip64Locator.EOCDOffset)
	if err != nil {
		return err
	}
	j, err := findZip64EOCD(buf[:end], hint)
	if err != nil {
		return err
	}

	r, err := parseZip64EOCD(buf[j:end])
	if err != nil {
		return err
	}

	d.Zip64EOCD = &r
	d.CDCount = r.CDCount
	d.CDSize = r.CDSize
	d.CDOffset = r.CDOffset
	return nil
}

// rejectSpanned returns ErrSpannedArchive if the disk fields place any part of the central directory on a disk
// other than the one being read.
func rejectSpanned(d *Directory) error {
	if l := d.Zip64Locator; l != nil && l.Disks > 1 {
		return fmt.Errorf("%w: zip64 locator reports %d disks", ErrSpannedArchive, l.Disks)
	}

	if r := d.Zip64EOCD; r != nil {
		if r.DiskNumber != r.CDDisk || r.CDCountOnDisk != r.CDCount {
			return fmt.Errorf("%w: central directory is on disk %d with %d of %d records, reading disk %d", ErrSpannedArchive, r.CDDisk, r.CDCountOnDisk, r.CDCount, r.DiskNumber)
		}
		return nil
	}

	if r := d.EOCD; r.DiskNumber != r.CDDisk || r.CDCountOnDisk != r.CDCount {
		return fmt.Errorf("%w: central directory is on disk %d with %d of %d records, reading disk %d", ErrSpannedArchive, r.CDDisk, r.CDCountOnDisk, r.CDCount, r.DiskNumber)
	}
	return nil
}

var (
	sigEOCD         = make([]byte, 4)
	sigZip64EOCD    = make([]byte, 4)
	sigZip64Locator = make([]byte, 4)
	sigCDFH         = make([]byte, 4)
)

func init() {
	binary.LittleEndian.PutUint32(sigEOCD, 0x06054b50)
	binary.LittleEndian.PutUint32(sigZip64EOCD, 0x06064b50)
	binary.LittleEndian.PutUint32(sigZip64Locator, 0x07064b50)
	binary.LittleEndian.PutUint32(sigCDFH, 0x02014b50)
}
