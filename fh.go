package zipdir

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FileHeader is one central directory file header, holding a stored file's metadata and the offset of its local
// file header.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH).
type FileHeader struct {
	// CreatorVersion is the "version made by" field.
	CreatorVersion uint16
	// ReaderVersion is the minimum version needed to extract.
	ReaderVersion uint16
	// Flags is the general purpose bit flag; see Encrypted and IsUTF8 for the two bits this package interprets.
	Flags uint16
	// Method is the compression method. A collaborator uses it to pick the decompression codec; this package
	// never inflates anything.
	Method uint16
	// ModifiedTime and ModifiedDate are the raw MS-DOS time and date fields.
	ModifiedTime uint16
	ModifiedDate uint16
	// Modified is ModifiedDate plus ModifiedTime as wall-clock time, with 2s resolution.
	Modified time.Time
	// CRC32 is the checksum of the uncompressed content.
	CRC32 uint32
	// CompressedSize and UncompressedSize are the raw 32-bit size fields, 0xffffffff when the true size lives in
	// the zip64 extra field.
	CompressedSize   uint32
	UncompressedSize uint32
	// CompressedSize64 and UncompressedSize64 are the usable sizes, resolved from the zip64 extra field whenever
	// the 32-bit fields hold the sentinel.
	CompressedSize64   uint64
	UncompressedSize64 uint64
	// DiskNumber is the disk number where the file starts.
	//
	// Since floppy disks aren't a thing anymore, this field is most likely unused.
	DiskNumber uint16
	// InternalAttrs and ExternalAttrs are the internal and external file attributes.
	InternalAttrs uint16
	ExternalAttrs uint32
	// Offset is the relative offset of the local file header, resolved from the zip64 extra field whenever the
	// 32-bit field holds the sentinel.
	Offset uint64
	// Name is the file name, decoded as UTF-8 if IsUTF8 and through code page 437 otherwise.
	Name string
	// Extra is the raw extra field. It aliases the archive buffer.
	Extra []byte
	// Comment is the raw file comment. It aliases the archive buffer.
	Comment []byte
}

// Encrypted reports flag bit 0. The flag is surfaced, never acted upon; decryption is a collaborator's business.
func (fh *FileHeader) Encrypted() bool {
	return fh.Flags&0x1 != 0
}

// IsUTF8 reports flag bit 11, which declares Name and Comment to be UTF-8 encoded.
func (fh *FileHeader) IsUTF8() bool {
	return fh.Flags&0x800 != 0
}

// fhFixedSize counts the file header's signature and fixed fields.
const fhFixedSize = 46

// parseFileHeader decodes one central directory file header from the front of *data, advancing the cursor past all
// consumed bytes so the next header parses from the same cursor.
func parseFileHeader(data *[]byte) (fh FileHeader, err error) {
	b := *data
	if len(b) < fhFixedSize {
		return fh, fmt.Errorf("%w: needs at least %d bytes, got %d", ErrInvalidFileHeader, fhFixedSize, len(b))
	}
	if !bytes.Equal(b[:4], sigCDFH) {
		return fh, fmt.Errorf("%w: mismatched signature, got 0x%x, expected 0x%x", ErrInvalidFileHeader, binary.LittleEndian.Uint32(b[:4]), binary.LittleEndian.Uint32(sigCDFH))
	}

	b = b[4:]
	fh.CreatorVersion = u16(&b)
	fh.ReaderVersion = u16(&b)
	fh.Flags = u16(&b)
	fh.Method = u16(&b)
	fh.ModifiedTime = u16(&b)
	fh.ModifiedDate = u16(&b)
	fh.CRC32 = u32(&b)
	fh.CompressedSize = u32(&b)
	fh.UncompressedSize = u32(&b)
	n := int(u16(&b))
	m := int(u16(&b))
	k := int(u16(&b))
	fh.DiskNumber = u16(&b)
	fh.InternalAttrs = u16(&b)
	fh.ExternalAttrs = u32(&b)
	fh.Offset = uint64(u32(&b))

	if n+m+k > len(b) {
		return fh, fmt.Errorf("%w: variable-size data needs %d bytes, got %d", ErrMalformedRecord, n+m+k, len(b))
	}
	nameRaw := b[:n]
	fh.Extra = b[n : n+m]
	fh.Comment = b[n+m : n+m+k]
	*data = b[n+m+k:]

	fh.Modified = msDosTimeToTime(fh.ModifiedDate, fh.ModifiedTime)
	fh.CompressedSize64 = uint64(fh.CompressedSize)
	fh.UncompressedSize64 = uint64(fh.UncompressedSize)
	if err = fh.resolveZip64Extra(); err != nil {
		return fh, err
	}

	if fh.IsUTF8() {
		if !utf8.Valid(nameRaw) {
			return fh, fmt.Errorf("%w: %q", ErrTextDecoding, nameRaw)
		}
		fh.Name = string(nameRaw)
	} else {
		// code page 437 has a character for every byte value so this never fails.
		name, _ := charmap.CodePage437.NewDecoder().Bytes(nameRaw)
		fh.Name = string(name)
	}

	return fh, nil
}

const zip64ExtraTag = 0x0001

// resolveZip64Extra reads the zip64 extended-information extra field to replace any 32-bit field holding the zip64
// sentinel. The field stores replacements only for the saturated fields, in a fixed order: uncompressed size,
// compressed size, local header offset, then disk number.
func (fh *FileHeader) resolveZip64Extra() error {
	b := fh.Extra
	for len(b) >= 4 {
		tag := u16(&b)
		size := int(u16(&b))
		if size > len(b) {
			return fmt.Errorf("%w: extra field tag 0x%04x declares %d bytes, got %d", ErrMalformedRecord, tag, size, len(b))
		}
		if tag != zip64ExtraTag {
			b = b[size:]
			continue
		}

		v := b[:size]
		if fh.UncompressedSize == 0xffffffff {
			if len(v) < 8 {
				return fmt.Errorf("%w: zip64 extra field too short for uncompressed size", ErrMalformedRecord)
			}
			fh.UncompressedSize64 = u64(&v)
		}
		if fh.CompressedSize == 0xffffffff {
			if len(v) < 8 {
				return fmt.Errorf("%w: zip64 extra field too short for compressed size", ErrMalformedRecord)
			}
			fh.CompressedSize64 = u64(&v)
		}
		if fh.Offset == 0xffffffff {
			if len(v) < 8 {
				return fmt.Errorf("%w: zip64 extra field too short for local header offset", ErrMalformedRecord)
			}
			fh.Offset = u64(&v)
		}
		return nil
	}

	return nil
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
// The resolution is 2s.
// See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
//
// taken from https://go.dev/src/archive/zip/struct.go.
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}
