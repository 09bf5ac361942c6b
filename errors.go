package zipdir

import "errors"

var (
	// ErrNoEOCDFound is returned if no EOCD signature was found; most likely not a ZIP file, or a truncated one.
	ErrNoEOCDFound = errors.New("end of central directory not found; most likely not a ZIP file")
	// ErrNoZip64EOCDFound is returned if the zip64 EOCD locator points at a region that contains no zip64 EOCD
	// signature.
	ErrNoZip64EOCDFound = errors.New("zip64 end of central directory not found")
	// ErrMalformedRecord is returned when a record's internal length or size fields disagree with the bytes
	// actually present.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidFileHeader is returned when a central directory file header does not start with its signature,
	// either because the directory is corrupt or because the EOCD declared more entries than exist.
	ErrInvalidFileHeader = errors.New("invalid central directory file header")
	// ErrTextDecoding is returned when a file name is flagged as UTF-8 but does not hold valid UTF-8.
	ErrTextDecoding = errors.New("file name is not valid UTF-8")
	// ErrSizeOverflow is returned when a 64-bit length or offset cannot be indexed on this platform.
	ErrSizeOverflow = errors.New("size overflows platform int")
	// ErrSpannedArchive is returned by Scan for spanned (multi-disk) archives unless Options.AllowSpanned is set.
	ErrSpannedArchive = errors.New("spanned (multi-disk) archives are not supported")
)
