package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/zipdir"
	"github.com/schollz/progressbar/v3"
	"github.com/valyala/bytebufferpool"
)

var opts struct {
	AllowSpanned bool `long:"allow-spanned" description:"parse spanned (multi-disk) archives as if they were whole"`
	Args         struct {
		File flags.Filename `positional-arg-name:"file" description:"the ZIP file whose central directory is printed"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	log.SetFlags(0)

	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	name := string(opts.Args.File)
	buf, err := os.ReadFile(name)
	if err != nil {
		log.Fatalf(`read "%s" error: %v`, name, err)
	}

	d, headers, err := zipdir.Scan(buf, func(o *zipdir.Options) {
		o.AllowSpanned = opts.AllowSpanned
	})
	if err != nil {
		log.Fatalf(`scan "%s" error: %v`, name, err)
	}

	// stage the listing in a pooled buffer so the progress bar and the output don't interleave on a terminal.
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	bar := progressbar.Default(int64(d.CDCount), "reading central directory")
	for fh, err := range headers {
		if err != nil {
			log.Fatalf("read central directory file header error: %v", err)
		}

		enc := ' '
		if fh.Encrypted() {
			enc = 'E'
		}
		_, _ = fmt.Fprintf(bb, "%10d  %-8s  %10s  %10s  %08x %c  %s\n",
			fh.Offset, methodName(fh.Method),
			humanize.IBytes(fh.CompressedSize64), humanize.IBytes(fh.UncompressedSize64),
			fh.CRC32, enc, fh.Name)
		_ = bar.Add(1)
	}
	_ = bar.Close()

	_, _ = os.Stdout.Write(bb.B)

	fmt.Printf("%d entries, central directory at offset %d spanning %s", d.CDCount, d.CDOffset, humanize.IBytes(d.CDSize))
	if len(d.EOCD.Comment) > 0 {
		fmt.Printf(", comment %q", d.EOCD.Comment)
	}
	fmt.Println()
}

func methodName(m uint16) string {
	switch m {
	case 0:
		return "store"
	case 8:
		return "deflate"
	case 12:
		return "bzip2"
	case 14:
		return "lzma"
	case 93:
		return "zstd"
	case 95:
		return "xz"
	default:
		return fmt.Sprintf("%d", m)
	}
}
