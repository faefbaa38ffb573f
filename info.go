package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/svanichkin/avfrip/avf"
)

// printInfo writes the header and chunk index of an AVF file without
// decoding any frames.
func printInfo(w io.Writer, path string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	f, err := avf.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	h := f.Header
	fmt.Fprintf(w, "%s: %q version %d.%d\n", path, h.ID, h.Version, h.Revision)
	fmt.Fprintf(w, "  %dx%d, %d bpp, %d chunks, %d per frame, type %s, compression %d\n",
		h.Width, h.Height, h.BitsPerPixel, h.NumChunks, h.TimePerFrame, avf.ChunkType(h.ChunkType), h.CompressionMode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "chunk\ttype\toffset\tstored\toriginal\tparent\tinfo\t")
	for i, e := range f.Chunks {
		if e.Duplicate() {
			fmt.Fprintf(tw, "%d\tdup\t-\t-\t-\t-\t-\t\n", i)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%#x\t%d\t%d\t%d\t%d\t\n",
			i, e.Type, e.FileOffset, e.StorageSize, e.OriginalSize, e.ParentKeyFrame, e.InfoBlockOffset)
	}
	return tw.Flush()
}
