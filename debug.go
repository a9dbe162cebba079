package bthost

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	hexdumpRowLen   = 16
	hexdumpHexWidth = hexdumpRowLen * 3
)

var out io.Writer = os.Stdout
var outMu sync.Mutex

// SetOutput sets the writer used by Printf, Vprintf and Hexdump.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// Printf writes formatted text to the diagnostic output.
func Printf(format string, args ...interface{}) {
	Vprintf(format, args)
}

// Vprintf is Printf with an explicit argument list.
func Vprintf(format string, args []interface{}) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(out, format, args...)
}

// Hexdump writes data to the diagnostic output, see FHexdump.
func Hexdump(prefix string, data []byte) {
	outMu.Lock()
	defer outMu.Unlock()
	FHexdump(out, prefix, data)
}

// FHexdump writes prefix on its own line, then 16 bytes per row: each byte
// as a hex pair plus a space (the short last row padded to the same width),
// two spaces, and the printable ASCII with '.' for anything else.
func FHexdump(w io.Writer, prefix string, data []byte) error {
	var b bytes.Buffer
	b.WriteString(prefix)
	b.WriteByte('\n')

	for off := 0; off < len(data); off += hexdumpRowLen {
		end := off + hexdumpRowLen
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		for _, c := range row {
			fmt.Fprintf(&b, "%02x ", c)
		}
		for i := len(row) * 3; i < hexdumpHexWidth; i++ {
			b.WriteByte(' ')
		}
		b.WriteString("  ")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}

	_, err := w.Write(b.Bytes())
	return err
}
