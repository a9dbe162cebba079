package bthost

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestHexdump(t *testing.T) {
	data := make([]byte, 17)
	for i := range data {
		data[i] = byte(i)
	}

	var b bytes.Buffer
	SetOutput(&b)
	defer SetOutput(os.Stdout)
	Hexdump("h", data)

	want := "h\n" +
		"00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f   ................\n" +
		"10 " + strings.Repeat(" ", 45) + "  .\n"
	if b.String() != want {
		t.Fatalf("unexpected hexdump:\n%q\nwant:\n%q", b.String(), want)
	}
}

func TestHexdumpPrintable(t *testing.T) {
	var b bytes.Buffer
	if err := FHexdump(&b, "", []byte("Hi\x7f~")); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(b.String(), "\n")
	if lines[0] != "" || !strings.HasSuffix(lines[1], "  Hi.~") {
		t.Fatalf("unexpected hexdump %q", b.String())
	}
}

func TestPrintf(t *testing.T) {
	var b bytes.Buffer
	SetOutput(&b)
	defer SetOutput(os.Stdout)

	Printf("%s=%d\n", "rx", 3)
	Vprintf("%s=%d\n", []interface{}{"tx", 4})
	if b.String() != "rx=3\ntx=4\n" {
		t.Fatalf("unexpected output %q", b.String())
	}
}
