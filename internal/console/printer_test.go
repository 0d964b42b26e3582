package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterTags(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	p.Step("Loading audio...")
	p.Info("Audio Duration: %.2f seconds", 5.0)
	p.Pending("Transcribing...")
	p.OK("done")
	p.Warn("careful")
	p.Fail("File not found: %s", "missing.mp3")

	want := "[+] Loading audio...\n" +
		"[i] Audio Duration: 5.00 seconds\n" +
		"[...] Transcribing...\n" +
		"[✓] done\n" +
		"[!] careful\n" +
		"[X] File not found: missing.mp3\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Fail("boom")
	assert.Equal(t, colorRed+"[X]"+colorReset+" boom\n", buf.String())
}
