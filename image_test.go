package cansim

import (
	"bytes"
	"strings"
	"testing"
)

const testHexImage = ":0B0010006164647265737320676170A7\n:00000001FF\n"

func TestFramesFromIntelHex(t *testing.T) {
	frames, err := FramesFromIntelHex(strings.NewReader(testHexImage), 0x123)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// The 11-byte segment is chunked into an 8-byte and a 3-byte frame.
	if len(frames) != 2 {
		t.Fatalf("frame count = %d, want 2", len(frames))
	}
	if !bytes.Equal(frames[0].Data[:frames[0].Len], []byte("address ")) {
		t.Fatalf("first chunk = %q", frames[0].Data[:frames[0].Len])
	}
	if !bytes.Equal(frames[1].Data[:frames[1].Len], []byte("gap")) {
		t.Fatalf("second chunk = %q", frames[1].Data[:frames[1].Len])
	}
	for _, f := range frames {
		if f.ID != 0x123 || f.Extended {
			t.Fatalf("frame identifier mismatch: %+v", f)
		}
		if err := f.Validate(); err != nil {
			t.Fatalf("chunked frame invalid: %v", err)
		}
	}
}

func TestFramesFromIntelHex_BadInput(t *testing.T) {
	if _, err := FramesFromIntelHex(strings.NewReader("not a hex image"), 0x123); err == nil {
		t.Fatalf("expected error for malformed image")
	}
}
