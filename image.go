package cansim

import (
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// FramesFromIntelHex reads an Intel HEX image and chunks its data
// segments into frames of at most 8 bytes under the given identifier,
// in segment address order. It backs batch replay of a captured or
// firmware image over the simulated bus.
func FramesFromIntelHex(r io.Reader, id uint32) ([]Frame, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("cansim: parse hex image: %w", err)
	}
	var frames []Frame
	for _, seg := range mem.GetDataSegments() {
		data := seg.Data
		for len(data) > 0 {
			n := len(data)
			if n > 8 {
				n = 8
			}
			f, err := NewFrame(id, data[:n])
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
			data = data[n:]
		}
	}
	return frames, nil
}
