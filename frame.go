package cansim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frame represents a classical CAN (2.0A/2.0B) data frame on the
// simulated bus.
//
// Supported features:
//   - Standard (11-bit) and Extended (29-bit) identifiers
//   - Data length 0-8 bytes (classical CAN)
//
// A Frame is immutable after construction: the engine never modifies a
// queued frame, it only moves it from the pending queue to the history.
type Frame struct {
	ID        uint32    // 11-bit (std) or 29-bit (ext)
	Extended  bool      // true for 29-bit identifier
	Len       uint8     // 0..8
	Data      [8]byte
	Timestamp time.Time // set once at construction
}

// Validation limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

var (
	ErrInvalidID  = errors.New("cansim: invalid identifier")
	ErrInvalidLen = errors.New("cansim: invalid data length")
)

// Validate returns an error if the frame is not valid.
//
// The bit encoder assumes a validated frame; anything constructed
// outside NewFrame or the descriptor parser must be validated before
// it is enqueued.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else {
		if f.ID > maxStdID {
			return ErrInvalidID
		}
	}
	return nil
}

// NewFrame constructs a validated frame with its creation timestamp.
// Identifiers above the standard 11-bit range become extended frames.
func NewFrame(id uint32, data []byte) (Frame, error) {
	var f Frame
	f.ID = id
	if id > maxStdID {
		f.Extended = true
	}
	if len(data) > 8 {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	f.Timestamp = time.Now()
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// MustFrame constructs a Frame and panics if invalid. Convenience for
// tests and examples.
func MustFrame(id uint32, data []byte) Frame {
	f, err := NewFrame(id, data)
	if err != nil {
		panic(err)
	}
	return f
}

// String renders the frame in a compact candump-like form, e.g.
// "123 [2] DE AD".
func (f Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%X [%d]", f.ID, f.Len)
	for _, d := range f.Data[:f.Len] {
		fmt.Fprintf(&b, " %02X", d)
	}
	return b.String()
}

// Summary renders the long display form used by the interactive
// surface, e.g. "Standard ID=0x123 DLC=2 DATA=DEAD".
func (f Frame) Summary() string {
	class := "Standard"
	if f.Extended {
		class = "Extended"
	}
	data := "<empty>"
	if f.Len > 0 {
		data = fmt.Sprintf("%X", f.Data[:f.Len])
	}
	return fmt.Sprintf("%s ID=0x%X DLC=%d DATA=%s", class, f.ID, f.Len, data)
}

// MarshalBinary encodes the frame to the Linux SocketCAN "struct can_frame"
// layout (16 bytes) for classical CAN. Suitable for capture files or
// transport. It intentionally does not include the timestamp.
//
// Layout (little-endian):
//
//	0..3  can_id (with EFF flag for extended identifiers)
//	4     can_dlc (data length code)
//	5..7  padding (set to zero)
//	8..15 data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	const canEffFlag = 0x80000000
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the SocketCAN can_frame layout.
// The timestamp is left zero.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("cansim: need 16 bytes, got %d", len(data))
	}
	const (
		canEffFlag = 0x80000000
		canEffMask = 0x1FFFFFFF
		canStdMask = 0x7FF
	)
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEffFlag != 0
	if f.Extended {
		f.ID = id & canEffMask
	} else {
		f.ID = id & canStdMask
	}
	f.Len = data[4]
	copy(f.Data[:], data[8:16])
	f.Timestamp = time.Time{}
	return f.Validate()
}
