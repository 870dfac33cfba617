package cansim

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Descriptor parsing errors. Callers can match with errors.Is.
var (
	ErrNoDelimiter  = errors.New("cansim: missing '#' delimiter")
	ErrNoIdentifier = errors.New("cansim: missing identifier")
	ErrBadData      = errors.New("cansim: invalid data")
)

// ParseFrame builds a validated frame from a textual descriptor of the
// form "<hexID>#<hexBytes>", e.g. "123#DEADBEEF". The frame class is
// derived from the identifier: values above 0x7FF become extended
// (29-bit) frames. The data part may be empty; otherwise it must be an
// even number of hex digits encoding at most 8 bytes.
func ParseFrame(raw string) (Frame, error) {
	idPart, dataPart, ok := strings.Cut(raw, "#")
	if !ok {
		return Frame{}, fmt.Errorf("%w: use ID#DATA, e.g. 123#112233", ErrNoDelimiter)
	}
	if idPart == "" {
		return Frame{}, ErrNoIdentifier
	}

	id64, err := strconv.ParseUint(idPart, 16, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %q is not a hex identifier", ErrNoIdentifier, idPart)
	}

	var data []byte
	if dataPart != "" {
		if len(dataPart)%2 != 0 {
			return Frame{}, fmt.Errorf("%w: odd number of hex digits", ErrBadData)
		}
		if len(dataPart) > 16 {
			return Frame{}, fmt.Errorf("%w: length exceeds 8 bytes", ErrBadData)
		}
		data, err = hex.DecodeString(dataPart)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrBadData, err)
		}
	}

	if id64 > maxExtID {
		return Frame{}, fmt.Errorf("%w: extended identifier must be <= 0x1FFFFFFF", ErrInvalidID)
	}
	return NewFrame(uint32(id64), data)
}
