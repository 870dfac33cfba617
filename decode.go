package cansim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// DecodePayload renders a payload for the interpret view. Payloads that
// decode cleanly as a single CBOR item are shown structurally; anything
// else falls back to hex plus a printable-ASCII rendering.
func DecodePayload(data []byte) string {
	if len(data) == 0 {
		return "<empty>"
	}
	var v interface{}
	if err := cbor.Unmarshal(data, &v); err == nil {
		return "CBOR " + describeCBOR(v)
	}
	return fmt.Sprintf("%X %q", data, printableASCII(data))
}

// describeCBOR renders a decoded CBOR value on one line.
func describeCBOR(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return fmt.Sprintf("h'%X'", t)
	case string:
		return fmt.Sprintf("%q", t)
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = describeCBOR(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[interface{}]interface{}:
		parts := make([]string, 0, len(t))
		for k, val := range t {
			parts = append(parts, describeCBOR(k)+": "+describeCBOR(val))
		}
		// Map order is not defined; sort for stable output.
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	case uint64:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%v", t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func printableASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b < 127 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
