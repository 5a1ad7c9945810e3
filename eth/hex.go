package eth

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

func encodeHex(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

func trimHexPrefix(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}

// decodeHex decodes a hex string with or without 0x; odd lengths are left-padded.
func decodeHex(s string) ([]byte, error) {
	s = trimHexPrefix(s)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return b, nil
}

func encodeUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func parseUint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(trimHexPrefix(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return n, nil
}

func padLeft(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}
