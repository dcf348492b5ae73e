package config

import (
	"strings"
	"unicode/utf8"
)

// maxFileNameBytes keeps room for extension and page suffix under common
// 255 byte file system limit, score titles may be very long.
const maxFileNameBytes = 200

// CleanFileName makes file name out of arbitrary text (score title, output
// template result): drops characters file system does not allow, leading
// dots and surrounding spaces, and shortens it.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym == 0 || badFileNameRune(sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(out), "."))

	if len(out) > maxFileNameBytes {
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
