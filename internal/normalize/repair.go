// file: internal/normalize/repair.go
// version: 1.1.0
// guid: 3c35a1e4-d98d-471a-9952-cac41860c15a

package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// mojibakeTable maps byte sequences produced by reading UTF-8 as Latin-1 or
// Windows-1252 back to the intended text. Order matters: multi-rune keys
// sharing a prefix with a shorter key must come first.
var mojibakeTable = []struct {
	from, to string
}{
	{"Î±Î¹Îµ", ""},
	{"â‡´", ""},
	{"ï½¡", "|"},
	{"ï½œ", "-"},
	{"Ã³", "ó"},
	{"Ã±", "ñ"},
	{"Ã©", "é"},
	{"Ã¡", "á"},
	{"Ã\u00ad", "í"},
	{"Ãº", "ú"},
	{"Ã¼", "ü"},
	{"Ã‰", "É"},
	{"Ã“", "Ó"},
	{"Ãš", "Ú"},
	{"Ã‘", "Ñ"},
	{"ÃÑ", "Ñ"},
	{"ÃÓ", "Ó"},
	{"ÃÉ", "É"},
	{"ÃÁ", "Á"},
	{"ÃÍ", "Í"},
	{"Â¡", "¡"},
	{"Â¿", "¿"},
	{"Â\u00a0", " "},
	{"Â ", " "},
	{"â´", ""},
	{"αιε", ""},
	{"⇴", ""},
	{"｜", "-"},
	{"Â", ""},
}

var mojibakeReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(mojibakeTable)*2)
	for _, m := range mojibakeTable {
		pairs = append(pairs, m.from, m.to)
	}
	return strings.NewReplacer(pairs...)
}()

// dropControls removes control and format characters that are not whitespace.
var dropControls = runes.Remove(runes.Predicate(func(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r)
}))

// Repair fixes mis-decoded UTF-8 sequences and applies NFKC. Text without
// known sequences passes through unchanged apart from NFKC and the removal
// of control characters. Repair(Repair(s)) == Repair(s).
//
// Repair runs to a fixed point however deeply the input was re-encoded.
// Every table entry shrinks its input and NFKC is idempotent, so each pass
// after the first either shortens the string or leaves it unchanged.
func Repair(raw string) string {
	if raw == "" {
		return ""
	}
	s := raw
	for {
		next := repairOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func repairOnce(s string) string {
	s = mojibakeReplacer.Replace(s)
	t := transform.Chain(dropControls, norm.NFKC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return norm.NFKC.String(s)
	}
	return out
}
