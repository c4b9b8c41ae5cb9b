package conv

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fillerWords are dropped before fingerprinting so that "recuérdame hablar de X"
// and "apunta X" land on the same fingerprint. Stored in accent-stripped form.
var fillerWords = map[string]struct{}{
	"hablar": {}, "habla": {}, "hablo": {}, "hablas": {},
	"recuerdame": {}, "recordar": {}, "recuerda": {}, "acuerdame": {},
	"apunta": {}, "apuntame": {}, "anota": {}, "guarda": {},
	"tema": {}, "temas": {}, "sobre": {},
	"de": {}, "del": {}, "la": {}, "el": {}, "los": {}, "las": {},
	"un": {}, "una": {}, "unos": {}, "unas": {},
	"con": {}, "para": {}, "por": {}, "que": {},
	"me": {}, "te": {}, "le": {}, "nos": {}, "os": {}, "les": {},
}

// StripAccents removes combining marks: "Recuérdame" -> "Recuerdame".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName folds a person reference for lookup.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(StripAccents(name))), " ")
}

// Words lowercases, strips accents and splits on anything that is not a
// letter or digit. Filler words are kept.
func Words(text string) []string {
	folded := strings.ToLower(StripAccents(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokens is Words without filler words.
func Tokens(text string) []string {
	words := Words(text)
	out := words[:0]
	for _, w := range words {
		if _, filler := fillerWords[w]; filler {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Normalize returns the canonical form used for fingerprints.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Fingerprint is the hex SHA-1 of the normalised text. Text made only of
// filler words falls back to its lowercased raw form.
func Fingerprint(text string) string {
	n := Normalize(text)
	if n == "" {
		n = strings.ToLower(strings.TrimSpace(text))
	}
	sum := sha1.Sum([]byte(n))
	return hex.EncodeToString(sum[:])
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
