// Package protocol implements the request-timing wire format.
//
// A producer opens one TCP connection per request, writes a single record and
// closes. Two encodings are accepted on the wire:
//
//	12.50 example.com          whitespace-separated tokens
//	3.4100|/var/www/index.php  delimited form written by the server hook
//
// The receiver answers every connection with the two bytes "OK", whether or
// not the record could be decoded.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultPort is the fixed TCP port the dashboard listens on.
	DefaultPort = 2398

	// MaxRecordSize is the largest record the receiver reads from one connection.
	MaxRecordSize = 255

	// Ack is written back to the producer after every read.
	Ack = "OK"

	// Delimiter separates elapsed time and origin in the producer encoding.
	Delimiter = '|'

	// replacementRune stands in for control characters and invalid UTF-8
	// in origins.
	replacementRune = utf8.RuneError
)

var (
	ErrEmpty       = errors.New("empty record")
	ErrTooLarge    = errors.New("record exceeds maximum size")
	ErrBadElapsed  = errors.New("invalid elapsed time")
	ErrEmptyOrigin = errors.New("empty origin")
)

// Record is one timing sample reported by a producer.
type Record struct {
	// Elapsed is the request handling time in milliseconds.
	Elapsed float64

	// Origin identifies what was requested (site id, file name, route).
	Origin string
}

// Decode parses a raw record in either wire encoding.
//
// Trailing NUL padding and surrounding whitespace are ignored. The delimited
// encoding applies only when the text before the first '|' is a single
// token, so "12.5 a|b" is the whitespace form with origin "a|b". In the
// whitespace encoding only the first two tokens are used. Origins come back
// sanitized (see SanitizeOrigin).
func Decode(raw []byte) (Record, error) {
	if len(raw) > MaxRecordSize {
		return Record{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(raw), MaxRecordSize)
	}

	raw = bytes.TrimRight(raw, "\x00")
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Record{}, ErrEmpty
	}

	var elapsedText, origin string
	if idx := strings.IndexByte(text, Delimiter); idx >= 0 && !strings.ContainsFunc(text[:idx], unicode.IsSpace) {
		elapsedText = strings.TrimSpace(text[:idx])
		origin = strings.TrimSpace(text[idx+1:])
	} else {
		fields := strings.Fields(text)
		elapsedText = fields[0]
		if len(fields) > 1 {
			origin = fields[1]
		}
	}

	elapsed, err := parseElapsed(elapsedText)
	if err != nil {
		return Record{}, err
	}
	if origin == "" {
		return Record{}, ErrEmptyOrigin
	}

	return Record{Elapsed: elapsed, Origin: SanitizeOrigin(origin)}, nil
}

// SanitizeOrigin makes an origin safe to print on one terminal line:
// invalid UTF-8 and control characters (newlines, ESC, C1 codes) become
// U+FFFD.
func SanitizeOrigin(s string) string {
	s = strings.ToValidUTF8(s, string(replacementRune))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return replacementRune
		}
		return r
	}, s)
}

// parseElapsed parses a non-negative, finite millisecond value.
func parseElapsed(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: missing", ErrBadElapsed)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadElapsed, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q out of range", ErrBadElapsed, s)
	}
	return v, nil
}

// Encode renders r in the delimited producer encoding ("%.4f|origin").
// The result is truncated to MaxRecordSize bytes.
func Encode(r Record) []byte {
	buf := make([]byte, 0, MaxRecordSize)
	buf = strconv.AppendFloat(buf, r.Elapsed, 'f', 4, 64)
	buf = append(buf, Delimiter)
	buf = append(buf, r.Origin...)
	if len(buf) > MaxRecordSize {
		buf = buf[:MaxRecordSize]
	}
	return buf
}

// EncodeFields renders r in the whitespace encoding. Origins containing
// whitespace cannot round-trip through this form.
func EncodeFields(r Record) []byte {
	s := strconv.FormatFloat(r.Elapsed, 'f', 2, 64) + " " + r.Origin
	if len(s) > MaxRecordSize {
		s = s[:MaxRecordSize]
	}
	return []byte(s)
}
