package pack

import (
	"strings"
)

// LineTerminator ends every encoded line. Decoding accepts \r\n, \r and \n.
const LineTerminator = "\n"

const headerKey = "MinVersion"

var headerPrefixes = []string{"minversion=", "minimumversion="}

const legacyHeaderPrefix = "minversion||"

// DecodeLine parses one entry line. minVersion is attached to the entry as
// is. The line is split on the first two "||" tokens; whatever follows the
// second one is the URL.
func DecodeLine(line, minVersion string) (Entry, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Entry{}, &ParseError{Text: line, Err: ErrEmptyLine}
	}

	var e Entry
	switch text[0] {
	case deletePrefix:
		e.Delete = true
		text = text[1:]
	case downloadIfMissingPrefix:
		e.DownloadIfMissing = true
		text = text[1:]
	}

	path, rest, ok := strings.Cut(text, fieldSep)
	if !ok {
		return Entry{}, &ParseError{Text: line, Err: ErrMissingSeparator}
	}
	hash, url, ok := strings.Cut(rest, fieldSep)
	if !ok {
		return Entry{}, &ParseError{Text: line, Err: ErrMissingSeparator}
	}

	e.Path = path
	e.Hash = hash
	e.URL = url
	e.MinimumVersion = minVersion
	return e, nil
}

// parseHeader reports whether line is a minimum version header and returns
// its value.
func parseHeader(line string) (string, bool) {
	for _, prefix := range headerPrefixes {
		if hasPrefixFold(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}

	if hasPrefixFold(line, legacyHeaderPrefix) {
		parts := strings.Split(line, fieldSep)
		return strings.TrimSpace(parts[1]), true
	}

	return "", false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// splitLines splits on \r\n, \r and \n and drops blank lines. The returned
// numbers are 1-based line numbers in the original text.
func splitLines(text string) ([]string, []int) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	var numbers []int
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		numbers = append(numbers, i+1)
	}
	return lines, numbers
}

// Decode parses a manifest. Malformed lines are skipped and reported in
// Warnings. Only the first version header is honoured; it applies to the
// entries that follow it.
func Decode(text string) *Manifest {
	m := &Manifest{}
	seenHeader := false

	lines, numbers := splitLines(text)
	for i, line := range lines {
		if v, ok := parseHeader(line); ok {
			if seenHeader {
				m.Warnings = append(m.Warnings, &ParseError{Line: numbers[i], Text: line, Err: ErrDuplicateHeader})
				continue
			}
			seenHeader = true
			m.MinimumVersion = v
			continue
		}

		e, err := DecodeLine(line, m.MinimumVersion)
		if err != nil {
			perr := err.(*ParseError)
			perr.Line = numbers[i]
			m.Warnings = append(m.Warnings, perr)
			continue
		}
		m.Entries = append(m.Entries, e)
	}

	return m
}

// EncodeLine renders a single entry.
func EncodeLine(e Entry) string {
	var b strings.Builder
	switch {
	case e.Delete:
		b.WriteByte(deletePrefix)
	case e.DownloadIfMissing:
		b.WriteByte(downloadIfMissingPrefix)
	}
	b.WriteString(e.Path)
	b.WriteString(fieldSep)
	b.WriteString(e.Hash)
	b.WriteString(fieldSep)
	b.WriteString(e.URL)
	return b.String()
}

// Encode renders entries, preceded by a "MinVersion=" header when minVersion
// is not blank. Legacy headers are always normalised to the "=" form.
func Encode(entries []Entry, minVersion string) string {
	var b strings.Builder
	if v := strings.TrimSpace(minVersion); v != "" {
		b.WriteString(headerKey + "=" + v + LineTerminator)
	}
	for _, e := range entries {
		b.WriteString(EncodeLine(e))
		b.WriteString(LineTerminator)
	}
	return b.String()
}
