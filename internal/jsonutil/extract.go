// Package jsonutil finds JSON values embedded in command output. Commands
// often print progress lines around the result they want to hand on, so
// values are located by delimiter matching rather than by decoding the whole
// stream.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// maxInputBytes caps the text scanned for JSON.
const maxInputBytes = 10 * 1024 * 1024

// ErrNotFound is returned when text holds no JSON value of the wanted kind.
var ErrNotFound = errors.New("jsonutil: no JSON found")

// reANSI matches CSI escape sequences emitted by colorizing tools.
var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHF]`)

func sanitize(text string) (string, error) {
	if len(text) > maxInputBytes {
		return "", fmt.Errorf("jsonutil: input exceeds maximum size of %d bytes", maxInputBytes)
	}
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	return reANSI.ReplaceAllString(text, ""), nil
}

// All returns every top-level JSON object and array in text, in order.
// Values nested inside a returned value are not listed separately.
func All(text string) ([]json.RawMessage, error) {
	text, err := sanitize(text)
	if err != nil {
		return nil, err
	}

	var out []json.RawMessage
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end := matchingDelimiter(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if !json.Valid([]byte(candidate)) {
			continue
		}
		out = append(out, json.RawMessage(candidate))
		i = end
	}
	return out, nil
}

// First returns the first top-level JSON value in text.
func First(text string) (json.RawMessage, error) {
	all, err := All(text)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

// LastObject decodes the last top-level JSON object in text. Commands that
// log before printing their result are handled by taking the last one.
func LastObject(text string) (map[string]any, error) {
	all, err := All(text)
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i][0] != '{' {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(all[i], &obj); err != nil {
			return nil, fmt.Errorf("jsonutil: decoding object: %w", err)
		}
		return obj, nil
	}
	return nil, ErrNotFound
}

// matchingDelimiter returns the index of the delimiter closing the '{' or
// '[' at start, or -1. Delimiters inside strings are ignored.
func matchingDelimiter(text string, start int) int {
	openCh := text[start]
	var closeCh byte
	switch openCh {
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
