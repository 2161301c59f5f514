// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package staad translates between STAAD.Pro std documents and the
// bridge's structural model. The Reader builds a model from the
// block-structured text format; the Writer projects a model back into
// a document with the format-mandated block order.
package staad

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// columnLimit is the maximum line width accepted by the STAAD editor.
// Longer lines are wrapped at a space with a trailing continuation dash.
const columnLimit = 78

// FormatError reports a malformed or ambiguous source document. Reads
// never return a partial model alongside one.
type FormatError struct {
	// Block is the keyword of the block being parsed, or "" for
	// document-level problems.
	Block string

	// Line is the 1-based physical line number in the source document.
	Line int

	// Reason describes what was wrong with the input.
	Reason string
}

func (e *FormatError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("std line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("std %s line %d: %s", e.Block, e.Line, e.Reason)
}

func formatErrf(block string, line int, format string, args ...any) *FormatError {
	return &FormatError{Block: block, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// line is one logical line of the document: continuation-folded, with
// the physical line number of its first fragment.
type line struct {
	text string
	num  int
}

// readLines folds the document into logical lines. Comment lines
// (leading '*') and blank lines are dropped; a trailing '-' joins the
// next physical line, as the STAAD editor writes wrapped input.
func readLines(src io.Reader) ([]line, error) {
	var out []line
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	num := 0
	cont := false
	for scanner.Scan() {
		num++
		text := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			continue
		}

		if cont && len(out) > 0 {
			prev := &out[len(out)-1]
			prev.text = strings.TrimRight(prev.text[:len(prev.text)-1], " ") + " " + trimmed
		} else {
			out = append(out, line{text: trimmed, num: num})
		}
		cont = strings.HasSuffix(trimmed, "-")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading std document: %w", err)
	}
	return out, nil
}

// expandIDs parses a token list of integer identifiers with inclusive
// "a TO b" ranges, as used by member lists throughout the format.
func expandIDs(tokens []string) ([]int, error) {
	var ids []int
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if strings.EqualFold(tok, "TO") {
			if len(ids) == 0 || i+1 >= len(tokens) {
				return nil, fmt.Errorf("dangling TO in id list")
			}
			end, err := strconv.Atoi(tokens[i+1])
			if err != nil {
				return nil, fmt.Errorf("non-numeric range end %q", tokens[i+1])
			}
			start := ids[len(ids)-1]
			if end < start {
				return nil, fmt.Errorf("descending range %d TO %d", start, end)
			}
			for v := start + 1; v <= end; v++ {
				ids = append(ids, v)
			}
			i++
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("non-numeric identifier %q", tok)
		}
		ids = append(ids, v)
	}
	return ids, nil
}

// compressIDs renders identifiers with "a TO b" runs, sorted ascending.
func compressIDs(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	var b strings.Builder
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		// A run of three or more collapses; a pair stays explicit.
		if j-i >= 2 {
			fmt.Fprintf(&b, "%d TO %d", sorted[i], sorted[j])
		} else {
			for k := i; k <= j; k++ {
				if k > i {
					b.WriteByte(' ')
				}
				b.WriteString(strconv.Itoa(sorted[k]))
			}
		}
		i = j + 1
	}
	return b.String()
}

// formatNum renders a value with enough precision to re-parse within
// the round-trip tolerance, without trailing float noise.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// wrapLine splits a long line at spaces to fit the column limit,
// terminating every fragment but the last with " -".
func wrapLine(s string) []string {
	if len(s) <= columnLimit {
		return []string{s}
	}
	var out []string
	for len(s) > columnLimit {
		cut := strings.LastIndex(s[:columnLimit-1], " ")
		if cut <= 0 {
			cut = columnLimit - 2
		}
		out = append(out, s[:cut]+" -")
		s = strings.TrimLeft(s[cut:], " ")
	}
	return append(out, s)
}

// packRecords joins short records (such as joint coordinate rows) with
// "; " separators, filling each output line up to the column limit.
func packRecords(records []string) []string {
	var out []string
	current := ""
	for _, rec := range records {
		switch {
		case current == "":
			current = rec
		case len(current)+len(rec)+2 <= columnLimit:
			current += "; " + rec
		default:
			out = append(out, current)
			current = rec
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
