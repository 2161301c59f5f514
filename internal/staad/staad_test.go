// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package staad

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines_FoldsContinuationsAndSkipsComments(t *testing.T) {
	src := strings.NewReader(strings.Join([]string{
		"* generated model",
		"JOINT COORDINATES",
		"",
		"1 0 0 0; 2 5 0 0; -",
		"3 10 0 0",
		"FINISH",
	}, "\n"))

	lines, err := readLines(src)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "JOINT COORDINATES", lines[0].text)
	assert.Equal(t, 2, lines[0].num)

	// The folded line keeps the physical number of its first fragment.
	assert.Equal(t, "1 0 0 0; 2 5 0 0; 3 10 0 0", lines[1].text)
	assert.Equal(t, 4, lines[1].num)

	assert.Equal(t, "FINISH", lines[2].text)
}

func TestExpandIDs(t *testing.T) {
	ids, err := expandIDs([]string{"1", "3", "TO", "6", "9"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 5, 6, 9}, ids)

	_, err = expandIDs([]string{"TO", "4"})
	assert.ErrorContains(t, err, "dangling TO")

	_, err = expandIDs([]string{"5", "TO", "2"})
	assert.ErrorContains(t, err, "descending range")

	_, err = expandIDs([]string{"1", "x"})
	assert.ErrorContains(t, err, "non-numeric identifier")
}

func TestCompressIDs(t *testing.T) {
	// Runs of three or more collapse; pairs stay explicit.
	assert.Equal(t, "1 TO 4 7 9 10", compressIDs([]int{9, 1, 2, 3, 4, 7, 10}))
	assert.Equal(t, "5", compressIDs([]int{5}))
	assert.Equal(t, "", compressIDs(nil))
}

func TestWrapLine_KeepsColumnLimit(t *testing.T) {
	long := strings.Repeat("12345 ", 30)
	frags := wrapLine(strings.TrimSpace(long))
	require.Greater(t, len(frags), 1)
	for i, f := range frags {
		assert.LessOrEqual(t, len(f), columnLimit)
		if i < len(frags)-1 {
			assert.True(t, strings.HasSuffix(f, " -"), "fragment %d lacks continuation", i)
		}
	}
}

func TestPackRecords_FillsToColumnLimit(t *testing.T) {
	records := []string{"1 0 0 0", "2 5 0 0", "3 10 0 0"}
	lines := packRecords(records)
	require.Len(t, lines, 1)
	assert.Equal(t, "1 0 0 0; 2 5 0 0; 3 10 0 0", lines[0])

	// A record that would overflow starts a new line.
	big := strings.Repeat("9", 75)
	lines = packRecords([]string{"1 0 0 0", big})
	require.Len(t, lines, 2)
	assert.Equal(t, big, lines[1])
}

func TestFormatError_IncludesBlockAndLine(t *testing.T) {
	err := formatErrf("SUPPORTS", 12, "bad clause")
	assert.Equal(t, "std SUPPORTS line 12: bad clause", err.Error())

	err = formatErrf("", 3, "stray text")
	assert.Equal(t, "std line 3: stray text", err.Error())
}
