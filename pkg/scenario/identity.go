package scenario

import (
	"fmt"
	"strings"
	"time"
)

// ExampleSeparator joins the matched example values inside the brackets of
// an identity.
const ExampleSeparator = ", "

// Identity names one attempt of a scenario.
type Identity struct {
	// Name is globally unique: Key followed by the attempt start time in
	// milliseconds.
	Name string

	// Key is stable across retries of the same logical scenario and indexes
	// the retry counters.
	Key string

	// Template is the bare scenario template name.
	Template string

	// Started is the attempt start time embedded in Name.
	Started time.Time
}

// String returns the unique attempt name.
func (id Identity) String() string {
	return id.Name
}

// BuildIdentity derives the identity of an attempt. For outline scenarios the
// first example row whose every cell value occurs somewhere in the concrete
// step text is appended in brackets. Matching is by substring, so short
// values may match the wrong row; the first match wins.
func BuildIdentity(info Info, started time.Time) Identity {
	key := info.Name
	if values, ok := MatchExampleRow(info.Examples, info.StepText()); ok {
		key = fmt.Sprintf("%s[%s]", info.Name, strings.Join(values, ExampleSeparator))
	}

	return Identity{
		Name:     fmt.Sprintf("%s-%d", key, started.UnixMilli()),
		Key:      key,
		Template: info.Name,
		Started:  started,
	}
}

// MatchExampleRow returns the first row, across all tables, whose cell values
// are all substrings of text. Empty rows never match.
func MatchExampleRow(tables []ExampleTable, text string) ([]string, bool) {
	for _, table := range tables {
		for _, row := range table.Rows {
			if len(row) == 0 {
				continue
			}
			if rowMatches(row, text) {
				return row, true
			}
		}
	}
	return nil, false
}

func rowMatches(row []string, text string) bool {
	for _, cell := range row {
		if !strings.Contains(text, cell) {
			return false
		}
	}
	return true
}
