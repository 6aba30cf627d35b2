package playlist

import (
	"strconv"
	"strings"
)

// PLSCodec reads and writes PLS playlists.
type PLSCodec struct{}

type plsSlot struct {
	file     string
	title    string
	duration *int
}

// Parse collects File<n>, Title<n> and Length<n> keys case-insensitively and
// emits one entry per index from 1 to the highest File index. Indices without
// a File key are skipped.
func (PLSCodec) Parse(text string) []Entry {
	slots := make(map[int]*plsSlot)
	maxIndex := 0

	slot := func(n int) *plsSlot {
		s, ok := slots[n]
		if !ok {
			s = &plsSlot{}
			slots[n] = s
		}
		return s
	}

	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch {
		case strings.HasPrefix(key, "file"):
			if n, ok := plsIndex(key, "file"); ok {
				slot(n).file = value
				maxIndex = max(maxIndex, n)
			}
		case strings.HasPrefix(key, "title"):
			if n, ok := plsIndex(key, "title"); ok {
				slot(n).title = value
			}
		case strings.HasPrefix(key, "length"):
			if n, ok := plsIndex(key, "length"); ok {
				slot(n).duration = parseSeconds(value)
			}
		}
	}

	var entries []Entry
	for n := 1; n <= maxIndex; n++ {
		s, ok := slots[n]
		if !ok || s.file == "" {
			continue
		}
		entries = append(entries, Entry{
			Location: normalizeLocation(s.file),
			Title:    s.title,
			Duration: s.duration,
		})
	}
	return entries
}

func plsIndex(key, prefix string) (int, bool) {
	n, err := strconv.Atoi(key[len(prefix):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Serialize writes a [playlist] section numbered from 1. Unknown lengths are
// written as -1. The original text is not consulted.
func (PLSCodec) Serialize(entries []Entry, _ string) (string, error) {
	var b strings.Builder
	b.WriteString("[playlist]\n")
	b.WriteString("NumberOfEntries=" + strconv.Itoa(len(entries)) + "\n")
	for i, e := range entries {
		n := strconv.Itoa(i + 1)
		b.WriteString("File" + n + "=" + e.Location + "\n")
		b.WriteString("Title" + n + "=" + e.Title + "\n")
		length := -1
		if e.Duration != nil {
			length = *e.Duration
		}
		b.WriteString("Length" + n + "=" + strconv.Itoa(length) + "\n")
	}
	b.WriteString("Version=2\n")
	return b.String(), nil
}
