package playlist

import (
	"math"
	"strconv"
	"strings"
)

const (
	m3uHeader = "#EXTM3U"
	m3uInfo   = "#EXTINF:"
)

// M3UCodec reads and writes M3U and M3U8 playlists.
type M3UCodec struct{}

// Parse reads one entry per location line. An #EXTINF line supplies the
// duration and title of the next location; comments and blank lines in
// between are skipped.
func (M3UCodec) Parse(text string) []Entry {
	var (
		entries  []Entry
		pending  bool
		title    string
		duration *int
	)
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, m3uInfo):
			pending = true
			title, duration = parseExtInf(line[len(m3uInfo):])
		case strings.HasPrefix(line, "#"):
			continue
		default:
			e := Entry{Location: normalizeLocation(line)}
			if pending {
				e.Title = title
				e.Duration = duration
				pending = false
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// parseExtInf splits "<seconds>,<title>". Unparseable or negative durations
// are unknown.
func parseExtInf(info string) (string, *int) {
	secs, title, _ := strings.Cut(info, ",")
	return strings.TrimSpace(title), parseSeconds(secs)
}

func parseSeconds(s string) *int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return Seconds(int(f))
}

// Serialize writes an #EXTINF line for entries that have a title or a
// duration. The #EXTM3U header is written for new documents and for
// originals that carried one.
func (M3UCodec) Serialize(entries []Entry, original string) (string, error) {
	var b strings.Builder
	if original == "" || strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(original, bom)), m3uHeader) {
		b.WriteString(m3uHeader)
		b.WriteByte('\n')
	}
	for _, e := range entries {
		if e.Title != "" || e.Duration != nil {
			secs := -1
			if e.Duration != nil {
				secs = *e.Duration
			}
			b.WriteString(m3uInfo)
			b.WriteString(strconv.Itoa(secs))
			b.WriteByte(',')
			b.WriteString(e.Title)
			b.WriteByte('\n')
		}
		b.WriteString(e.Location)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

const bom = "\ufeff"

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
