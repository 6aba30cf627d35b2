package playlist

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// WPL structure based on Windows Media Player playlist format
type wplDocument struct {
	XMLName xml.Name `xml:"smil"`
	Head    wplHead  `xml:"head"`
	Body    wplBody  `xml:"body"`
}

type wplHead struct {
	Title string    `xml:"title"`
	Meta  []wplMeta `xml:"meta"`
}

type wplMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type wplBody struct {
	Seq wplSeq `xml:"seq"`
}

type wplSeq struct {
	Media []wplMedia `xml:"media"`
}

type wplMedia struct {
	Src string `xml:"src,attr"`
}

// WPLCodec reads and writes Windows Media Player playlists. It is not a
// built-in format; DefaultRegistry registers it under the custom key "wpl".
type WPLCodec struct{}

// Parse returns one entry per media element. Windows path separators are
// converted to forward slashes.
func (WPLCodec) Parse(text string) []Entry {
	var doc wplDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		parseFailed("wpl", err)
		return nil
	}

	var entries []Entry
	for _, media := range doc.Body.Seq.Media {
		src := strings.TrimSpace(media.Src)
		if src == "" {
			continue
		}
		if !IsURL(src) {
			src = normalizeLocation(strings.ReplaceAll(src, "\\", "/"))
		}
		entries = append(entries, Entry{Location: src})
	}
	return entries
}

// ReadTitle returns the head title of a WPL document.
func (WPLCodec) ReadTitle(text string) string {
	var doc wplDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Head.Title)
}

// Serialize keeps the head of the original document and rewrites the media
// sequence. The item count meta element is updated to match.
func (WPLCodec) Serialize(entries []Entry, original string) (string, error) {
	var doc wplDocument
	if original == "" || xml.Unmarshal([]byte(original), &doc) != nil {
		doc = wplDocument{Head: wplHead{
			Title: "Playlist",
			Meta: []wplMeta{
				{Name: "Generator", Content: "avplay"},
			},
		}}
	}

	doc.Body.Seq.Media = make([]wplMedia, len(entries))
	for i, e := range entries {
		doc.Body.Seq.Media[i] = wplMedia{Src: e.Location}
	}
	count := strconv.Itoa(len(entries))
	found := false
	for i := range doc.Head.Meta {
		if doc.Head.Meta[i].Name == "ItemCount" {
			doc.Head.Meta[i].Content = count
			found = true
		}
	}
	if !found {
		doc.Head.Meta = append(doc.Head.Meta, wplMeta{Name: "ItemCount", Content: count})
	}

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", err
	}
	return "<?wpl version=\"1.0\"?>\n" + string(out) + "\n", nil
}
