package playlist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const xspfNamespace = "http://xspf.org/ns/0/"

type xspfTrack struct {
	Location string `xml:"http://xspf.org/ns/0/ location"`
	Title    string `xml:"http://xspf.org/ns/0/ title"`
	Creator  string `xml:"http://xspf.org/ns/0/ creator"`
	Album    string `xml:"http://xspf.org/ns/0/ album"`
	Duration string `xml:"http://xspf.org/ns/0/ duration"`
}

type xspfTrackList struct {
	Tracks []xspfTrack `xml:"http://xspf.org/ns/0/ track"`
}

type xspfDocument struct {
	XMLName   xml.Name      `xml:"http://xspf.org/ns/0/ playlist"`
	Title     string        `xml:"http://xspf.org/ns/0/ title"`
	TrackList xspfTrackList `xml:"http://xspf.org/ns/0/ trackList"`
}

// XSPFCodec reads and writes XSPF playlists.
type XSPFCodec struct{}

// Parse reads namespaced tracks that have a non-empty location. Durations
// are milliseconds in the document and seconds in entries.
func (XSPFCodec) Parse(text string) []Entry {
	var doc xspfDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		parseFailed("xspf", err)
		return nil
	}

	var entries []Entry
	for _, t := range doc.TrackList.Tracks {
		loc := strings.TrimSpace(t.Location)
		if loc == "" {
			continue
		}
		e := Entry{
			Location: normalizeLocation(loc),
			Title:    t.Title,
			Artist:   t.Creator,
			Album:    t.Album,
		}
		if ms, err := strconv.Atoi(strings.TrimSpace(t.Duration)); err == nil && ms >= 0 {
			e.Duration = Seconds(ms / 1000)
		}
		entries = append(entries, e)
	}
	return entries
}

// ReadTitle returns the playlist title of an XSPF document.
func (XSPFCodec) ReadTitle(text string) string {
	var doc xspfDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Title)
}

// Serialize rewrites the trackList of the original document and keeps every
// other element. Without a usable original a minimal document is produced.
func (XSPFCodec) Serialize(entries []Entry, original string) (string, error) {
	var root *xmlNode
	if original != "" {
		if n, err := parseXMLTree(original); err == nil && n.name.Local == "playlist" {
			root = n
		} else if err != nil {
			logger.Debug("xspf original not reused: %v", err)
		}
	}
	if root == nil {
		root = minimalXSPF()
	}

	trackList := root.child("trackList")
	if trackList == nil {
		trackList = &xmlNode{name: xml.Name{Space: root.name.Space, Local: "trackList"}}
		root.children = append(root.children, trackList)
	}
	trackList.text = ""
	trackList.children = nil

	prefix := trackList.name.Space
	el := func(local, text string) *xmlNode {
		return &xmlNode{name: xml.Name{Space: prefix, Local: local}, text: text}
	}
	for _, e := range entries {
		track := el("track", "")
		track.children = append(track.children, el("location", e.Location))
		if e.Title != "" {
			track.children = append(track.children, el("title", e.Title))
		}
		if e.Artist != "" {
			track.children = append(track.children, el("creator", e.Artist))
		}
		if e.Album != "" {
			track.children = append(track.children, el("album", e.Album))
		}
		if e.Duration != nil {
			track.children = append(track.children, el("duration", strconv.Itoa(*e.Duration*1000)))
		}
		trackList.children = append(trackList.children, track)
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	root.write(&b, 0)
	return b.String(), nil
}

func minimalXSPF() *xmlNode {
	return &xmlNode{
		name: xml.Name{Local: "playlist"},
		attrs: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: xspfNamespace},
			{Name: xml.Name{Local: "version"}, Value: "1"},
		},
		children: []*xmlNode{
			{name: xml.Name{Local: "title"}, text: "Playlist"},
			{name: xml.Name{Local: "creator"}, text: "Media Library"},
			{name: xml.Name{Local: "info"}},
		},
	}
}

// xmlNode is a generic element tree. Names keep their raw prefix in Space so
// the document can be written back with the prefixes it was read with.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	text     string
	children []*xmlNode
	comment  bool
}

var errMalformedXML = errors.New("malformed xml")

func parseXMLTree(text string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", errMalformedXML)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 || stack[len(stack)-1].name != t.Name {
				return nil, fmt.Errorf("%w: unexpected </%s>", errMalformedXML, qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("%w: text outside root element", errMalformedXML)
			}
		case xml.Comment:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, &xmlNode{comment: true, text: string(t)})
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", errMalformedXML)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed <%s>", errMalformedXML, qualified(stack[len(stack)-1].name))
	}
	return root, nil
}

// child returns the first element child with the given local name.
func (n *xmlNode) child(local string) *xmlNode {
	for _, c := range n.children {
		if !c.comment && c.name.Local == local {
			return c
		}
	}
	return nil
}

// write emits the node with two-space indentation. Whitespace-only text is
// treated as formatting and dropped.
func (n *xmlNode) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.comment {
		b.WriteString(indent + "<!--" + n.text + "-->\n")
		return
	}

	b.WriteString(indent + "<" + qualified(n.name))
	for _, a := range n.attrs {
		b.WriteString(" " + qualified(a.Name) + `="` + escapeXML(a.Value) + `"`)
	}

	text := n.text
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	switch {
	case len(n.children) == 0 && text == "":
		b.WriteString("/>\n")
	case len(n.children) == 0:
		b.WriteString(">" + escapeXML(text) + "</" + qualified(n.name) + ">\n")
	default:
		b.WriteString(">\n")
		if t := strings.TrimSpace(text); t != "" {
			b.WriteString(indent + "  " + escapeXML(t) + "\n")
		}
		for _, c := range n.children {
			c.write(b, depth+1)
		}
		b.WriteString(indent + "</" + qualified(n.name) + ">\n")
	}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
