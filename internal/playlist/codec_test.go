package playlist

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func intp(n int) *int { return &n }

func entriesEqual(t *testing.T, got, want []Entry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Location != w.Location || g.Title != w.Title || g.Artist != w.Artist || g.Album != w.Album {
			t.Errorf("entry %d = %+v, want %+v", i, g, w)
		}
		if !reflect.DeepEqual(g.Duration, w.Duration) {
			t.Errorf("entry %d duration = %v, want %v", i, fmtDuration(g.Duration), fmtDuration(w.Duration))
		}
		if len(w.Metadata) > 0 && !reflect.DeepEqual(g.Metadata, w.Metadata) {
			t.Errorf("entry %d metadata = %#v, want %#v", i, g.Metadata, w.Metadata)
		}
	}
}

func fmtDuration(d *int) any {
	if d == nil {
		return "unknown"
	}
	return *d
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		source string
		want   Format
	}{
		{"mix.m3u", FormatM3U},
		{"MIX.M3U8", FormatM3U8},
		{"/srv/lists/road.xspf", FormatXSPF},
		{"radio.PLS", FormatPLS},
		{"tracks.json", FormatJSON},
		{"https://example.com/live.m3u8?token=abc", FormatM3U8},
		{"favourites.wpl", FormatUnknown},
		{"notes.txt", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := DetectFormat(tt.source); got != tt.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, ok := ParseFormat(f.String())
		if !ok || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.String(), got, ok)
		}
		if got, _ := ParseFormat(strings.ToUpper(f.Extension())); got != f {
			t.Errorf("ParseFormat(%q) = %v, want %v", strings.ToUpper(f.Extension()), got, f)
		}
	}
	if _, ok := ParseFormat("wpl"); ok {
		t.Error("wpl is not a built-in format")
	}
	if FormatUnknown.String() != "unknown" || FormatUnknown.Extension() != "" {
		t.Error("unexpected FormatUnknown names")
	}
}

func TestRegistry(t *testing.T) {
	var empty Registry
	if _, err := empty.Codec(FormatM3U); !errors.Is(err, ErrNoCodec) {
		t.Errorf("zero registry Codec error = %v, want ErrNoCodec", err)
	}

	r := NewRegistry()
	for _, f := range Formats() {
		if _, err := r.Codec(f); err != nil {
			t.Errorf("Codec(%v): %v", f, err)
		}
	}

	r.RegisterCustom(".WPL", WPLCodec{})
	if _, ok := r.Custom("wpl"); !ok {
		t.Error("custom key lookup should ignore case and leading dot")
	}
	if keys := r.CustomKeys(); len(keys) != 1 || keys[0] != "wpl" {
		t.Errorf("CustomKeys = %v", keys)
	}

	if _, _, key, err := r.resolve("list.wpl", FormatUnknown, ""); err != nil || key != "wpl" {
		t.Errorf("resolve by custom extension = %q, %v", key, err)
	}
	if _, _, _, err := r.resolve("list.txt", FormatUnknown, ""); !errors.Is(err, ErrFormatUndetermined) {
		t.Errorf("resolve(.txt) error = %v, want ErrFormatUndetermined", err)
	}
	if _, _, _, err := r.resolve("list.m3u", FormatUnknown, "nope"); !errors.Is(err, ErrNoCodec) {
		t.Errorf("resolve unknown key error = %v, want ErrNoCodec", err)
	}
	if _, f, _, err := r.resolve("list.txt", FormatPLS, ""); err != nil || f != FormatPLS {
		t.Errorf("explicit format should win over extension: %v, %v", f, err)
	}
}

func TestM3UParse(t *testing.T) {
	text := "#EXTM3U\r\n" +
		"#EXTINF:123,Artist - Song, Live\r\n" +
		"/music/song.mp3\r\n" +
		"#EXTINF:-1,Radio\n" +
		"#EXTGRP:News\n" +
		"\n" +
		"http://stream.example.com/live\n" +
		"#EXTINF:12.9,\n" +
		"./music/../short.ogg\n" +
		"plain.mp3\n" +
		"#EXTINF:abc,Bad Duration\n" +
		"bad.mp3\n"

	entriesEqual(t, M3UCodec{}.Parse(text), []Entry{
		{Location: "/music/song.mp3", Title: "Artist - Song, Live", Duration: intp(123)},
		{Location: "http://stream.example.com/live", Title: "Radio"},
		{Location: "short.ogg", Duration: intp(12)},
		{Location: "plain.mp3"},
		{Location: "bad.mp3", Title: "Bad Duration"},
	})
}

func TestM3USerialize(t *testing.T) {
	entries := []Entry{
		{Location: "/music/song.mp3", Title: "Song", Duration: intp(123)},
		{Location: "http://stream.example.com/live", Title: "Radio"},
		{Location: "plain.mp3"},
	}

	tests := []struct {
		name     string
		original string
		want     string
	}{
		{
			name: "new document gets header",
			want: "#EXTM3U\n#EXTINF:123,Song\n/music/song.mp3\n#EXTINF:-1,Radio\nhttp://stream.example.com/live\nplain.mp3\n",
		},
		{
			name:     "original without header",
			original: "a.mp3\nb.mp3",
			want:     "#EXTINF:123,Song\n/music/song.mp3\n#EXTINF:-1,Radio\nhttp://stream.example.com/live\nplain.mp3\n",
		},
		{
			name:     "original with header",
			original: "  #EXTM3U\na.mp3",
			want:     "#EXTM3U\n#EXTINF:123,Song\n/music/song.mp3\n#EXTINF:-1,Radio\nhttp://stream.example.com/live\nplain.mp3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := M3UCodec{}.Serialize(entries, tt.original)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Serialize =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestM3URoundTrip(t *testing.T) {
	original := "#EXTM3U\n#EXTINF:200,First\n/a/1.mp3\n#EXTINF:-1,Second\n/a/2.mp3\n/a/3.mp3\n"
	c := M3UCodec{}
	first := c.Parse(original)
	text, err := c.Serialize(first, original)
	if err != nil {
		t.Fatal(err)
	}
	entriesEqual(t, c.Parse(text), first)
	if text != original {
		t.Errorf("round trip changed text:\n%q\n%q", original, text)
	}
}

func TestPLSParse(t *testing.T) {
	text := "[playlist]\nFile1=a.mp3\nTitle1=Song A\nLength1=180\nFile3=c.mp3\n"
	entriesEqual(t, PLSCodec{}.Parse(text), []Entry{
		{Location: "a.mp3", Title: "Song A", Duration: intp(180)},
		{Location: "c.mp3"},
	})
}

func TestPLSParseCaseAndOrder(t *testing.T) {
	text := "[Playlist]\n" +
		"numberofentries=3\n" +
		"TITLE2 = Second\n" +
		"file2 = http://radio.example.com/stream\n" +
		"Length2=-1\n" +
		"File1=/x/first.mp3\n" +
		"Length1=61.7\n" +
		"File0=ignored.mp3\n" +
		"Title9=orphan\n" +
		"garbage line\n" +
		"Version=2\n"

	entriesEqual(t, PLSCodec{}.Parse(text), []Entry{
		{Location: "/x/first.mp3", Duration: intp(61)},
		{Location: "http://radio.example.com/stream", Title: "Second"},
	})
}

func TestPLSSerialize(t *testing.T) {
	got, err := PLSCodec{}.Serialize([]Entry{
		{Location: "a.mp3", Title: "Song A", Duration: intp(180)},
		{Location: "c.mp3"},
	}, "[playlist]\nFile1=old.mp3\n")
	if err != nil {
		t.Fatal(err)
	}
	want := "[playlist]\nNumberOfEntries=2\n" +
		"File1=a.mp3\nTitle1=Song A\nLength1=180\n" +
		"File2=c.mp3\nTitle2=\nLength2=-1\n" +
		"Version=2\n"
	if got != want {
		t.Errorf("Serialize =\n%s\nwant\n%s", got, want)
	}
}

const sampleXSPF = `<?xml version="1.0" encoding="UTF-8"?>
<playlist version="1" xmlns="http://xspf.org/ns/0/">
  <title>Road Trip</title>
  <!-- curated by hand -->
  <annotation>Summer &amp; sun</annotation>
  <trackList>
    <track>
      <location> /music/a.mp3 </location>
      <title>A</title>
      <creator>Band</creator>
      <album>LP</album>
      <duration>215500</duration>
    </track>
    <track>
      <title>no location</title>
    </track>
    <track>
      <location>http://example.com/b.ogg</location>
      <duration>n/a</duration>
    </track>
  </trackList>
</playlist>
`

func TestXSPFParse(t *testing.T) {
	c := XSPFCodec{}
	entriesEqual(t, c.Parse(sampleXSPF), []Entry{
		{Location: "/music/a.mp3", Title: "A", Artist: "Band", Album: "LP", Duration: intp(215)},
		{Location: "http://example.com/b.ogg"},
	})
	if got := c.ReadTitle(sampleXSPF); got != "Road Trip" {
		t.Errorf("ReadTitle = %q", got)
	}
}

func TestXSPFParseMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"<playlist",
		`<playlist version="1"><trackList><track><location>a.mp3</location></track></trackList></playlist>`,
		`<smil xmlns="http://xspf.org/ns/0/"/>`,
	} {
		if got := (XSPFCodec{}).Parse(text); len(got) != 0 {
			t.Errorf("Parse(%q) = %+v, want empty", text, got)
		}
	}
}

func TestXSPFSerializeKeepsDocument(t *testing.T) {
	c := XSPFCodec{}
	entries := []Entry{
		{Location: "/music/new.flac", Title: "New", Duration: intp(61)},
		{Location: "http://example.com/x?a=1&b=2"},
	}
	got, err := c.Serialize(entries, sampleXSPF)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<playlist version="1" xmlns="http://xspf.org/ns/0/">`,
		"  <title>Road Trip</title>",
		"<!-- curated by hand -->",
		"<annotation>Summer &amp; sun</annotation>",
		"      <location>/music/new.flac</location>",
		"<duration>61000</duration>",
		"<location>http://example.com/x?a=1&amp;b=2</location>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "/music/a.mp3") {
		t.Error("old tracks should be replaced")
	}

	entriesEqual(t, c.Parse(got), entries)
	if c.ReadTitle(got) != "Road Trip" {
		t.Error("title lost on rewrite")
	}
}

func TestXSPFSerializeMinimal(t *testing.T) {
	c := XSPFCodec{}
	entries := []Entry{{Location: "a.mp3", Artist: "X", Album: "Y"}}

	for _, original := range []string{"", "not xml at all", "<smil><body/></smil>"} {
		got, err := c.Serialize(entries, original)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"<title>Playlist</title>", "<creator>Media Library</creator>", "<info/>", "<trackList>"} {
			if !strings.Contains(got, want) {
				t.Errorf("original %q: output missing %q:\n%s", original, want, got)
			}
		}
		entriesEqual(t, c.Parse(got), entries)
	}
}

func TestXSPFSerializeAddsTrackList(t *testing.T) {
	original := `<playlist version="1" xmlns="http://xspf.org/ns/0/"><title>Empty</title></playlist>`
	got, err := XSPFCodec{}.Serialize([]Entry{{Location: "a.mp3"}}, original)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<title>Empty</title>") || !strings.Contains(got, "<location>a.mp3</location>") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestJSONParseObject(t *testing.T) {
	got := JSONCodec{}.Parse(`{"tracks":[{"location":"x.mp3","bitrate":320}]}`)
	entriesEqual(t, got, []Entry{{Location: "x.mp3"}})
	want := map[string]any{"bitrate": int64(320)}
	if !reflect.DeepEqual(got[0].Metadata, want) {
		t.Errorf("metadata = %#v, want %#v", got[0].Metadata, want)
	}
}

func TestJSONParseArray(t *testing.T) {
	text := `[
		{"location": "a.mp3", "title": "A", "artist": "Art", "album": "Alb", "duration": 10.7, "gain": -3.5, "tags": ["x", 1]},
		{"title": "no location"},
		"not an object",
		{"location": "b.mp3", "title": 5, "duration": "long", "artist": null}
	]`
	got := JSONCodec{}.Parse(text)
	entriesEqual(t, got, []Entry{
		{Location: "a.mp3", Title: "A", Artist: "Art", Album: "Alb", Duration: intp(10),
			Metadata: map[string]any{"gain": -3.5, "tags": []any{"x", int64(1)}}},
		{Location: "b.mp3", Metadata: map[string]any{"title": int64(5), "duration": "long"}},
	})
}

func TestJSONParseMalformed(t *testing.T) {
	for _, text := range []string{"", "{", `{"tracks":[]} trailing`, `{"tracks":"nope"}`, "42"} {
		if got := (JSONCodec{}).Parse(text); len(got) != 0 {
			t.Errorf("Parse(%q) = %+v, want empty", text, got)
		}
	}
}

func TestJSONSerializeObjectShape(t *testing.T) {
	c := JSONCodec{}
	original := `{"tracks":[{"location":"x.mp3","bitrate":320}]}`
	got, err := c.Serialize(c.Parse(original), original)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"tracks\": [\n    {\n      \"location\": \"x.mp3\",\n      \"bitrate\": 320\n    }\n  ]\n}\n"
	if got != want {
		t.Errorf("Serialize =\n%s\nwant\n%s", got, want)
	}
}

func TestJSONSerializeArrayShape(t *testing.T) {
	c := JSONCodec{}
	original := `[{"location":"a.mp3","title":5}]`
	got, err := c.Serialize(c.Parse(original), original)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "[") {
		t.Fatalf("expected array shape, got:\n%s", got)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded[0]["title"] != float64(5) {
		t.Errorf("wrongly typed title should survive round trip, got %#v", decoded[0])
	}
}

func TestJSONSerializeKeepsTopLevelKeys(t *testing.T) {
	c := JSONCodec{}
	original := `{"name":"Mix","tracks":[]}`
	got, err := c.Serialize([]Entry{{Location: "a&b.mp3", Duration: intp(3)}}, original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["name"] != "Mix" {
		t.Errorf("top-level key lost: %s", got)
	}
	if !strings.Contains(got, `"a&b.mp3"`) {
		t.Errorf("locations should not be HTML escaped: %s", got)
	}
	if !strings.Contains(got, `"duration": 3`) {
		t.Errorf("duration missing: %s", got)
	}
}

func TestJSONFieldOrder(t *testing.T) {
	got, err := JSONCodec{}.Serialize([]Entry{{
		Location: "a.mp3", Title: "T", Artist: "A", Album: "L", Duration: intp(1),
		Metadata: map[string]any{"zeta": 1, "alpha": true},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}
	order := []string{`"location"`, `"title"`, `"artist"`, `"album"`, `"duration"`, `"alpha"`, `"zeta"`}
	last := -1
	for _, key := range order {
		i := strings.Index(got, key)
		if i <= last {
			t.Fatalf("key %s out of order in:\n%s", key, got)
		}
		last = i
	}
}

const sampleWPL = `<?wpl version="1.0"?>
<smil>
    <head>
        <meta name="Generator" content="Microsoft Windows Media Player -- 12.0"/>
        <meta name="ItemCount" content="3"/>
        <title>Favourites</title>
    </head>
    <body>
        <seq>
            <media src="..\Music\Artist\a.mp3" tid="{1}"/>
            <media src="http://radio.example.com/live.mp3"/>
            <media src=""/>
        </seq>
    </body>
</smil>
`

func TestWPLParse(t *testing.T) {
	c := WPLCodec{}
	entriesEqual(t, c.Parse(sampleWPL), []Entry{
		{Location: "../Music/Artist/a.mp3"},
		{Location: "http://radio.example.com/live.mp3"},
	})
	if got := c.ReadTitle(sampleWPL); got != "Favourites" {
		t.Errorf("ReadTitle = %q", got)
	}
	if got := c.Parse("<smil"); len(got) != 0 {
		t.Errorf("malformed WPL parsed to %+v", got)
	}
}

func TestWPLSerialize(t *testing.T) {
	c := WPLCodec{}
	entries := []Entry{{Location: "/music/x.mp3"}}

	got, err := c.Serialize(entries, sampleWPL)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<?wpl version="1.0"?>`, "<title>Favourites</title>", `name="ItemCount" content="1"`, `src="/music/x.mp3"`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	entriesEqual(t, c.Parse(got), entries)

	fresh, err := c.Serialize(entries, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fresh, "<title>Playlist</title>") {
		t.Errorf("fresh document missing default title:\n%s", fresh)
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"http://example.com/a.mp3":  true,
		"HTTPS://example.com/a.mp3": true,
		"ftp://example.com/a.mp3":   false,
		"/music/a.mp3":              false,
		"http:/broken":              false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}
