// Package captions builds the word-by-word caption timeline and renders it as
// an ASS subtitle document for the renderer to burn in.
package captions

import (
	"hash/fnv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Word is one recognized word with recognizer timestamps in seconds,
// relative to the start of the audio segment.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Event is one caption flashed on screen.
type Event struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	StyleID int     `json:"style_id"`
}

// Palette is an ASS primary/outline colour pair (&HAABBGGRR).
type Palette struct {
	Name    string
	Primary string
	Outline string
}

// Palettes are the caption colour schemes a job may be given.
var Palettes = []Palette{
	{Name: "yellow", Primary: "&H0000FFFF", Outline: "&H00000000"},
	{Name: "white", Primary: "&H00FFFFFF", Outline: "&H00000000"},
	{Name: "neon-green", Primary: "&H0000FF00", Outline: "&H00000000"},
	{Name: "cyan", Primary: "&H00FFFF00", Outline: "&H00000000"},
	{Name: "red", Primary: "&H000000FF", Outline: "&H00000000"},
	{Name: "purple", Primary: "&H00FF00FF", Outline: "&H00000000"},
	{Name: "orange", Primary: "&H0000A5FF", Outline: "&H00000000"},
}

// PickStyle returns the palette index for a job. A fixed index in range is
// used as is; otherwise the index is derived from seed so a job keeps the
// same palette across retries.
func PickStyle(fixed int, seed string) int {
	if fixed >= 0 && fixed < len(Palettes) {
		return fixed
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return int(h.Sum32() % uint32(len(Palettes)))
}

// Build converts recognizer words into caption events, one per non-empty
// word, in recognizer order. Words are never merged or reordered.
func Build(words []Word, styleID int) []Event {
	upper := cases.Upper(language.Und)
	events := make([]Event, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		events = append(events, Event{
			Start:   w.Start,
			End:     w.End,
			Text:    upper.String(text),
			StyleID: styleID,
		})
	}
	return events
}
