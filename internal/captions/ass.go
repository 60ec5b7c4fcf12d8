package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFont is the caption typeface.
const DefaultFont = "League Spartan"

const popIn = `{\fscx85\fscy85\t(0,80,\fscx100\fscy100)}`

// FormatTimestamp renders seconds as H:MM:SS.CC, rounding to the nearest
// centisecond and carrying into seconds, minutes and hours. Negative values
// render as zero.
func FormatTimestamp(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	cs := int64(math.Floor(sec*100 + 0.5))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	c := cs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, c)
}

// WriteASS writes an ASS document for events to w. The style of the first
// event selects the palette; an empty timeline still yields a valid header.
func WriteASS(w io.Writer, events []Event, font string) error {
	if font == "" {
		font = DefaultFont
	}
	style := 0
	if len(events) > 0 {
		style = events[0].StyleID
	}
	if style < 0 || style >= len(Palettes) {
		style = 0
	}
	pal := Palettes[style]

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
WrapStyle: 0

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Spk0,%s,120,%s,&H000000FF,%s,&H64000000,-1,0,0,0,100,100,0,0,1,10,3,2,10,10,400,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, font, pal.Primary, pal.Outline)

	for _, e := range events {
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Spk0,,0,0,0,,%s%s\n",
			FormatTimestamp(e.Start), FormatTimestamp(e.End), popIn, escapeASS(e.Text))
	}
	return bw.Flush()
}

// escapeASS keeps recognizer text from opening override blocks or breaking
// the line.
func escapeASS(s string) string {
	r := strings.NewReplacer("{", "(", "}", ")", "\n", " ", "\r", "")
	return r.Replace(s)
}

// WriteFile writes the ASS document to path atomically.
func WriteFile(path string, events []Event, font string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".captions-*.part")
	if err != nil {
		return fmt.Errorf("create captions temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteASS(tmp, events, font); err != nil {
		tmp.Close()
		return fmt.Errorf("write captions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync captions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close captions: %w", err)
	}
	return os.Rename(tmpName, path)
}
