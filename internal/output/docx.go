package output

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

// WriteDocx renders the transcript as a styled document: a title, a
// metadata line, then one timestamped paragraph per non-empty segment.
func WriteDocx(path, title string, rec TranscriptRecord) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create docx: %w", err)
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	metaLine := fmt.Sprintf("%s | %.1f min | language: %s | engine: %s (%s)",
		rec.CreatedAt, rec.DurationSec/60, rec.Language,
		rec.Metadata.Engine, rec.Metadata.Model)
	addStyledRun(doc.AddParagraph(""), metaLine, false, 10)
	doc.AddParagraph("")

	for _, seg := range rec.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		line := fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start), text)
		addStyledRun(doc.AddParagraph(""), line, false, fontSize)
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save docx: %w", err)
	}
	return nil
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
