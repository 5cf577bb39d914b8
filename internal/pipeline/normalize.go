package pipeline

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	backtickRun        = regexp.MustCompile("`+")
)

// NormalizeText converts line endings to \n and keeps at most one blank line
// between paragraphs.
func NormalizeText(s string) string {
	s = crlfOrCR.ReplaceAllString(s, "\n")
	return multipleBlankLines.ReplaceAllString(s, "\n\n")
}

// FencedBlock wraps source in a Markdown code fence tagged with lang. The
// fence is one backtick longer than the longest run inside source, so the
// block cannot be closed early by the code it holds.
func FencedBlock(source []byte, lang string) []byte {
	longest := 2
	for _, run := range backtickRun.FindAll(source, -1) {
		if len(run) > longest {
			longest = len(run)
		}
	}
	fence := strings.Repeat("`", longest+1)

	body := crlfOrCR.ReplaceAll(source, []byte("\n"))

	var b bytes.Buffer
	b.Grow(len(body) + 2*len(fence) + len(lang) + 3)
	b.WriteString(fence)
	b.WriteString(lang)
	b.WriteByte('\n')
	b.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.Bytes()
}
