package render

import "bytes"

type LineEnding string

const (
	LF   LineEnding = "\n"
	CRLF LineEnding = "\r\n"
)

// DetectLineEnding returns the terminator of the first line, or LF when the
// input has no line break.
func DetectLineEnding(src []byte) LineEnding {
	i := bytes.IndexByte(src, '\n')
	if i > 0 && src[i-1] == '\r' {
		return CRLF
	}
	return LF
}

// Render joins lines with le and ends the output with exactly one line
// terminator. Line breaks embedded in a line are written as they are.
// No lines render as an empty buffer.
func Render(lines []string, le LineEnding) []byte {
	if len(lines) == 0 {
		return []byte{}
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString(string(le))
	}
	return buf.Bytes()
}
