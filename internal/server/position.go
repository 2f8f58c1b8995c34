package server

import (
	"strings"

	"go.lsp.dev/protocol"
)

// LSP positions count UTF-16 code units; documents are stored as UTF-8.

func utf16Len(s string) int {
	count := 0
	for _, r := range s {
		if r >= 0x10000 {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// endPosition is the position just past the last character of content.
func endPosition(content string) protocol.Position {
	line := strings.Count(content, "\n")
	last := content[strings.LastIndexByte(content, '\n')+1:]
	return protocol.Position{Line: uint32(line), Character: uint32(utf16Len(last))}
}
