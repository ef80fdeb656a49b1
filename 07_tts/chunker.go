package tts

import "strings"

// Blocks splits a finalized script for synthesis. [breath] reads as a plain
// space; [pause] separates blocks. Each block is cut into chunks of at most
// cap characters on sentence boundaries; a single sentence longer than cap
// is hard-split at the cap.
func Blocks(script string, cap int) [][]string {
	s := strings.ReplaceAll(script, "[breath]", " ")
	var blocks [][]string
	for _, part := range strings.Split(s, "[pause]") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blocks = append(blocks, chunkBlock(part, cap))
	}
	return blocks
}

func chunkBlock(block string, cap int) []string {
	sentences := splitSentences(block)
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	for _, sent := range sentences {
		for len(sent) > cap {
			flush()
			chunks = append(chunks, strings.TrimSpace(sent[:cap]))
			sent = strings.TrimSpace(sent[cap:])
		}
		if sent == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(sent) > cap {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sent)
	}
	flush()
	return chunks
}

// splitSentences cuts on '.', '!', '?' followed by whitespace, keeping the
// punctuation with the preceding sentence.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' || s[i+1] == '\t' || s[i+1] == '\n' {
				if sent := strings.TrimSpace(s[start : i+1]); sent != "" {
					out = append(out, sent)
				}
				start = i + 1
			}
		}
	}
	if sent := strings.TrimSpace(s[start:]); sent != "" {
		out = append(out, sent)
	}
	return out
}
