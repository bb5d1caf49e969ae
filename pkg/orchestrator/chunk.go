package orchestrator

import "strings"

// ChunkText splits text into chunks of approximately maxChars size,
// preserving paragraph boundaries when possible. It only splits within a
// paragraph when that paragraph alone exceeds maxChars.
func ChunkText(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for i, para := range paragraphs {
		paraLen := len(para)

		if paraLen > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
				currentLen = 0
			}
			chunks = append(chunks, chunkParagraph(para, maxChars)...)
			continue
		}

		separator := ""
		if current.Len() > 0 {
			separator = "\n\n"
		}
		newLen := currentLen + len(separator) + paraLen

		if newLen > maxChars && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(para)
			currentLen = paraLen
		} else {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			currentLen = newLen
		}

		if i == len(paragraphs)-1 && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
		}
	}

	return chunks
}

// chunkParagraph splits a single over-long paragraph at the last sentence,
// newline, or word boundary it finds before maxChars, falling back to a
// hard cut only when no boundary exists past the minimum chunk size.
func chunkParagraph(para string, maxChars int) []string {
	var chunks []string
	remaining := para

	for len(remaining) > 0 {
		if len(remaining) <= maxChars {
			chunks = append(chunks, strings.TrimSpace(remaining))
			break
		}

		chunkEnd := maxChars
		minChunkSize := maxChars / 3
		breakPoint := -1

		if idx := strings.LastIndex(remaining[:chunkEnd], ". "); idx > minChunkSize {
			breakPoint = idx + 2
		} else if idx := strings.LastIndex(remaining[:chunkEnd], "! "); idx > minChunkSize {
			breakPoint = idx + 2
		} else if idx := strings.LastIndex(remaining[:chunkEnd], "? "); idx > minChunkSize {
			breakPoint = idx + 2
		} else if idx := strings.LastIndex(remaining[:chunkEnd], "\n"); idx > minChunkSize {
			breakPoint = idx + 1
		} else if idx := strings.LastIndex(remaining[:chunkEnd], " "); idx > minChunkSize {
			breakPoint = idx + 1
		} else {
			breakPoint = maxChars
		}

		chunks = append(chunks, strings.TrimSpace(remaining[:breakPoint]))
		remaining = remaining[breakPoint:]
	}

	return chunks
}
