package chunk

import (
	"strings"

	"collegeseeker/types"

	"github.com/google/uuid"
)

// Splitter cuts document text into overlapping windows of at most Size runes.
// Adjacent windows share exactly Overlap runes while text remains.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, types.NewConfigError("chunk_size", "must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, types.NewConfigError("chunk_overlap", "must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, types.NewConfigError("chunk_overlap", "must be less than chunk_size (%d >= %d)", overlap, size)
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split returns the text windows in document order. Every rune of the input
// appears in at least one window.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	step := s.Size - s.Overlap
	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// SplitDocument produces the chunk records for a document, one per window,
// numbered by position. Chunks never cross document boundaries.
func (s *Splitter) SplitDocument(doc *types.Document, text string) []types.Chunk {
	parts := s.Split(text)
	chunks := make([]types.Chunk, len(parts))
	for i, content := range parts {
		chunks[i] = types.Chunk{
			ID:        uuid.New(),
			DocID:     doc.ID,
			Position:  i,
			Content:   content,
			SourceURL: doc.SourcePath,
		}
	}
	return chunks
}
