package chat

import (
	"encoding/json"
	"io"

	"github.com/nulzo/chat-router/internal/llm"
)

// ContentType of the data stream written by WriteChunk.
const ContentType = "text/plain; charset=utf-8"

// WriteChunk encodes one chunk in the browser data-stream format: text as
// 0:<json string> lines and the end of the stream as a bare d: line.
func WriteChunk(w io.Writer, c llm.StreamChunk) error {
	switch c.Type {
	case llm.ChunkTextDelta:
		b, err := json.Marshal(c.TextDelta)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "0:"); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		_, err = io.WriteString(w, "\n")
		return err
	case llm.ChunkFinish:
		_, err := io.WriteString(w, "d:\n")
		return err
	}
	return nil
}
