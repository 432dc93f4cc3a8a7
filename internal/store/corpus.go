package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
)

// maxCorpusLine bounds a single JSONL record.
const maxCorpusLine = 4 * 1024 * 1024

// corpusLine is one JSON Lines record:
//
//	{"id":"c1","text":"...","metadata":{"document_id":"42","line_start":10,...}}
type corpusLine struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// ReadJSONL parses JSON Lines records. Blank lines and lines starting with
// '#' are skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxCorpusLine)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var cl corpusLine
		if err := json.Unmarshal([]byte(line), &cl); err != nil {
			return nil, ctxerrors.New(ctxerrors.ErrCodeCorpusInvalid,
				fmt.Sprintf("line %d: invalid JSON", lineNo), err)
		}
		if cl.ID == "" {
			return nil, ctxerrors.New(ctxerrors.ErrCodeCorpusInvalid,
				fmt.Sprintf("line %d: missing id", lineNo), nil)
		}
		if cl.Metadata == nil {
			cl.Metadata = map[string]any{}
		}
		records = append(records, Record{ID: cl.ID, Text: cl.Text, Metadata: cl.Metadata})
	}
	if err := scanner.Err(); err != nil {
		return nil, ctxerrors.New(ctxerrors.ErrCodeCorpusInvalid, "read corpus", err)
	}
	return records, nil
}

// LoadJSONL reads a JSON Lines corpus file into idx.
func LoadJSONL(ctx context.Context, idx *LocalIndex, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, ctxerrors.New(ctxerrors.ErrCodeFileNotFound, "open corpus "+path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadJSONL(f)
	if err != nil {
		return 0, err
	}
	if err := idx.Add(ctx, records); err != nil {
		return 0, ctxerrors.New(ctxerrors.ErrCodeCorpusInvalid, "index corpus "+path, err)
	}
	return len(records), nil
}
