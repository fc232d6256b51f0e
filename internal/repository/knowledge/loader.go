package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	domknow "github.com/kailas-cloud/expatscout/internal/domain/knowledge"
)

// Item is one raw entry of an ingestion file.
type Item struct {
	Content  string         `json:"content"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

type jsonFile struct {
	Documents []Item `json:"documents"`
}

// ReadFile loads ingestion items from a .json or .parquet file.
func ReadFile(path string) ([]Item, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return readJSON(path)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("unsupported knowledge file extension %q", ext)
	}
}

func readJSON(path string) ([]Item, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f jsonFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Documents, nil
}

// readParquet reads the content, category and metadata columns by name, so
// files with extra or reordered columns load as well.
func readParquet(path string) ([]Item, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	cols := map[string]int{"content": -1, "category": -1, "metadata": -1}
	for i, col := range pf.Schema().Columns() {
		if _, ok := cols[col[0]]; ok {
			cols[col[0]] = i
		}
	}
	if cols["content"] < 0 {
		return nil, fmt.Errorf("%s: content column not found", path)
	}

	var items []Item
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 256)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := range n {
				it, err := rowToItem(buf[i], cols)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", len(items), err)
				}
				items = append(items, it)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return items, nil
}

func rowToItem(row parquet.Row, cols map[string]int) (Item, error) {
	var it Item
	var md string
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols["content"]:
			it.Content = v.String()
		case cols["category"]:
			it.Category = v.String()
		case cols["metadata"]:
			md = v.String()
		}
	}
	if strings.TrimSpace(md) != "" {
		if err := json.Unmarshal([]byte(md), &it.Metadata); err != nil {
			return Item{}, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return it, nil
}

// Documents converts items to documents with fresh ids. Blank items are skipped.
func Documents(items []Item) []domknow.Document {
	docs := make([]domknow.Document, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Content) == "" {
			continue
		}
		docs = append(docs, domknow.NewDocument(it.Content, it.Category, it.Metadata))
	}
	return docs
}

// LoadDocuments reads an ingestion file and converts it to documents.
func LoadDocuments(path string) ([]domknow.Document, error) {
	items, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Documents(items), nil
}
