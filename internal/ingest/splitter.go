package ingest

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/pkoukk/tiktoken-go"

	"github.com/kjstillabower/agri-advisor/internal/retriever"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Tokenizer converts text to tokens and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenizer) Encode(text string) []int   { return t.enc.Encode(text, nil, nil) }
func (t tiktokenizer) Decode(tokens []int) string { return t.enc.Decode(tokens) }

// NewTiktokenizer returns the cl100k_base tokenizer. The encoding file is
// fetched on first use and cached under TIKTOKEN_CACHE_DIR.
func NewTiktokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoding: %w", err)
	}
	return tiktokenizer{enc: enc}, nil
}

// Splitter cuts pages into overlapping token windows.
type Splitter struct {
	size      int
	overlap   int
	tokenizer Tokenizer
}

// NewSplitter validates the window. overlap must be smaller than size.
func NewSplitter(tok Tokenizer, size, overlap int) (*Splitter, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap, tokenizer: tok}, nil
}

// Split returns one document per window, carrying the page's source and page
// number as metadata.
func (s *Splitter) Split(pages []Page) []chromem.Document {
	var docs []chromem.Document
	step := s.size - s.overlap
	for _, p := range pages {
		tokens := s.tokenizer.Encode(p.Text)
		for start := 0; start < len(tokens); start += step {
			end := start + s.size
			if end > len(tokens) {
				end = len(tokens)
			}
			docs = append(docs, chromem.Document{
				ID:      uuid.New().String(),
				Content: s.tokenizer.Decode(tokens[start:end]),
				Metadata: map[string]string{
					retriever.MetaSource: p.Source,
					retriever.MetaPage:   strconv.Itoa(p.Page),
				},
			})
			if end == len(tokens) {
				break
			}
		}
	}
	return docs
}
