package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/wire"
)

// EntityFactory builds the entity of a completion suggestion option from
// its source document.
type EntityFactory func(doc *document.Document) (any, error)

type optionRaw struct {
	Text         string              `json:"text"`
	Highlighted  string              `json:"highlighted"`
	Score        float64             `json:"score"`
	Freq         *int64              `json:"freq"`
	CollateMatch *bool               `json:"collate_match"`
	Index        string              `json:"_index"`
	ID           string              `json:"_id"`
	Source       json.RawMessage     `json:"_source"`
	Contexts     map[string][]string `json:"contexts"`
}

func (o *optionRaw) kind() document.SuggestionKind {
	switch {
	case o.ID != "" || o.Index != "" || len(o.Source) > 0:
		return document.CompletionSuggestion
	case o.Freq != nil:
		return document.TermSuggestion
	default:
		return document.PhraseSuggestion
	}
}

// Suggest maps the suggest section of a search response. With typed keys
// every name reads "kind#name" and carries its suggester; otherwise the
// suggester is recognized from the options, and a suggestion without options
// reads as a term suggestion. A completion option whose entity cannot be
// built is kept with a nil Entity.
func Suggest(raw map[string][]wire.SuggestEntryRaw, typed bool, factory EntityFactory) (*document.Suggest, error) {
	out := &document.Suggest{}
	for key, entries := range raw {
		s := document.Suggestion{Name: key, Kind: document.TermSuggestion}
		kindSet := false
		if typed {
			if kind, name, ok := typedSuggestion(key); ok {
				s.Name, s.Kind, kindSet = name, kind, true
			}
		}
		for _, e := range entries {
			entry := document.SuggestEntry{Text: e.Text, Offset: e.Offset, Length: e.Length}
			for i, rawOpt := range e.Options {
				var o optionRaw
				if err := json.Unmarshal(rawOpt, &o); err != nil {
					return nil, fmt.Errorf("decoding option %d of suggestion %q: %w", i, s.Name, err)
				}
				if !kindSet {
					s.Kind, kindSet = o.kind(), true
				}
				opt, err := option(&o, s.Kind, factory)
				if err != nil {
					return nil, fmt.Errorf("mapping option %d of suggestion %q: %w", i, s.Name, err)
				}
				if opt.Document != nil {
					out.HasScoreDocs = true
				}
				entry.Options = append(entry.Options, opt)
			}
			s.Entries = append(s.Entries, entry)
		}
		out.Suggestions = append(out.Suggestions, s)
	}
	sort.Slice(out.Suggestions, func(i, j int) bool {
		return out.Suggestions[i].Name < out.Suggestions[j].Name
	})
	return out, nil
}

// typedSuggestion splits a typed key such as "completion#song".
func typedSuggestion(key string) (document.SuggestionKind, string, bool) {
	prefix, name, ok := strings.Cut(key, "#")
	if !ok {
		return 0, key, false
	}
	switch prefix {
	case "term":
		return document.TermSuggestion, name, true
	case "phrase":
		return document.PhraseSuggestion, name, true
	case "completion":
		return document.CompletionSuggestion, name, true
	}
	return 0, key, false
}

func option(o *optionRaw, kind document.SuggestionKind, factory EntityFactory) (document.SuggestOption, error) {
	opt := document.SuggestOption{
		Text:         o.Text,
		Highlighted:  o.Highlighted,
		Score:        o.Score,
		CollateMatch: o.CollateMatch,
		Index:        o.Index,
		ID:           o.ID,
		Contexts:     o.Contexts,
	}
	if o.Freq != nil {
		opt.Freq = *o.Freq
	}
	if kind != document.CompletionSuggestion {
		return opt, nil
	}
	if len(o.Source) > 0 && !bytes.Equal(o.Source, []byte("null")) {
		doc, err := document.Parse(o.Source)
		if err != nil {
			return opt, err
		}
		doc.ID, doc.Index = o.ID, o.Index
		opt.Document = doc
	}
	if factory != nil && opt.Document != nil {
		entity, err := factory(opt.Document)
		if err != nil {
			slog.Warn("could not build suggestion entity", "index", o.Index, "id", o.ID, "error", err)
		} else {
			opt.Entity = entity
		}
	}
	return opt, nil
}
