package document

// SuggestionKind identifies the suggester that produced a suggestion.
type SuggestionKind int

const (
	TermSuggestion SuggestionKind = iota
	PhraseSuggestion
	CompletionSuggestion
)

func (k SuggestionKind) String() string {
	switch k {
	case TermSuggestion:
		return "term"
	case PhraseSuggestion:
		return "phrase"
	case CompletionSuggestion:
		return "completion"
	default:
		return "unknown"
	}
}

// Suggest holds every named suggestion of a response.
type Suggest struct {
	Suggestions []Suggestion
	// HasScoreDocs is true when at least one completion option carried a
	// source document.
	HasScoreDocs bool
}

// Get returns the suggestion called name.
func (s *Suggest) Get(name string) (*Suggestion, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Suggestions {
		if s.Suggestions[i].Name == name {
			return &s.Suggestions[i], true
		}
	}
	return nil, false
}

// Suggestion is one named suggester result.
type Suggestion struct {
	Name    string
	Kind    SuggestionKind
	Entries []SuggestEntry
}

// SuggestEntry is the suggestion for one token (term/phrase) or one input
// text (completion).
type SuggestEntry struct {
	Text    string
	Offset  int
	Length  int
	Options []SuggestOption
	// CutoffScore is only reported by phrase suggesters.
	CutoffScore *float64
}

// SuggestOption is one candidate of an entry. Fields that do not apply to
// the suggestion kind stay zero.
type SuggestOption struct {
	Text        string
	Highlighted string
	Score       float64

	// Term suggestions.
	Freq int64

	// Phrase suggestions.
	CollateMatch *bool

	// Completion suggestions.
	Index    string
	ID       string
	Document *Document
	Contexts map[string][]string
	// Entity is built from Document by the caller-supplied factory. It is nil
	// when the option has no source or the factory failed.
	Entity any
}
