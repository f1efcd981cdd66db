package query

// SuggestKind selects the suggester of a suggestion request.
type SuggestKind int

const (
	SuggestTerm SuggestKind = iota
	SuggestPhrase
	SuggestCompletion
)

func (k SuggestKind) String() string {
	switch k {
	case SuggestPhrase:
		return "phrase"
	case SuggestCompletion:
		return "completion"
	default:
		return "term"
	}
}

// Suggestion is one named suggester.
type Suggestion struct {
	Name  string
	Kind  SuggestKind
	Field string
	// Text overrides SuggestBuilder.GlobalText. Completion suggesters use
	// Prefix or Regex instead.
	Text           string
	Prefix         string
	Regex          string
	Size           *int
	SkipDuplicates bool
	Analyzer       string
	// Fuzzy enables fuzzy matching on completion suggesters.
	Fuzzy *SuggestFuzzy
	// Contexts filters completion suggesters by category name.
	Contexts map[string][]string
}

// SuggestFuzzy configures completion suggester fuzziness.
type SuggestFuzzy struct {
	Fuzziness      string
	Transpositions *bool
	MinLength      *int
	PrefixLength   *int
}

// SuggestBuilder collects suggesters attached to a search.
type SuggestBuilder struct {
	GlobalText  string
	Suggestions []Suggestion
}

// Add appends a suggester and returns b.
func (b *SuggestBuilder) Add(s Suggestion) *SuggestBuilder {
	b.Suggestions = append(b.Suggestions, s)
	return b
}

// IsEmpty reports whether no suggester is configured.
func (b *SuggestBuilder) IsEmpty() bool { return b == nil || len(b.Suggestions) == 0 }
