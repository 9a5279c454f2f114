// Package pattern matches free-text questions against an ordered catalogue
// of query shapes and compiles the first hit into an executable query.
//
// A Session owns everything compilation needs: the classified schema, the
// synonym map, the location lookup, and the materialized pattern registry.
// Sessions are built once per table or collection and are read-only
// afterward; constructing a fresh Session per test keeps compilation
// deterministic.
package pattern

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/chatdb/internal/queryplan"
	"github.com/roach88/chatdb/internal/schema"
	"github.com/roach88/chatdb/internal/synonym"
)

// Backend selects which catalogue a Session materializes.
type Backend string

// Supported backends.
const (
	BackendSQL      Backend = "sql"
	BackendDocument Backend = "document"
)

// Compiled is an executable query produced by a pattern handler. Exactly
// one of SQL or Doc is populated, matching the session's backend.
type Compiled struct {
	Pattern string // id of the pattern that produced the query
	SQL     *queryplan.SQL
	Doc     *queryplan.Op
}

// Input carries the analyzed form of one user question into handlers.
type Input struct {
	Raw      string   // original text
	Lower    string   // lowercased, NFC-normalized text
	Keywords []string // stop-word-stripped tokens, synonym-normalized
}

// Handler compiles one matched pattern. m holds the regexp submatches of
// the raw input. A nil Compiled means the handler could not resolve a
// field, date, or entity; the string then carries guidance for the user.
type Handler func(m []string, in *Input) (*Compiled, string)

// Entry is one registered pattern. Entries are scanned in registration
// order and the first regexp hit wins, even when its handler fails.
type Entry struct {
	ID     string
	Regexp *regexp.Regexp
	Handle Handler
}

// Session is the per-table compilation context.
type Session struct {
	ID        uuid.UUID
	Backend   Backend
	Class     *schema.Classification
	Synonyms  synonym.Map
	Locations synonym.Locations

	entries []Entry
	log     *slog.Logger
	now     func() time.Time
}

// Option adjusts Session construction.
type Option func(*Session)

// WithClock overrides the clock used for year-less date phrases.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession builds the synonym map, location lookup, and pattern registry
// for one classified table or collection.
func NewSession(backend Backend, class *schema.Classification, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:      uuid.Must(uuid.NewV7()),
		Backend: backend,
		Class:   class,
		log:     logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Synonyms, s.Locations = synonym.Build(class)
	switch backend {
	case BackendDocument:
		s.entries = s.documentEntries()
	default:
		s.entries = s.sqlEntries()
	}
	s.log = logger.With("session", s.ID.String(), "source", class.Source)
	return s
}

// Entries exposes the materialized registry in scan order.
func (s *Session) Entries() []Entry {
	return s.entries
}

// helpText is returned when no pattern regexp matches at all.
const helpText = "I couldn't understand your query. Try one of the following examples:\n" +
	"- Total sales by category\n" +
	"- Total revenue for the store in Manhattan\n" +
	"- Top 5 best-selling products"

const invalidLimitMsg = "Invalid limit specified. Please provide a number (e.g., 'top 5 best-selling products')."

const unknownLocationMsg = "Could not determine the location. Please specify a valid store."

const dateFormatHint = "Try formats like 'January 1, 2023', 'January, 2023', or '2023'."

// Compile matches input against the registry and dispatches the first
// pattern whose regexp hits. All failures come back as a nil query plus a
// message; compilation never panics on user input.
func (s *Session) Compile(input string) (*Compiled, string) {
	in := s.analyze(input)

	for _, e := range s.entries {
		m := e.Regexp.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		s.log.Debug("pattern matched", "pattern", e.ID)
		compiled, desc := e.Handle(m, in)
		if compiled != nil {
			compiled.Pattern = e.ID
		}
		// First match wins: no further patterns are tried even when
		// the handler could not resolve its fields.
		return compiled, desc
	}

	s.log.Debug("no pattern matched")
	return nil, helpText
}

// stopWords is the fixed exclusion set of common function words stripped
// before keyword normalization.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true,
	"by": true, "in": true, "on": true, "at": true, "to": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "am": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "will": true, "would": true,
	"shall": true, "should": true, "can": true, "could": true,
	"may": true, "might": true, "must": true, "and": true, "or": true,
	"but": true, "if": true, "with": true, "about": true, "into": true,
	"through": true, "during": true, "each": true, "every": true,
	"this": true, "that": true, "these": true, "those": true,
	"what": true, "which": true, "who": true, "how": true, "much": true,
	"many": true, "me": true, "i": true, "you": true, "it": true,
	"from": true, "as": true, "so": true, "than": true, "please": true,
	"show": true, "give": true, "tell": true,
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+(?:'[a-z0-9]+)?`)

// analyze tokenizes and normalizes one line of input. Multi-word synonym
// phrases are matched first against the raw lowercased text; their tokens
// are excluded from single-word resolution so a phrase is never resolved
// twice.
func (s *Session) analyze(input string) *Input {
	lower := strings.ToLower(norm.NFC.String(input))
	tokens := wordPattern.FindAllString(lower, -1)

	var keywords []string
	consumed := map[string]bool{}

	for _, phrase := range s.Synonyms.Known() {
		if !strings.Contains(phrase, " ") {
			continue
		}
		if strings.Contains(lower, phrase) {
			keywords = append(keywords, s.Synonyms[phrase])
			for _, tok := range strings.Fields(phrase) {
				consumed[tok] = true
			}
		}
	}

	for _, tok := range tokens {
		if stopWords[tok] || consumed[tok] {
			continue
		}
		keywords = append(keywords, s.Synonyms.Resolve(tok))
	}

	return &Input{Raw: input, Lower: lower, Keywords: keywords}
}

// entry compiles a catalogue regexp case-insensitively. Catalogue regexps
// are fixed strings; a bad one is a programming error.
func entry(id, expr string, h Handler) Entry {
	return Entry{ID: id, Regexp: regexp.MustCompile(`(?i)` + expr), Handle: h}
}

// unknownField formats the guidance message for an unresolvable field
// reference, listing the vocabulary the session knows.
func (s *Session) unknownField(raw string) string {
	return "Field '" + raw + "' not recognized. Try one of: " +
		strings.Join(s.Synonyms.Known(), ", ")
}

// findCategoricalValue locates which categorical field stores a value
// equal to phrase (case-insensitive). Returns the field and the value's
// canonical casing.
func (s *Session) findCategoricalValue(phrase string) (field, value string, ok bool) {
	want := strings.ToLower(strings.TrimSpace(phrase))
	for _, name := range sortedKeys(s.Class.Categorical) {
		for _, v := range s.Class.Categorical[name].Values {
			if strings.ToLower(v) == want {
				return name, v, true
			}
		}
	}
	return "", "", false
}

// matchCategoricalValue finds the canonical casing of a value within one
// field's known distinct values, matching by case-insensitive substring.
func (s *Session) matchCategoricalValue(field, raw string) (string, bool) {
	stats, ok := s.Class.Categorical[field]
	if !ok {
		return "", false
	}
	want := strings.ToLower(raw)
	for _, v := range stats.Values {
		if strings.Contains(strings.ToLower(v), want) {
			return v, true
		}
	}
	return "", false
}

// sortedKeys gives a deterministic scan order; ties between fields
// holding the same value resolve alphabetically.
func sortedKeys(m map[string]schema.CategoricalStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
