// Package synonym maps natural-language vocabulary onto concrete schema
// fields. Given a classified schema it builds a flat lookup from lowercase
// tokens and phrases to field names, plus a lookup of known location values
// derived from location-like categorical fields.
package synonym

import (
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/chatdb/internal/schema"
)

// families is the fixed table of semantic keyword families. A field whose
// name tokenizes into a family's list (or contains the family key as a
// substring) inherits the family's whole synonym list.
//
// The "name" family is the artist-related list: the catalogue historically
// carried a generic name list as well, and the artist list was the one that
// survived; keeping a single definition makes the shadowing explicit.
var families = map[string][]string{
	"id":       {"id", "identifier"},
	"category": {"category", "categories", "classification", "product category", "department"},
	"product":  {"product", "products", "item", "model", "phone model", "phones", "phone"},
	"type":     {"type", "types", "kind", "product type", "os", "os type", "os types"},
	"location": {"location", "locations", "place", "branch", "area", "store location", "store_location", "store", "stores", "city"},
	"date":     {"date", "day", "time", "transaction_date", "launch_date", "release_date"},
	"amount":   {"amount", "value"},
	"price":    {"price", "unit price", "cost", "price_usd"},
	"quantity": {"quantity", "quantities", "qty", "transaction_qty", "count", "number"},
	"brand":    {"phone brand", "brand", "brands"},
	"model":    {"phone model", "model", "models"},
	"song":     {"song", "track", "songs", "tracks"},
	"track":    {"song", "track", "songs", "tracks"},
	"stream":   {"stream", "streams", "streamed"},
	"name":     {"artist", "artists", "singer", "singer names", "artist names", "students", "student names"},
	"gpa":      {"gpa", "grade", "score", "gpa score"},
	"gender":   {"gender"},
	"department": {"department", "departments"},
}

// Map resolves lowercase tokens and phrases to concrete field names.
type Map map[string]string

// Locations resolves lowercase location strings to their canonical stored
// casing.
type Locations map[string]string

var tokenSplit = regexp.MustCompile(`[_\s]+`)

// Build derives the synonym map and location lookup from a classification.
//
// Every field contributes its own lowercase name plus the synonyms of any
// family it matches. Fields are visited in a deterministic order; a synonym
// shared by several fields resolves to the field visited last
// (last-write-wins, the accepted ambiguity of the scheme). Priority
// defaults flagged during classification are applied afterward so they
// cannot be shadowed by ordinary field iteration.
func Build(c *schema.Classification) (Map, Locations) {
	m := make(Map)

	fields := c.Fields()
	sort.Strings(fields)
	for _, field := range fields {
		for _, syn := range fieldSynonyms(field) {
			m[syn] = field
		}
	}

	// Priority keys (quantity, price, product, name, date, location,
	// streams) resolved during classification win over family synonyms.
	for key, field := range c.Defaults {
		m[key] = field
	}

	locs := make(Locations)
	for _, field := range c.LocationFields {
		stats, ok := c.Categorical[field]
		if !ok {
			continue
		}
		for _, v := range stats.Values {
			locs[strings.ToLower(v)] = v
		}
	}

	return m, locs
}

// fieldSynonyms generates the synonym list for one field name: the name
// itself plus every matching family's full list.
func fieldSynonyms(field string) []string {
	lower := strings.ToLower(field)
	syns := []string{lower}

	tokens := tokenSplit.Split(lower, -1)
	seen := map[string]bool{lower: true}
	for key, values := range families {
		if !familyMatches(lower, tokens, key, values) {
			continue
		}
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				syns = append(syns, v)
			}
		}
	}
	return syns
}

func familyMatches(lowerField string, tokens []string, key string, values []string) bool {
	if strings.Contains(lowerField, key) {
		return true
	}
	for _, tok := range tokens {
		for _, v := range values {
			if tok == v {
				return true
			}
		}
	}
	return false
}

// Resolve looks up a token, falling back to the token itself when unknown.
func (m Map) Resolve(token string) string {
	if field, ok := m[strings.ToLower(token)]; ok {
		return field
	}
	return token
}

// ResolveField looks up a possibly multi-word phrase against the map.
// A direct hit wins; otherwise the first word is tried, then every word in
// order. Returns "" when nothing matches.
func (m Map) ResolveField(phrase string) string {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if field, ok := m[lower]; ok {
		return field
	}
	words := strings.Fields(lower)
	if len(words) == 0 {
		return ""
	}
	if field, ok := m[words[0]]; ok {
		return field
	}
	for _, w := range words {
		if field, ok := m[w]; ok {
			return field
		}
	}
	return ""
}

// Get looks up a key with an explicit fallback, mirroring registry-default
// resolution at pattern materialization time.
func (m Map) Get(key, fallback string) string {
	if field, ok := m[key]; ok {
		return field
	}
	return fallback
}

// Known returns the sorted synonym vocabulary, used in guidance messages.
func (m Map) Known() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Match scans a joined keyword string for any known location, returning
// its canonical casing. Keys are matched as substrings, so "hell's" finds
// "Hell's Kitchen".
func (l Locations) Match(keywords []string) string {
	combined := strings.ToLower(strings.Join(keywords, " "))
	keys := make([]string, 0, len(l))
	for key := range l {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.Contains(combined, key) {
			return l[key]
		}
	}
	return ""
}
