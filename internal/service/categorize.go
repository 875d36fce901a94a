package service

import (
	"math"
	"sort"
	"strings"

	"github.com/karigai-ops/backend/internal/models"
)

// CatalogRule maps free-text answers onto one canonical label. Phrases are
// worth more than single tokens so "easy to prepare" beats a stray "taste".
type CatalogRule struct {
	Label   string
	Phrases []string
	Tokens  []string
}

// fieldCatalogs holds the hand-curated keyword rules per survey field.
// Fields without an entry fall back to the generic catalog, and anything
// the catalog misses goes through the dynamic labeler.
var fieldCatalogs = map[string][]CatalogRule{
	"liked_features": {
		{Label: "Taste / Flavor", Phrases: []string{"good taste", "great flavor", "great flavour", "nice taste"}, Tokens: []string{"taste", "tasty", "flavor", "flavour", "delicious"}},
		{Label: "Convenience / Easy to prepare", Phrases: []string{"easy to prepare", "easy to cook", "ready to cook", "quick to make"}, Tokens: []string{"easy", "convenient", "quick", "instant", "prepare"}},
		{Label: "Health / Nutrition", Phrases: []string{"good for health"}, Tokens: []string{"healthy", "health", "nutrition", "nutritious", "organic", "natural"}},
		{Label: "Packaging", Tokens: []string{"packaging", "packing", "packed", "box"}},
		{Label: "Price / Value", Phrases: []string{"value for money"}, Tokens: []string{"price", "affordable", "cheap", "value"}},
	},
	"improvements": {
		{Label: "Price / Value", Phrases: []string{"too costly", "too expensive"}, Tokens: []string{"price", "cost", "costly", "expensive", "discount"}},
		{Label: "Packaging", Tokens: []string{"packaging", "packing", "leak", "seal", "box"}},
		{Label: "Quantity / Size", Phrases: []string{"more quantity"}, Tokens: []string{"quantity", "size", "small", "bigger"}},
		{Label: "Delivery", Tokens: []string{"delivery", "shipping", "courier", "late", "delay"}},
		{Label: "Taste / Flavor", Tokens: []string{"taste", "flavor", "flavour", "salty", "spicy", "sweet"}},
	},
}

var genericCatalog = []CatalogRule{
	{Label: "Taste / Flavor", Phrases: []string{"good taste", "great flavor"}, Tokens: []string{"taste", "flavor", "flavour"}},
	{Label: "Convenience / Easy to prepare", Phrases: []string{"easy to prepare"}, Tokens: []string{"easy", "convenient", "quick"}},
	{Label: "Delivery", Tokens: []string{"delivery", "courier", "shipping"}},
	{Label: "Price / Value", Tokens: []string{"price", "cost", "value"}},
	{Label: "Packaging", Tokens: []string{"packaging", "packing"}},
}

// LabelNotSpecified is the bucket for rows whose answer is blank, so the
// frequency table always accounts for every filtered row.
const LabelNotSpecified = "Not specified"

var stopTokens = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "very": {}, "its": {},
	"was": {}, "are": {}, "not": {}, "but": {}, "all": {}, "this": {},
	"that": {}, "have": {}, "has": {}, "had": {}, "good": {}, "nice": {},
}

type AggregateInput struct {
	Rows      []models.FeedbackRow
	Field     string
	StartDate string // YYYY-MM-DD, inclusive from T00:00:00
	EndDate   string // YYYY-MM-DD, inclusive through T23:59:59
	Grouping  map[string]string
	Overrides map[string]string
}

// Aggregate produces the sorted frequency table for one field. Counts sum
// to the filtered row count; percentages sum to ~100.
func Aggregate(in AggregateInput) []models.CategoryCount {
	rows := FilterByDateRange(in.Rows, in.StartDate, in.EndDate)
	labels := labelRows(rows, in.Field, in.Overrides)

	counts := map[string]int{}
	total := len(labels)
	for _, label := range labels {
		counts[ApplyGroup(in.Grouping, label)]++
	}

	out := make([]models.CategoryCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, models.CategoryCount{
			Label:      label,
			Count:      count,
			Percentage: roundPct(float64(count) * 100 / float64(total)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Label < out[j].Label
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// Drilldown returns the rows behind one summary label, which may be a
// user-defined group. Pagination is plain slicing, matching the client-side
// paging of the original dashboards.
func Drilldown(in AggregateInput, label string, limit, offset int) ([]models.FeedbackRow, int) {
	rows := FilterByDateRange(in.Rows, in.StartDate, in.EndDate)
	labels := labelRows(rows, in.Field, in.Overrides)

	var matched []models.FeedbackRow
	for i, row := range rows {
		if ApplyGroup(in.Grouping, labels[i]) == label || labels[i] == label {
			matched = append(matched, row)
		}
	}

	total := len(matched)
	if offset >= total {
		return []models.FeedbackRow{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total
}

func labelRows(rows []models.FeedbackRow, field string, overrides map[string]string) []string {
	labels := make([]string, len(rows))
	var unmatched []int
	for i, row := range rows {
		raw := fieldValue(row, field)
		if raw == "" {
			labels[i] = LabelNotSpecified
			continue
		}
		if ov, ok := overrides[strings.ToLower(strings.TrimSpace(raw))]; ok && ov != "" {
			labels[i] = ov
			continue
		}
		if label := Canonicalize(field, raw); label != "" {
			labels[i] = label
			continue
		}
		unmatched = append(unmatched, i)
	}

	// Unmatched free text collapses onto its most frequent phrase/token so
	// near-duplicates land in one bucket without a curated rule.
	if len(unmatched) > 0 {
		remainder := make([]string, len(unmatched))
		for j, i := range unmatched {
			remainder[j] = fieldValue(rows[i], field)
		}
		dynamic := DynamicLabels(remainder)
		for j, i := range unmatched {
			labels[i] = dynamic[j]
		}
	}
	return labels
}

// Canonicalize scores the raw answer against the field's keyword catalog.
// Phrase hits outweigh token hits; zero score means no canonical label.
func Canonicalize(field, raw string) string {
	catalog, ok := fieldCatalogs[field]
	if !ok {
		catalog = genericCatalog
	}
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}

	best := ""
	bestScore := 0
	for _, rule := range catalog {
		score := 0
		for _, phrase := range rule.Phrases {
			if strings.Contains(text, phrase) {
				score += 3
			}
		}
		for _, token := range rule.Tokens {
			if containsToken(text, token) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = rule.Label
		}
	}
	return best
}

// DynamicLabels labels leftover free text by the most frequent meaningful
// token each value contains. Values sharing a dominant token share a label.
func DynamicLabels(values []string) []string {
	freq := map[string]int{}
	tokenized := make([][]string, len(values))
	for i, v := range values {
		tokens := meaningfulTokens(v)
		tokenized[i] = tokens
		seen := map[string]struct{}{}
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			freq[tok]++
		}
	}

	out := make([]string, len(values))
	for i, tokens := range tokenized {
		best := ""
		bestFreq := 0
		for _, tok := range tokens {
			if freq[tok] > bestFreq || (freq[tok] == bestFreq && best != "" && tok < best) {
				bestFreq = freq[tok]
				best = tok
			}
		}
		if best == "" {
			out[i] = "Other"
			continue
		}
		out[i] = strings.ToUpper(best[:1]) + best[1:]
	}
	return out
}

// ApplyGroup re-buckets one canonical label through the operator's
// {category -> group} dictionary. Labels that are themselves group names
// pass through untouched, which keeps the mapping idempotent.
func ApplyGroup(grouping map[string]string, label string) string {
	if len(grouping) == 0 {
		return label
	}
	for _, group := range grouping {
		if group == label {
			return label
		}
	}
	if group, ok := grouping[label]; ok && group != "" {
		return group
	}
	return label
}

// GroupMembers lists the categories merged into one group.
func GroupMembers(grouping map[string]string, group string) []string {
	var out []string
	for category, g := range grouping {
		if g == group {
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}

// FilterByDateRange keeps rows whose ISO date falls inside the inclusive
// day range. Comparison is lexicographic on the normalized timestamp, the
// same string-prefix trick the original dashboards used.
func FilterByDateRange(rows []models.FeedbackRow, startDate, endDate string) []models.FeedbackRow {
	if startDate == "" && endDate == "" {
		return rows
	}
	lo := ""
	hi := ""
	if startDate != "" {
		lo = startDate + "T00:00:00"
	}
	if endDate != "" {
		hi = endDate + "T23:59:59"
	}

	out := make([]models.FeedbackRow, 0, len(rows))
	for _, row := range rows {
		ts := normalizeTimestamp(row.Date)
		if ts == "" {
			continue
		}
		if lo != "" && ts < lo {
			continue
		}
		if hi != "" && ts > hi {
			continue
		}
		out = append(out, row)
	}
	return out
}

func normalizeTimestamp(date string) string {
	d := strings.TrimSpace(date)
	if d == "" {
		return ""
	}
	d = strings.ReplaceAll(d, " ", "T")
	if len(d) == 10 {
		// Date-only rows count as the start of the day.
		return d + "T00:00:00"
	}
	// Fraction and zone suffixes would sort after the inclusive
	// end-of-day bound, so compare on the seconds prefix only.
	if len(d) > 19 {
		return d[:19]
	}
	return d
}

func fieldValue(row models.FeedbackRow, field string) string {
	switch field {
	case "agent":
		return strings.TrimSpace(row.Agent)
	case "order_number":
		return strings.TrimSpace(row.OrderNumber)
	}
	return strings.TrimSpace(row.Fields[field])
}

func containsToken(text, token string) bool {
	start := 0
	for {
		idx := strings.Index(text[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isWordByte(text[idx-1])
		afterIdx := idx + len(token)
		after := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func meaningfulTokens(value string) []string {
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopTokens[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func roundPct(pct float64) float64 {
	return math.Round(pct*10) / 10
}
