package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/storage"
)

// Query describes a catalog search. All populated clauses must match for an
// entity to appear in the results.
type Query struct {
	// Exact matches controlled keys against exact values.
	Exact map[string]string

	// Text matches free-text keys by case-insensitive substring.
	Text map[string]string

	// Tags requires every listed tag to be a member of the entity's tag set.
	Tags []string

	// Limit caps the number of results. Zero or negative means no cap.
	Limit int
}

// empty reports whether the query has no clauses at all.
func (q Query) empty() bool {
	return len(q.Exact) == 0 && len(q.Text) == 0 && len(q.Tags) == 0
}

// Match is one search hit.
type Match struct {
	// EntityID is the matched component or version id.
	EntityID string

	// Score counts the satisfied query clauses.
	Score int

	// UpdatedAt is the recency of the entity's newest entry, used as the
	// ranking tiebreaker.
	UpdatedAt time.Time
}

// Search returns entity ids matching the query, ranked by match count then
// recency. Tombstoned entities never match.
func (c *Catalog) Search(ctx context.Context, query Query) ([]Match, error) {
	entities := map[string]map[string]Entry{}
	tombstones := map[string]bool{}

	err := c.store.View(func(tx *storage.Tx) error {
		err := tx.Scan(keyTombstone, func(key string, _ []byte) error {
			tombstones[strings.TrimPrefix(key, keyTombstone)] = true
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Scan(keyEntry, func(key string, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rest := strings.TrimPrefix(key, keyEntry)
			slash := strings.Index(rest, "/")
			if slash < 0 {
				return nil
			}
			entityID := rest[:slash]
			if tombstones[entityID] {
				return nil
			}
			var entry Entry
			if err := storage.Decode(value, &entry); err != nil {
				return err
			}
			if entities[entityID] == nil {
				entities[entityID] = map[string]Entry{}
			}
			entities[entityID][entry.Key] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var matches []Match
	for entityID, entries := range entities {
		score, ok := score(query, entries)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			EntityID:  entityID,
			Score:     score,
			UpdatedAt: newestUpdate(entries),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].EntityID < matches[j].EntityID
	})

	if query.Limit > 0 && query.Limit < len(matches) {
		matches = matches[:query.Limit]
	}
	return matches, nil
}

// score evaluates every query clause against an entity's entries. The
// second return is false when any clause fails. An empty query matches
// everything with score zero.
func score(query Query, entries map[string]Entry) (int, bool) {
	if query.empty() {
		return 0, true
	}

	total := 0
	for key, want := range query.Exact {
		entry, ok := entries[key]
		if !ok {
			return 0, false
		}
		got, ok := scalarString(entry.Value)
		if !ok || got != want {
			return 0, false
		}
		total++
	}
	for key, want := range query.Text {
		entry, ok := entries[key]
		if !ok {
			return 0, false
		}
		got, ok := scalarString(entry.Value)
		if !ok || !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
			return 0, false
		}
		total++
	}
	if len(query.Tags) > 0 {
		entry, ok := entries[domain.MetaTags]
		if !ok {
			return 0, false
		}
		tags := stringSet(entry.Value)
		for _, want := range query.Tags {
			if !containsFold(tags, want) {
				return 0, false
			}
			total++
		}
	}
	return total, true
}

func containsFold(haystack []string, want string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// newestUpdate returns the most recent UpdatedAt among entries.
func newestUpdate(entries map[string]Entry) time.Time {
	var newest time.Time
	for _, entry := range entries {
		if entry.UpdatedAt.After(newest) {
			newest = entry.UpdatedAt
		}
	}
	return newest
}
