package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vetbolaget/triage/internal/llm"
)

const (
	expandTimeout    = 5 * time.Second
	expandCacheSize  = 100
	expandMaxQueries = 5
)

const expandSystemPrompt = `Du är en sökassistent för en inkorg med veterinärvårds- och djurförsäkringsärenden (direktregleringar, skadeanmälningar, kompletteringar, utbetalningsbesked).

Givet en vag fråga, generera 3-5 precisa söktermer som hittar relevanta mejl.

Regler:
- Använd svenska facktermer: direktreglering, skadenummer, försäkringsnummer, komplettering, journal, kvitto, ersättning
- Inkludera referensformat när de går att gissa (DR-nummer, skadenummer)
- Korta termer, 1-4 ord
- Svara ENDAST med en JSON-array av strängar

Exempel:
Fråga: "det där folksam-beslutet om hunden"
Svar: ["Folksam ersättning", "utbetalningsbesked", "skadenummer", "beslut hund"]`

// ExpandResult holds the expansion output and metadata.
type ExpandResult struct {
	Original string
	Expanded []string // original query first, then expansions
	Latency  time.Duration
	Cached   bool
}

type expandCache struct {
	mu      sync.Mutex
	entries map[string]*expandCacheEntry
	order   []string // oldest first
	maxSize int
}

type expandCacheEntry struct {
	expanded []string
	created  time.Time
}

func newExpandCache(maxSize int) *expandCache {
	return &expandCache{entries: make(map[string]*expandCacheEntry), maxSize: maxSize}
}

func (c *expandCache) get(query string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(query))
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.created) > time.Hour {
		delete(c.entries, key)
		return nil, false
	}
	return entry.expanded, true
}

func (c *expandCache) put(query string, expanded []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(query))
	if len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		delete(c.entries, oldest)
		c.order = c.order[1:]
	}
	c.entries[key] = &expandCacheEntry{expanded: expanded, created: time.Now()}
	c.order = append(c.order, key)
}

var globalExpandCache = newExpandCache(expandCacheSize)

// ExpandQuery asks the LLM for precise search terms for a vague query.
// On any provider or parse failure it returns just the original query.
func ExpandQuery(ctx context.Context, provider llm.Provider, query string) (*ExpandResult, error) {
	result := &ExpandResult{Original: query}

	if cached, ok := globalExpandCache.get(query); ok {
		result.Expanded = cached
		result.Cached = true
		return result, nil
	}

	expandCtx, cancel := context.WithTimeout(ctx, expandTimeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.Complete(expandCtx, query, llm.CompletionOpts{
		System:      expandSystemPrompt,
		MaxTokens:   200,
		Temperature: 0.3,
	})
	result.Latency = time.Since(start)

	if err != nil {
		result.Expanded = []string{query}
		return result, nil
	}

	expanded, parseErr := parseExpandResponse(resp)
	if parseErr != nil {
		result.Expanded = []string{query}
		return result, nil
	}

	all := []string{query}
	seen := map[string]bool{strings.ToLower(query): true}
	for _, q := range expanded {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		lower := strings.ToLower(q)
		if !seen[lower] {
			all = append(all, q)
			seen[lower] = true
		}
		if len(all) >= expandMaxQueries+1 {
			break
		}
	}
	result.Expanded = all
	globalExpandCache.put(query, all)
	return result, nil
}

// parseExpandResponse accepts a bare JSON array or one wrapped in
// markdown fences or an object.
func parseExpandResponse(resp string) ([]string, error) {
	resp = strings.TrimSpace(resp)

	if strings.HasPrefix(resp, "```") {
		lines := strings.Split(resp, "\n")
		var cleaned []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				cleaned = append(cleaned, line)
			}
		}
		resp = strings.Join(cleaned, "\n")
	}

	var queries []string
	if err := json.Unmarshal([]byte(resp), &queries); err != nil {
		var obj map[string]json.RawMessage
		if err2 := json.Unmarshal([]byte(resp), &obj); err2 == nil {
			for _, key := range []string{"queries", "terms", "results"} {
				if raw, ok := obj[key]; ok {
					if err3 := json.Unmarshal(raw, &queries); err3 == nil {
						return queries, nil
					}
				}
			}
		}
		return nil, fmt.Errorf("parsing expansion response: %w", err)
	}
	return queries, nil
}

// ResetExpandCache clears the expansion cache. Used in testing.
func ResetExpandCache() {
	globalExpandCache = newExpandCache(expandCacheSize)
}
