// Package query answers search requests against the index store:
// AND-of-terms lookup, phrase-aware match spans, and hit-count ranking
// with early termination under caller control.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/token"
)

// RankMode selects the order matches are emitted in.
type RankMode int

const (
	// RankNone emits matches in document traversal (path) order.
	RankNone RankMode = iota
	// RankHitCountAsc sorts documents by ascending hit count.
	RankHitCountAsc
	// RankHitCountDesc sorts documents by descending hit count.
	RankHitCountDesc
)

// ParseRankMode maps the wire names ("none", "asc", "desc") to a mode.
func ParseRankMode(s string) (RankMode, error) {
	switch s {
	case "", "none":
		return RankNone, nil
	case "asc":
		return RankHitCountAsc, nil
	case "desc":
		return RankHitCountDesc, nil
	}
	return RankNone, fmt.Errorf("query: unknown rank mode %q: %w", s, apperr.ErrQuerySyntax)
}

// Match is one search hit. Start and End are rune offsets into the
// page text, and MatchedText is exactly that slice of the original.
type Match struct {
	Path        string `json:"path"`
	Page        int    `json:"page"`
	MatchedText string `json:"matched_text"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

// MatchFunc consumes one match; returning false stops the search
// immediately, with no further lookup or ranking work.
type MatchFunc func(Match) bool

// Scorer computes a document's rank score from the number of query-term
// occurrences on its qualifying pages. The default is the count itself;
// swap it to change the metric without touching traversal.
type Scorer func(occurrences int) int

// Engine runs searches against a store.
type Engine struct {
	store  *store.Store
	scorer Scorer
}

// New creates an engine with the default hit-count scorer.
func New(st *store.Store) *Engine {
	return &Engine{store: st, scorer: func(n int) int { return n }}
}

// WithScorer replaces the ranking metric.
func (e *Engine) WithScorer(s Scorer) *Engine {
	e.scorer = s
	return e
}

type pageKey struct {
	path string
	page int
}

type pageHit struct {
	page        int
	occurrences int
}

type docHit struct {
	path  string
	score int
	pages []pageHit
}

// Search tokenizes query with the indexing tokenizer, finds every page
// containing all query terms, and emits matches per document in rank
// order. A query with no searchable terms fails with ErrQuerySyntax.
func (e *Engine) Search(ctx context.Context, query string, rank RankMode, fn MatchFunc) error {
	qtoks := token.Tokenize(query)
	if len(qtoks) == 0 {
		return fmt.Errorf("query: no searchable terms in %q: %w", query, apperr.ErrQuerySyntax)
	}
	qterms := make([]string, len(qtoks))
	for i, t := range qtoks {
		qterms[i] = t.Term
	}

	// Unranked searches need no document scores, so pages stream out
	// as soon as they qualify instead of waiting for a full pass.
	if rank == RankNone {
		return e.searchInOrder(ctx, qterms, fn)
	}

	docs, err := e.collect(ctx, qterms)
	if err != nil {
		return err
	}

	switch rank {
	case RankHitCountAsc:
		sort.SliceStable(docs, func(i, j int) bool {
			if docs[i].score != docs[j].score {
				return docs[i].score < docs[j].score
			}
			return docs[i].path < docs[j].path
		})
	case RankHitCountDesc:
		sort.SliceStable(docs, func(i, j int) bool {
			if docs[i].score != docs[j].score {
				return docs[i].score > docs[j].score
			}
			return docs[i].path < docs[j].path
		})
	}

	for _, d := range docs {
		for _, pg := range d.pages {
			stop, err := e.emitPage(ctx, d.path, pg.page, qterms, fn)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}

func distinctTerms(qterms []string) []string {
	out := make([]string, 0, len(qterms))
	seen := make(map[string]struct{}, len(qterms))
	for _, t := range qterms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// searchInOrder emits qualifying pages in (path, page) order as they
// are found. The first term's posting list, already sorted by path and
// page, drives traversal; the remaining terms gate each page.
func (e *Engine) searchInOrder(ctx context.Context, qterms []string, fn MatchFunc) error {
	distinct := distinctTerms(qterms)

	driver, err := e.store.Lookup(distinct[0])
	if err != nil {
		return err
	}
	gates := make([]map[pageKey]struct{}, 0, len(distinct)-1)
	for _, term := range distinct[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		postings, err := e.store.Lookup(term)
		if err != nil {
			return err
		}
		set := make(map[pageKey]struct{}, len(postings))
		for _, p := range postings {
			set[pageKey{p.Path, p.Page}] = struct{}{}
		}
		gates = append(gates, set)
	}

	var last pageKey
	seen := false
	for _, p := range driver {
		k := pageKey{p.Path, p.Page}
		if seen && k == last {
			continue
		}
		last, seen = k, true

		qualified := true
		for _, gate := range gates {
			if _, ok := gate[k]; !ok {
				qualified = false
				break
			}
		}
		if !qualified {
			continue
		}
		stop, err := e.emitPage(ctx, k.path, k.page, qterms, fn)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// collect intersects the query terms' posting lists by (path, page) and
// scores each qualifying document, for the ranked modes.
func (e *Engine) collect(ctx context.Context, qterms []string) ([]docHit, error) {
	distinct := distinctTerms(qterms)

	pageTerms := make(map[pageKey]map[string]int)
	for _, term := range distinct {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := e.store.Lookup(term)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			k := pageKey{p.Path, p.Page}
			if pageTerms[k] == nil {
				pageTerms[k] = make(map[string]int)
			}
			pageTerms[k][term]++
		}
	}

	byDoc := make(map[string]*docHit)
	for k, counts := range pageTerms {
		if len(counts) < len(distinct) {
			continue // page is missing at least one required term
		}
		occ := 0
		for _, n := range counts {
			occ += n
		}
		d := byDoc[k.path]
		if d == nil {
			d = &docHit{path: k.path}
			byDoc[k.path] = d
		}
		d.pages = append(d.pages, pageHit{page: k.page, occurrences: occ})
	}

	docs := make([]docHit, 0, len(byDoc))
	for _, d := range byDoc {
		sort.Slice(d.pages, func(i, j int) bool { return d.pages[i].page < d.pages[j].page })
		occ := 0
		for _, pg := range d.pages {
			occ += pg.occurrences
		}
		d.score = e.scorer(occ)
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].path < docs[j].path })
	return docs, nil
}

// emitPage recovers match spans on one qualifying page. When the query
// terms occur as a contiguous phrase in the page's token stream, each
// phrase occurrence is one match spanning it, so searching an exact
// phrase yields its own text back. Pages without a phrase occurrence
// fall back to one match per term occurrence. Returns stop=true when
// the consumer requested termination.
func (e *Engine) emitPage(ctx context.Context, path string, page int, qterms []string, fn MatchFunc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	text, err := e.store.PageText(path, page)
	if err != nil {
		return false, err
	}
	runes := []rune(text)
	toks := token.Tokenize(text)

	emit := func(start, end int) bool {
		return !fn(Match{
			Path:        path,
			Page:        page,
			MatchedText: string(runes[start:end]),
			Start:       start,
			End:         end,
		})
	}

	phrased := false
	for i := 0; i+len(qterms) <= len(toks); i++ {
		if !phraseAt(toks, i, qterms) {
			continue
		}
		phrased = true
		if emit(toks[i].Start, toks[i+len(qterms)-1].End) {
			return true, nil
		}
	}
	if phrased {
		return false, nil
	}

	wanted := make(map[string]struct{}, len(qterms))
	for _, t := range qterms {
		wanted[t] = struct{}{}
	}
	for _, t := range toks {
		if _, ok := wanted[t.Term]; !ok {
			continue
		}
		if emit(t.Start, t.End) {
			return true, nil
		}
	}
	return false, nil
}

func phraseAt(toks []token.Token, i int, qterms []string) bool {
	for j, term := range qterms {
		if toks[i+j].Term != term {
			return false
		}
	}
	return true
}
