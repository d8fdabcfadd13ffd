// Package intersect implements the Intersector (spec.md §4.7): per
// mailbox query, a leap-frog AND across required-token posting
// iterators with an optional phrase-match recheck, merged by indexed id
// across mailbox queries into one globally time-ordered, paginated
// result.
package intersect

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"mboxsearch/internal/document"
	"mboxsearch/internal/ids"
	"mboxsearch/internal/posting"
	"mboxsearch/internal/query"
	"mboxsearch/internal/store"
	"mboxsearch/internal/token"
	mboxerrors "mboxsearch/pkg/errors"
)

// Recheck implements the per-candidate phrase-match filter (spec.md
// §4.7 step 5). It is supplied by the caller because it depends on the
// external tokenizer; internal/httpapi wires it to internal/tokenizer.
type Recheck func(doc document.Document, attrQuery query.AttributeQuery, attribute string) bool

// Intersector runs IntersectionQuery values against a store.
type Intersector struct {
	st                   *store.Store
	recheck              Recheck
	maxConcurrentQueries int
}

// New returns an Intersector reading from st, bounding concurrent
// per-mailbox leap-frog joins to maxConcurrentQueries (SPEC_FULL.md §5;
// <= 0 means unbounded).
func New(st *store.Store, recheck Recheck, maxConcurrentQueries int) *Intersector {
	return &Intersector{st: st, recheck: recheck, maxConcurrentQueries: maxConcurrentQueries}
}

type mailboxResult struct {
	results        []query.Result
	completed      bool
	nextDocumentID ids.ID
	err            error
}

// Run executes iq, running each mailbox query's leap-frog join in its
// own goroutine (spec.md §5, SPEC_FULL.md §5), then merges by indexed id
// across mailboxes.
func (it *Intersector) Run(ctx context.Context, iq query.IntersectionQuery) (query.Page, error) {
	results := make([]mailboxResult, len(iq.Mailboxes))
	g, gctx := errgroup.WithContext(ctx)
	if it.maxConcurrentQueries > 0 {
		g.SetLimit(it.maxConcurrentQueries)
	}
	for i, mq := range iq.Mailboxes {
		i, mq := i, mq
		g.Go(func() error {
			res := it.runMailboxQuery(gctx, mq, iq)
			results[i] = res
			return nil
		})
	}
	// Errors from individual mailbox queries are captured per-result,
	// not propagated through the group: spec.md §4.6 "Failure: read
	// errors propagate to the intersector which aborts the current
	// mailbox query; already-produced results for that mailbox are
	// returned, completed=false" — other mailboxes still run to
	// completion.
	_ = g.Wait()

	return mergeResults(results, iq), nil
}

func mergeResults(results []mailboxResult, iq query.IntersectionQuery) query.Page {
	byID := make(map[ids.ID]*query.Result)
	order := make([]ids.ID, 0)
	allCompleted := true
	var minFrontier ids.ID
	haveFrontier := false
	for _, r := range results {
		if !r.completed {
			allCompleted = false
			// A mailbox that stopped early still has unconsidered ids above
			// its own last-considered one; nothing past that point can be
			// called final until this mailbox's next page reaches it.
			if r.nextDocumentID != (ids.ID{}) && (!haveFrontier || r.nextDocumentID.Less(minFrontier)) {
				minFrontier = r.nextDocumentID
				haveFrontier = true
			}
		}
		for _, res := range r.results {
			if existing, ok := byID[res.IndexedID]; ok {
				existing.Relevance += res.Relevance
				continue
			}
			copy := res
			byID[res.IndexedID] = &copy
			order = append(order, res.IndexedID)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	merged := make([]query.Result, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}

	// Drop anything past the most-behind incomplete mailbox's frontier: that
	// mailbox hasn't considered those ids yet, so holding them back here
	// keeps a later page from ever needing to reconsider an id this page
	// already returned.
	nextCursor := minFrontier
	completed := allCompleted
	if haveFrontier {
		bounded := merged[:0:0]
		for _, res := range merged {
			if minFrontier.Less(res.IndexedID) {
				break
			}
			bounded = append(bounded, res)
		}
		merged = bounded
		completed = false
	}

	trimmed := merged
	if iq.MaxNumber > 0 && len(merged) > iq.MaxNumber {
		trimmed = merged[:iq.MaxNumber]
		nextCursor = trimmed[len(trimmed)-1].IndexedID
		completed = false
	}

	return query.Page{
		Results:        trimmed,
		Completed:      completed,
		NextDocumentID: nextCursor,
	}
}

// requiredIter pairs a required-token posting iterator with the
// attribute it was built for.
type requiredIter struct {
	attribute string
	iter      *posting.Iterator
}

// runMailboxQuery implements spec.md §4.7 steps 1-7 for one mailbox.
func (it *Intersector) runMailboxQuery(ctx context.Context, mq query.MailboxQuery, iq query.IntersectionQuery) mailboxResult {
	var iters []requiredIter
	for attribute, aq := range mq.Attributes {
		for _, name := range aq.Required {
			shardKey := token.ShardKey(mq.Mailbox, attribute, name)
			keyPrefix := token.Key(mq.Mailbox, attribute, name)
			iters = append(iters, requiredIter{attribute: attribute, iter: posting.NewIterator(it.st, shardKey, keyPrefix)})
		}
	}
	if len(iters) == 0 {
		// Edge case: empty token list in a mailbox query yields
		// nothing, not everything (spec.md §4.7 edge cases).
		return mailboxResult{completed: true}
	}

	start := iq.RangeStart
	if iq.NextDocumentID != (ids.ID{}) {
		cursorStart := iq.NextDocumentID.Successor()
		if cursorStart.Less(start) {
			// start stays at RangeStart
		} else {
			start = cursorStart
		}
	}
	for _, ri := range iters {
		ri.iter.Seek(start)
	}

	var res mailboxResult
	accepted := 0
	var lastConsidered ids.ID
	haveLast := false

	for {
		if ctx.Err() != nil {
			res.completed = false
			break
		}
		// Find max current across valid iterators; if any iterator is
		// invalid, this mailbox is exhausted.
		allValid := true
		var m ids.ID
		haveM := false
		for _, ri := range iters {
			if ri.iter.Err() != nil {
				res.err = ri.iter.Err()
				res.completed = false
				return finalizeMailboxResult(res, lastConsidered, haveLast)
			}
			if !ri.iter.Valid() {
				allValid = false
				break
			}
			if !haveM || m.Less(ri.iter.Current()) {
				m = ri.iter.Current()
				haveM = true
			}
		}
		if !allValid {
			res.completed = true
			break
		}

		// Advance every iterator whose current < m.
		agree := true
		for _, ri := range iters {
			if ri.iter.Current() != m {
				ri.iter.Seek(m)
				agree = false
			}
		}
		if !agree {
			continue
		}

		if iq.RangeEnd != (ids.ID{}) && !m.Less(iq.RangeEnd) {
			res.completed = true
			break
		}

		lastConsidered = m
		haveLast = true

		doc, err := document.Get(it.st, m)
		if err != nil {
			if mboxerrors.Is(err, mboxerrors.KindNotFound) {
				// Dangling posting: document batch never committed.
				// Treated as a tombstone (spec.md §4.4 step 5, §4.7
				// step 4).
				advanceAllPast(iters, m)
				continue
			}
			res.err = err
			res.completed = false
			return finalizeMailboxResult(res, lastConsidered, haveLast)
		}

		if it.passesRecheck(doc, mq) {
			res.results = append(res.results, query.Result{IndexedID: m, Mailbox: mq.Mailbox, Relevance: 1})
			accepted++
		}
		advanceAllPast(iters, m)

		if iq.MaxNumber > 0 && accepted >= iq.MaxNumber {
			res.completed = false
			break
		}
	}

	return finalizeMailboxResult(res, lastConsidered, haveLast)
}

func finalizeMailboxResult(res mailboxResult, lastConsidered ids.ID, haveLast bool) mailboxResult {
	if haveLast {
		res.nextDocumentID = lastConsidered
	}
	return res
}

func advanceAllPast(iters []requiredIter, m ids.ID) {
	for _, ri := range iters {
		if ri.iter.Valid() && ri.iter.Current() == m {
			ri.iter.Next()
		}
	}
}

func (it *Intersector) passesRecheck(doc document.Document, mq query.MailboxQuery) bool {
	for attribute, aq := range mq.Attributes {
		if len(aq.Exact) == 0 {
			continue
		}
		if it.recheck == nil {
			return false
		}
		if !it.recheck(doc, aq, attribute) {
			return false
		}
	}
	return true
}
