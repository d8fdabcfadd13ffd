// Package query implements the Query Model (spec.md §4.5): the request
// shapes the intersector consumes.
package query

import "mboxsearch/internal/ids"

// AttributeQuery selects, for one attribute, the tokens that must all be
// present (an AND) and an optional exact-phrase token sequence checked
// as a post-filter after the AND (spec.md §4.5, §4.7 step 5).
type AttributeQuery struct {
	Required []string
	Exact    []string
}

// MailboxQuery selects, for one mailbox, a set of attribute->token-set
// queries. Within one MailboxQuery, every attribute's Required tokens
// must all match (AND across tokens and across attributes).
type MailboxQuery struct {
	Mailbox    string
	Attributes map[string]AttributeQuery
}

// IntersectionQuery aggregates many MailboxQuery values (UNIONed) plus
// the time range and pagination parameters spec.md §4.5 describes.
type IntersectionQuery struct {
	Mailboxes []MailboxQuery
	// RangeStart is an inclusive lower bound in the time dimension;
	// RangeEnd is an exclusive upper bound. Zero values mean unbounded.
	RangeStart ids.ID
	RangeEnd   ids.ID
	// NextDocumentID is the pagination cursor: an exclusive lower bound
	// on the indexed id to resume from. The zero ID means "from the
	// start".
	NextDocumentID ids.ID
	// MaxNumber caps the number of accepted results. <= 0 means
	// unbounded (used by pagination idempotence checks).
	MaxNumber int
}

// Result is one accepted document, carrying the running relevance
// counter spec.md §4.7 step 6 describes (one point per mailbox match).
type Result struct {
	IndexedID ids.ID
	Mailbox   string
	Relevance int
}

// Page is the outcome of running an IntersectionQuery.
type Page struct {
	Results        []Result
	Completed      bool
	NextDocumentID ids.ID
}
