// Package httpapi implements the HTTP transport (spec.md §6,
// SPEC_FULL.md §4.12): the four core endpoints plus the operational
// /ready endpoint, wired to the index writer, intersector,
// search cache, and event pipeline.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mboxsearch/internal/cache"
	"mboxsearch/internal/document"
	"mboxsearch/internal/events"
	"mboxsearch/internal/ids"
	"mboxsearch/internal/indexwriter"
	"mboxsearch/internal/intersect"
	"mboxsearch/internal/phrase"
	"mboxsearch/internal/query"
	"mboxsearch/internal/store"
	"mboxsearch/internal/token"
	"mboxsearch/internal/tokenizer"
	mboxerrors "mboxsearch/pkg/errors"
	"mboxsearch/pkg/logger"
	"mboxsearch/pkg/metrics"
	"mboxsearch/pkg/tracing"
)

// Handler implements the core and operational HTTP endpoints.
type Handler struct {
	st              *store.Store
	writer          *indexwriter.Writer
	intersector     *intersect.Intersector
	cache           *cache.ResultCache
	collector       *events.Collector
	metrics         *metrics.Metrics
	defaultPageSize int
	maxPageSize     int
	logger          *slog.Logger
}

// New returns a Handler. cache and collector may be nil, in which case
// caching and event publishing are skipped entirely.
func New(st *store.Store, writer *indexwriter.Writer, intersector *intersect.Intersector, resultCache *cache.ResultCache, collector *events.Collector, m *metrics.Metrics, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{
		st:              st,
		writer:          writer,
		intersector:     intersector,
		cache:           resultCache,
		collector:       collector,
		metrics:         m,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          slog.Default().With("component", "httpapi"),
	}
}

// Recheck adapts phrase.Matches to the intersect.Recheck signature.
func Recheck(doc document.Document, aq query.AttributeQuery, attribute string) bool {
	return phrase.Matches(doc, attribute, aq.Exact)
}

// Ping answers liveness checks.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Compact triggers a full-range compaction of both column families
// (spec.md §6 POST|PUT /compact) and wholesale-invalidates the search
// cache, since a compacted store's visible contents are unchanged but the
// cache's staleness guarantees are easiest to reason about if every
// compaction starts it fresh.
func (h *Handler) Compact(w http.ResponseWriter, r *http.Request) {
	if err := h.st.Compact(); err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CompactionsTotal.Inc()
	}
	if h.cache != nil {
		if err := h.cache.InvalidateAll(r.Context()); err != nil {
			h.logger.Error("cache invalidation after compact failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{})
}

// Index implements spec.md §6 POST|PUT /index.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalidArgument(w, "invalid JSON body")
		return
	}
	if req.Mailbox == "" {
		h.writeInvalidArgument(w, "mailbox is required")
		return
	}

	log := logger.FromContext(r.Context())
	for _, d := range req.Docs {
		if d.ID == "" {
			h.writeInvalidArgument(w, "doc id is required")
			return
		}
		start := time.Now()
		input := h.buildInput(req.Mailbox, d)
		id, err := h.writer.Write(input)
		if err != nil {
			log.Error("index write failed", "mailbox", req.Mailbox, "external_id", d.ID, "error", err)
			h.writeError(w, err)
			return
		}
		if h.metrics != nil {
			h.metrics.DocsIndexedTotal.WithLabelValues(req.Mailbox).Inc()
			h.metrics.IndexLatency.WithLabelValues(req.Mailbox).Observe(time.Since(start).Seconds())
		}
		log.Debug("document indexed", "mailbox", req.Mailbox, "external_id", d.ID, "indexed_id", id.String())
	}
	h.writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) buildInput(mailbox string, d docDTO) indexwriter.Input {
	in := indexwriter.Input{
		Mailbox:    mailbox,
		ExternalID: d.ID,
		Author:     d.Author,
		Timestamp:  time.Now().UTC(),
	}
	if d.Timestamp != nil {
		in.Timestamp = time.Unix(d.Timestamp.TSec, d.Timestamp.TNSec).UTC()
	}
	if d.Content != nil {
		in.Content = document.Content{
			Title:  d.Content.Title,
			Body:   d.Content.Content,
			Links:  d.Content.Links,
			Images: d.Content.Images,
		}
	}
	if len(d.Index) > 0 {
		in.Tokens = make(map[string][]token.Token, len(d.Index))
		for attribute, dtoTokens := range d.Index {
			tokens := make([]token.Token, 0, len(dtoTokens))
			for _, t := range dtoTokens {
				tokens = append(tokens, token.Token{Name: t.Name, Positions: t.Positions})
			}
			in.Tokens[attribute] = tokens
		}
		return in
	}
	// No pre-tokenized attributes supplied: run the tokenizer adapter
	// (spec.md §4.11) over the two rendered text attributes.
	in.Tokens = map[string][]token.Token{}
	if in.Content.Title != "" {
		in.Tokens["title"] = tokenizer.Tokenize(in.Content.Title)
	}
	if in.Content.Body != "" {
		in.Tokens["content"] = tokenizer.Tokenize(in.Content.Body)
	}
	return in
}

// Search implements spec.md §6 POST|PUT /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", logger.RequestIDFromContext(r.Context()))
	defer func() { span.End(); span.Log() }()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalidArgument(w, "invalid JSON body")
		return
	}

	iq, err := h.buildQuery(req)
	if err != nil {
		h.writeInvalidArgument(w, err.Error())
		return
	}
	span.SetAttr("mailboxes", len(iq.Mailboxes))

	var page query.Page
	cacheHit := false
	func() {
		_, intersectSpan := tracing.StartChildSpan(ctx, "intersect")
		defer intersectSpan.End()
		if h.cache != nil {
			page, cacheHit, err = h.cache.GetOrCompute(ctx, iq, func() (query.Page, error) {
				return h.intersector.Run(ctx, iq)
			})
		} else {
			page, err = h.intersector.Run(ctx, iq)
		}
	}()
	if err != nil {
		h.writeError(w, err)
		return
	}
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("results", len(page.Results))

	resp := searchResponse{
		IDs:       make([]resultDTO, 0, len(page.Results)),
		Completed: page.Completed,
	}
	if page.NextDocumentID != ids.Zero {
		resp.NextDocumentID = page.NextDocumentID.String()
	}
	for _, res := range page.Results {
		doc, err := document.Get(h.st, res.IndexedID)
		if err != nil {
			if mboxerrors.Is(err, mboxerrors.KindNotFound) {
				continue
			}
			h.writeError(w, err)
			return
		}
		resp.IDs = append(resp.IDs, resultDTO{
			ID:        doc.ExternalID,
			IndexedID: doc.IndexedID.String(),
			Author:    doc.Author,
			Content: contentDTO{
				Title:   doc.Content.Title,
				Content: doc.Content.Body,
				Links:   doc.Content.Links,
				Images:  doc.Content.Images,
			},
			Relevance: res.Relevance,
			Timestamp: timestampDTO{
				TSec:  doc.IndexedID.Time().Unix(),
				TNSec: int64(doc.IndexedID.Nanoseconds),
			},
		})
	}

	latency := time.Since(start)
	cacheStatus := "bypass"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	}
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(cacheStatus).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(resp.IDs)))
	}
	if h.collector != nil {
		h.collector.TrackSearch(events.SearchExecuted{
			Mailboxes:   mailboxNames(req.Request),
			ResultCount: len(resp.IDs),
			CacheHit:    cacheHit,
			LatencyMs:   latency.Milliseconds(),
			Timestamp:   time.Now().UTC(),
			RequestID:   logger.RequestIDFromContext(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) buildQuery(req searchRequest) (query.IntersectionQuery, error) {
	var iq query.IntersectionQuery

	if req.Paging != nil {
		if req.Paging.NextDocumentID != "" {
			id, err := ids.Parse(req.Paging.NextDocumentID)
			if err != nil {
				return iq, err
			}
			iq.NextDocumentID = id
		}
		iq.MaxNumber = req.Paging.MaxNumber
	}
	if iq.MaxNumber <= 0 {
		iq.MaxNumber = h.defaultPageSize
	}
	if h.maxPageSize > 0 && iq.MaxNumber > h.maxPageSize {
		iq.MaxNumber = h.maxPageSize
	}

	if req.Time != nil {
		iq.RangeStart = ids.ID{Seconds: uint64(req.Time.Start)}
		iq.RangeEnd = ids.ID{Seconds: uint64(req.Time.End)}
	}

	iq.Mailboxes = make([]query.MailboxQuery, 0, len(req.Request))
	for mailbox, mq := range req.Request {
		attrs := make(map[string]query.AttributeQuery, len(mq))
		for attribute, aq := range mq {
			attrs[attribute] = query.AttributeQuery{Required: aq.Required, Exact: aq.Exact}
		}
		iq.Mailboxes = append(iq.Mailboxes, query.MailboxQuery{Mailbox: mailbox, Attributes: attrs})
	}
	return iq, nil
}

func mailboxNames(req map[string]mailboxQueryDTO) []string {
	names := make([]string, 0, len(req))
	for mailbox := range req {
		names = append(names, mailbox)
	}
	return names
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeInvalidArgument(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Message: message, Code: mboxerrors.New(mboxerrors.KindInvalidArgument, message).Code()}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := mboxerrors.HTTPStatusCode(err)
	code := -6
	if e, ok := asMboxError(err); ok {
		code = e.Code()
	}
	h.writeJSON(w, status, errorResponse{Error: errorBody{Message: err.Error(), Code: code}})
}

func asMboxError(err error) (*mboxerrors.Error, bool) {
	var e *mboxerrors.Error
	ok := errors.As(err, &e)
	return e, ok
}
