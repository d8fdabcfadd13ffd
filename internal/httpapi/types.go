package httpapi

// types.go mirrors spec.md §6's wire format exactly: JSON field names and
// shapes are load-bearing and must not drift from what the spec documents.

// timestampDTO is the wire form of a document timestamp.
type timestampDTO struct {
	TSec  int64 `json:"tsec"`
	TNSec int64 `json:"tnsec"`
}

// contentDTO is the wire form of document.Content.
type contentDTO struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Links   []string `json:"links,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// tokenDTO is the wire form of one pre-tokenized attribute entry; callers
// that already ran their own tokenizer submit these directly under a
// doc's "index" field instead of relying on the server's tokenizer
// adapter (spec.md §4.11).
type tokenDTO struct {
	Name      string `json:"name"`
	Positions []int  `json:"positions,omitempty"`
}

// docDTO is one element of an /index request's "docs" array.
type docDTO struct {
	ID        string                `json:"id"`
	Author    string                `json:"author,omitempty"`
	Timestamp *timestampDTO         `json:"timestamp,omitempty"`
	Content   *contentDTO           `json:"content,omitempty"`
	Index     map[string][]tokenDTO `json:"index,omitempty"`
}

// indexRequest is the /index request body.
type indexRequest struct {
	Mailbox string   `json:"mailbox"`
	Docs    []docDTO `json:"docs"`
}

// errorResponse is the shared error envelope spec.md §6 and §7 describe.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// pagingDTO is the /search request's "paging" field.
type pagingDTO struct {
	NextDocumentID string `json:"next_document_id,omitempty"`
	MaxNumber      int    `json:"max_number,omitempty"`
}

// timeRangeDTO is the /search request's "time" field: Unix seconds,
// start inclusive, end exclusive.
type timeRangeDTO struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// attributeQueryDTO is the wire form of one attribute's token query
// within a mailbox-query.
type attributeQueryDTO struct {
	Required []string `json:"required,omitempty"`
	Exact    []string `json:"exact,omitempty"`
}

// mailboxQueryDTO maps attribute name -> its token query. It is the
// "<mailbox-query>" referenced by spec.md §6.
type mailboxQueryDTO map[string]attributeQueryDTO

// searchRequest is the /search request body.
type searchRequest struct {
	Paging  *pagingDTO                 `json:"paging,omitempty"`
	Time    *timeRangeDTO              `json:"time,omitempty"`
	Request map[string]mailboxQueryDTO `json:"request"`
}

// resultDTO is one element of a /search response's "ids" array.
type resultDTO struct {
	ID        string       `json:"id"`
	IndexedID string       `json:"indexed_id"`
	Author    string       `json:"author"`
	Content   contentDTO   `json:"content"`
	Relevance int          `json:"relevance"`
	Timestamp timestampDTO `json:"timestamp"`
}

// searchResponse is the /search response body.
type searchResponse struct {
	IDs            []resultDTO `json:"ids"`
	Completed      bool        `json:"completed"`
	NextDocumentID string      `json:"next_document_id"`
}
