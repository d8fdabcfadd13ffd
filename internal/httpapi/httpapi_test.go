package httpapi

import (
	"testing"

	"mboxsearch/internal/document"
	"mboxsearch/internal/query"
)

func TestBuildQueryDefaultsPageSize(t *testing.T) {
	h := &Handler{defaultPageSize: 20, maxPageSize: 200}
	iq, err := h.buildQuery(searchRequest{Request: map[string]mailboxQueryDTO{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iq.MaxNumber != 20 {
		t.Fatalf("expected default page size 20, got %d", iq.MaxNumber)
	}
}

func TestBuildQueryClampsToMaxPageSize(t *testing.T) {
	h := &Handler{defaultPageSize: 20, maxPageSize: 200}
	iq, err := h.buildQuery(searchRequest{
		Paging: &pagingDTO{MaxNumber: 5000},
		Request: map[string]mailboxQueryDTO{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iq.MaxNumber != 200 {
		t.Fatalf("expected page size clamped to 200, got %d", iq.MaxNumber)
	}
}

func TestBuildQueryRejectsMalformedCursor(t *testing.T) {
	h := &Handler{defaultPageSize: 20, maxPageSize: 200}
	_, err := h.buildQuery(searchRequest{
		Paging:  &pagingDTO{NextDocumentID: "not-valid-hex"},
		Request: map[string]mailboxQueryDTO{},
	})
	if err == nil {
		t.Fatalf("expected an error for a malformed pagination cursor")
	}
}

func TestBuildQueryTranslatesMailboxAttributes(t *testing.T) {
	h := &Handler{defaultPageSize: 20, maxPageSize: 200}
	iq, err := h.buildQuery(searchRequest{
		Request: map[string]mailboxQueryDTO{
			"inbox": {
				"content": attributeQueryDTO{Required: []string{"hello"}, Exact: []string{"hello", "world"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(iq.Mailboxes) != 1 || iq.Mailboxes[0].Mailbox != "inbox" {
		t.Fatalf("expected one mailbox query for inbox, got %+v", iq.Mailboxes)
	}
	aq := iq.Mailboxes[0].Attributes["content"]
	if len(aq.Required) != 1 || aq.Required[0] != "hello" {
		t.Fatalf("expected required tokens to carry through, got %+v", aq)
	}
	if len(aq.Exact) != 2 {
		t.Fatalf("expected exact phrase tokens to carry through, got %+v", aq)
	}
}

func TestMailboxNames(t *testing.T) {
	names := mailboxNames(map[string]mailboxQueryDTO{"inbox": {}, "sent": {}})
	if len(names) != 2 {
		t.Fatalf("expected 2 mailbox names, got %d", len(names))
	}
}

func TestRecheckDelegatesToExactPhrase(t *testing.T) {
	doc := document.Document{Content: document.Content{Body: "the quarterly report is ready"}}
	aq := query.AttributeQuery{Exact: []string{"quarterly", "report"}}
	if !Recheck(doc, aq, "content") {
		t.Fatalf("expected the phrase to match the document body")
	}
	if Recheck(doc, query.AttributeQuery{Exact: []string{"annual", "report"}}, "content") {
		t.Fatalf("expected a non-matching phrase to fail the recheck")
	}
}
