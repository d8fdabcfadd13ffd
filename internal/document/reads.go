package document

import (
	"mboxsearch/internal/ids"
	"mboxsearch/internal/store"
)

// Get implements spec.md §4.9 get(indexed_id): a straight point read of
// the document body, returning a NotFound error if absent.
func Get(st *store.Store, id ids.ID) (Document, error) {
	raw, err := st.Get(store.Documents, []byte(id.String()))
	if err != nil {
		return Document{}, err
	}
	return Decode([]byte(id.String()), raw)
}

// Resolve implements spec.md §4.9 resolve(external_id): a straight point
// read of the external-id -> indexed-id secondary index.
func Resolve(st *store.Store, mailbox, externalID string) (ids.ID, error) {
	raw, err := st.Get(store.Documents, []byte(ExternalIDKey(mailbox, externalID)))
	if err != nil {
		return ids.ID{}, err
	}
	return ids.Decode(raw)
}

// ExternalIDKey is the secondary-index key mapping a mailbox-scoped
// external id to its most recently written indexed id (spec.md §3
// scenario 5: re-indexing the same external id is not an update, so this
// key is overwritten, not merged).
func ExternalIDKey(mailbox, externalID string) string {
	return "documents.extid." + mailbox + "." + externalID
}
