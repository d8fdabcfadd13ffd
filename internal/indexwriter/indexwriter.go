// Package indexwriter implements the Index Writer component (spec.md
// §4.4): given one fully-tokenized document, it assigns an indexed id
// and emits the two write-batches that register the document under its
// tokens.
package indexwriter

import (
	"time"

	"mboxsearch/internal/document"
	"mboxsearch/internal/ids"
	"mboxsearch/internal/metadata"
	"mboxsearch/internal/posting"
	"mboxsearch/internal/shardset"
	"mboxsearch/internal/store"
	"mboxsearch/internal/token"
)

// Input is one document ready for indexing: its tokenizer has already
// run over every indexed attribute.
type Input struct {
	Mailbox    string
	ExternalID string
	Author     string
	Timestamp  time.Time
	Content    document.Content
	// Tokens maps attribute name -> the tokens the external tokenizer
	// produced for that attribute's rendered text.
	Tokens map[string][]token.Token
}

// Publisher is notified after a document commits successfully. It backs
// the domain-stack catalog/analytics pipeline and is never required for
// correctness: a nil Publisher, or one whose Publish always errors,
// changes nothing about the core write path (spec.md §7's "local
// recovery" policy extended in SPEC_FULL.md §4.14).
type Publisher interface {
	Publish(mailbox string, id ids.ID, sequence uint64)
}

// Writer is the component that performs the writes described in
// spec.md §4.4.
type Writer struct {
	st              *store.Store
	meta            *metadata.Metadata
	tokensShardSize int64
	publisher       Publisher
}

// New returns a Writer committing into st, consuming sequence numbers
// from meta, sharding postings at tokensShardSize documents per shard.
func New(st *store.Store, meta *metadata.Metadata, tokensShardSize int64, publisher Publisher) *Writer {
	return &Writer{st: st, meta: meta, tokensShardSize: tokensShardSize, publisher: publisher}
}

// Write assigns an indexed id to in and commits it, indexes batch first,
// documents batch second (spec.md §4.4 step 5).
func (w *Writer) Write(in Input) (ids.ID, error) {
	sequence := w.meta.NextSequence()
	id := ids.New(in.Timestamp, sequence, in.ExternalID)
	shard := token.ShardIndex(int64(sequence), w.tokensShardSize)

	indexBatch := store.NewWriteBatch()
	attrNames := make(map[string][]string, len(in.Tokens))
	for attribute, tokens := range in.Tokens {
		names := make([]string, 0, len(tokens))
		for _, t := range tokens {
			names = append(names, t.Name)
			postingKey := token.ShardedKey(in.Mailbox, attribute, t.Name, shard)
			indexBatch.Merge(store.Indexes, []byte(postingKey), posting.New(id))
			shardKey := token.ShardKey(in.Mailbox, attribute, t.Name)
			indexBatch.Merge(store.Indexes, []byte(shardKey), shardset.FromShards(shard).Encode())
		}
		attrNames[attribute] = names
	}

	doc := document.Document{
		Mailbox:    in.Mailbox,
		ExternalID: in.ExternalID,
		IndexedID:  id,
		Author:     in.Author,
		Content:    in.Content,
		Index:      attrNames,
	}
	docsBatch := store.NewWriteBatch()
	docsBatch.Put(store.Documents, []byte(id.String()), doc.Encode())
	docsBatch.Put(store.Documents, []byte(document.ExternalIDKey(in.Mailbox, in.ExternalID)), id.Encode())

	if indexBatch.Len() > 0 {
		if err := w.st.Write(indexBatch); err != nil {
			return ids.ID{}, err
		}
	}
	if err := w.st.Write(docsBatch); err != nil {
		return ids.ID{}, err
	}

	if w.publisher != nil {
		w.publisher.Publish(in.Mailbox, id, sequence)
	}
	return id, nil
}
