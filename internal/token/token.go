// Package token implements the Token entity (spec.md §3): a normalized
// word produced by the tokenizer for one document attribute, together
// with the key-construction rules that route its postings and shard
// directory into the indexes column family.
package token

import (
	"fmt"
)

// Token is one normalized word occurrence, with the positions it appears
// at within its attribute's token stream (used only for phrase checks).
type Token struct {
	Name      string
	Positions []int
}

// Key returns the posting-list key for this token under mailbox and
// attribute, before the shard-index suffix is appended:
// index.<mailbox>.<attribute>.<name>
func Key(mailbox, attribute, name string) string {
	return fmt.Sprintf("index.%s.%s.%s", mailbox, attribute, name)
}

// ShardKey returns the shard-directory key for this token:
// token_shards.<mailbox>.<attribute>.<name>
func ShardKey(mailbox, attribute, name string) string {
	return fmt.Sprintf("token_shards.%s.%s.%s", mailbox, attribute, name)
}

// ShardedKey returns the posting-list key for one specific shard of this
// token: Key(...) with the shard index appended as the final component.
func ShardedKey(mailbox, attribute, name string, shard uint32) string {
	return fmt.Sprintf("%s.%d", Key(mailbox, attribute, name), shard)
}

// ShardIndex computes which shard a document at the given monotonic
// sequence belongs to, per spec.md §4.4 step 2.
func ShardIndex(sequence, tokensShardSize int64) uint32 {
	if tokensShardSize <= 0 {
		tokensShardSize = 1
	}
	return uint32(sequence / tokensShardSize)
}
