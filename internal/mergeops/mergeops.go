// Package mergeops implements the store.MergeOperator registered at
// Store.Open time. It is the dispatch table spec.md §4.3 describes: the
// key's prefix decides whether the operand is a shard-set or a posting,
// and everything else is a programming error.
package mergeops

import (
	"strings"

	"mboxsearch/internal/posting"
	"mboxsearch/internal/shardset"
	"mboxsearch/internal/store"
	mboxerrors "mboxsearch/pkg/errors"
)

const (
	tokenShardsPrefix = "token_shards."
	indexPrefix       = "index."
)

// Operator dispatches merges by key prefix. Prefixes are configurable
// because spec.md §6 lists documents./token_shards./index. as recognized
// options; defaults match the spec's literal values.
type Operator struct {
	TokenShardsPrefix string
	IndexPrefix       string
}

// New returns an Operator using the configured key prefixes, falling
// back to spec.md's defaults for any left blank.
func New(tokenShardsPrefixCfg, indexPrefixCfg string) *Operator {
	op := &Operator{TokenShardsPrefix: tokenShardsPrefixCfg, IndexPrefix: indexPrefixCfg}
	if op.TokenShardsPrefix == "" {
		op.TokenShardsPrefix = tokenShardsPrefix
	}
	if op.IndexPrefix == "" {
		op.IndexPrefix = indexPrefix
	}
	return op
}

// Default returns an Operator using spec.md's literal default prefixes.
func Default() *Operator {
	return &Operator{TokenShardsPrefix: tokenShardsPrefix, IndexPrefix: indexPrefix}
}

// FullMerge implements store.MergeOperator.
func (o *Operator) FullMerge(cf store.ColumnFamily, key, existing, operand []byte) ([]byte, error) {
	k := string(key)
	switch {
	case strings.HasPrefix(k, o.TokenShardsPrefix):
		return shardset.Merge(key, existing, operand)
	case strings.HasPrefix(k, o.IndexPrefix):
		return posting.Merge(key, existing, operand)
	default:
		return nil, mboxerrors.Newf(mboxerrors.KindInternal, "merge dispatch: unknown key prefix for %q", k)
	}
}
