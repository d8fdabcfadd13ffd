package token

import "testing"

func TestKeyFormat(t *testing.T) {
	got := Key("inbox", "content", "hello")
	want := "index.inbox.content.hello"
	if got != want {
		t.Fatalf("Key: got %q, want %q", got, want)
	}
}

func TestShardKeyFormat(t *testing.T) {
	got := ShardKey("inbox", "content", "hello")
	want := "token_shards.inbox.content.hello"
	if got != want {
		t.Fatalf("ShardKey: got %q, want %q", got, want)
	}
}

func TestShardedKeyAppendsShardIndex(t *testing.T) {
	got := ShardedKey("inbox", "content", "hello", 3)
	want := "index.inbox.content.hello.3"
	if got != want {
		t.Fatalf("ShardedKey: got %q, want %q", got, want)
	}
}

func TestShardIndexBuckets(t *testing.T) {
	cases := []struct {
		sequence, size int64
		want           uint32
	}{
		{0, 1000, 0},
		{999, 1000, 0},
		{1000, 1000, 1},
		{2500, 1000, 2},
	}
	for _, c := range cases {
		if got := ShardIndex(c.sequence, c.size); got != c.want {
			t.Fatalf("ShardIndex(%d, %d) = %d, want %d", c.sequence, c.size, got, c.want)
		}
	}
}

func TestShardIndexZeroSizeDefaultsToOne(t *testing.T) {
	if got := ShardIndex(5, 0); got != 5 {
		t.Fatalf("expected a zero shard size to behave like size 1, got %d", got)
	}
}
