package query

import "testing"

func TestBuildKeyIsOrderInsensitiveOnTermsForOrAnd(t *testing.T) {
	c := &Cache{}
	a := c.buildKey(Plan{Terms: []string{"search", "engine"}, Mode: ModeOR, TopK: 10})
	b := c.buildKey(Plan{Terms: []string{"engine", "search"}, Mode: ModeOR, TopK: 10})
	if a != b {
		t.Fatalf("buildKey should be insensitive to term order for OR: %q != %q", a, b)
	}

	a = c.buildKey(Plan{Terms: []string{"search", "engine"}, Mode: ModeAND, TopK: 10})
	b = c.buildKey(Plan{Terms: []string{"engine", "search"}, Mode: ModeAND, TopK: 10})
	if a != b {
		t.Fatalf("buildKey should be insensitive to term order for AND: %q != %q", a, b)
	}
}

func TestBuildKeyIsOrderSensitiveOnTermsForPhrase(t *testing.T) {
	c := &Cache{}
	a := c.buildKey(Plan{Terms: []string{"machine", "learning"}, Mode: ModePhrase, TopK: 10})
	b := c.buildKey(Plan{Terms: []string{"learning", "machine"}, Mode: ModePhrase, TopK: 10})
	if a == b {
		t.Fatalf("buildKey must distinguish phrase term order, both hashed to %q", a)
	}
}

func TestBuildKeyDistinguishesModeAndTopK(t *testing.T) {
	c := &Cache{}
	base := c.buildKey(Plan{Terms: []string{"search"}, Mode: ModeOR, TopK: 10})

	if other := c.buildKey(Plan{Terms: []string{"search"}, Mode: ModeAND, TopK: 10}); other == base {
		t.Fatalf("buildKey should differ across modes")
	}
	if other := c.buildKey(Plan{Terms: []string{"search"}, Mode: ModeOR, TopK: 20}); other == base {
		t.Fatalf("buildKey should differ across top_k")
	}
	if other := c.buildKey(Plan{Terms: []string{"other"}, Mode: ModeOR, TopK: 10}); other == base {
		t.Fatalf("buildKey should differ across terms")
	}
}

func TestBuildKeyHasStablePrefix(t *testing.T) {
	c := &Cache{}
	key := c.buildKey(Plan{Terms: []string{"search"}, Mode: ModeOR, TopK: 10})
	if len(key) <= len(cacheKeyPrefix) || key[:len(cacheKeyPrefix)] != cacheKeyPrefix {
		t.Fatalf("buildKey() = %q, want prefix %q", key, cacheKeyPrefix)
	}
}
