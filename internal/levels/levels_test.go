package levels

import "testing"

func TestDefault(t *testing.T) {
	cat := Default()
	if len(cat) != 5 {
		t.Fatalf("expected 5 levels, got %d", len(cat))
	}
	for i, l := range cat {
		if l.Number != i+1 {
			t.Errorf("level %d numbered %d", i+1, l.Number)
		}
		if i > 0 && l.PairCount <= cat[i-1].PairCount {
			t.Errorf("level %d does not grow: %d pairs", l.Number, l.PairCount)
		}
		for _, v := range l.Values {
			if _, ok := l.Fact(v); !ok {
				t.Errorf("level %d: no fact for %s", l.Number, v)
			}
		}
	}
	last := cat[len(cat)-1]
	if len(last.Values) >= last.PairCount {
		t.Errorf("last level should cycle values: %d values for %d pairs", len(last.Values), last.PairCount)
	}
}

func TestFindAndTitle(t *testing.T) {
	cat := Default()
	l, ok := Find(cat, 2)
	if !ok || l.Title() != "LVL 2: Forest Walk" {
		t.Errorf("unexpected level 2: %v %q", ok, l.Title())
	}
	if l, ok := Find(cat, 3); !ok || l.Name != "Night Watch" {
		t.Errorf("Find(3) = %+v, %v", l, ok)
	}
	if _, ok := Find(cat, 42); ok {
		t.Error("found a level that does not exist")
	}
	if got := (Level{Number: 7}).Title(); got != "LVL 7" {
		t.Errorf("unexpected unnamed title %q", got)
	}
	if _, ok := (Level{}).Fact("Cat"); ok {
		t.Error("level without facts returned one")
	}
}
