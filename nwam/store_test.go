package nwam

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

type item struct{ key string }

func (i *item) Key() string { return i.key }

type change struct {
	key   string
	added bool
}

func TestStore_AddRemoveNotify(t *testing.T) {
	var changes []change
	s := NewStore[*item](func(it *item, added bool) {
		changes = append(changes, change{it.key, added})
	})

	assert.Equal(t, s.Add(&item{"a"}), true)
	assert.Equal(t, s.Add(&item{"b"}), true)
	assert.Equal(t, s.Add(&item{"a"}), false)
	assert.Equal(t, s.Keys(), []string{"a", "b"})

	_, ok := s.Remove("a")
	assert.Equal(t, ok, true)
	_, ok = s.Remove("missing")
	assert.Equal(t, ok, false)

	assert.Equal(t, changes, []change{{"a", true}, {"b", true}, {"a", false}})
}

func TestStore_Upsert(t *testing.T) {
	adds := 0
	s := NewStore[*item](func(*item, bool) { adds++ })

	first := &item{"net0"}
	got, added := s.Upsert(first)
	assert.Equal(t, added, true)
	assert.Equal(t, got == first, true)

	got, added = s.Upsert(&item{"net0"})
	assert.Equal(t, added, false)
	assert.Equal(t, got == first, true)
	assert.Equal(t, adds, 1)
	assert.Equal(t, s.Len(), 1)
}

func TestStore_ListIsCopy(t *testing.T) {
	s := NewStore[*item](nil)
	s.Add(&item{"a"})
	list := s.List()
	list[0] = &item{"z"}
	found, _ := s.Find("a")
	assert.Equal(t, found.key, "a")
}

func TestStore_SortStable(t *testing.T) {
	s := NewStore[*item](nil)
	for _, k := range []string{"c", "a", "b"} {
		s.Add(&item{k})
	}
	s.SortStable(func(a, b *item) bool { return a.key < b.key })
	assert.Equal(t, s.Keys(), []string{"a", "b", "c"})

	it, ok := s.FindFunc(func(i *item) bool { return i.key > "a" })
	assert.Equal(t, ok, true)
	assert.Equal(t, it.key, "b")
}
