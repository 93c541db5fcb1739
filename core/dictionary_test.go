package core

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/go-test/deep"
)

func TestDictionary_ViewMutate(t *testing.T) {
	d := NewDictionary()

	d.View("missing", func(v *Value, ok bool) {
		if ok {
			t.Error("View(missing) reported ok = true")
		}
	})

	d.Mutate("key", func(v *Value, ok bool, set func(*Value), del func()) {
		if ok {
			t.Error("Mutate(key) on a fresh key reported ok = true")
		}
		set(newStringValue([]byte("value"), noExpiry))
	})

	d.View("key", func(v *Value, ok bool) {
		if !ok || v.kind != KindString || string(v.str) != "value" {
			t.Errorf("View(key) = (%v, %v), want a STRING \"value\"", v, ok)
		}
	})

	d.Mutate("key", func(v *Value, ok bool, set func(*Value), del func()) {
		del()
	})

	d.View("key", func(v *Value, ok bool) {
		if ok {
			t.Error("View(key) after del() reported ok = true")
		}
	})
}

func TestDictionary_Delete(t *testing.T) {
	d := NewDictionary()
	for _, key := range []string{"a", "b", "c"} {
		d.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
			set(newStringValue([]byte(key), noExpiry))
		})
	}

	got := d.Delete([]string{"a", "missing", "c"})
	if got != 2 {
		t.Errorf("Delete() = %d, want 2", got)
	}

	d.View("a", func(v *Value, ok bool) {
		if ok {
			t.Error("a still present after Delete")
		}
	})
	d.View("b", func(v *Value, ok bool) {
		if !ok {
			t.Error("b removed by Delete, but was not named")
		}
	})
}

func TestDictionary_concurrency(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	d := NewDictionary()
	var keys []string
	for i := 0; i < 200; i++ {
		keys = append(keys, fmt.Sprintf("key:%d", rand.Uint64()))
	}

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for _, key := range keys {
				d.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
					set(newStringValue([]byte(fmt.Sprintf("w%d", worker)), noExpiry))
				})
				d.View(key, func(v *Value, ok bool) {})
			}
		}(i)
	}
	wg.Wait()

	var got []string
	for _, key := range keys {
		d.View(key, func(v *Value, ok bool) {
			if ok {
				got = append(got, key)
			}
		})
	}
	sort.Strings(got)
	want := append([]string(nil), keys...)
	sort.Strings(want)
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("keys surviving concurrent Mutate: %s", diff)
	}
}
