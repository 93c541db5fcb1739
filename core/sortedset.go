package core

import "github.com/google/btree"

// AddMode selects how SortedSet.Add and SortedSet.AddAll count an upsert
// as "affected", matching the two return semantics spec.md §4.B names.
type AddMode int

const (
	// AddModeAdded counts an element as affected only if it was not
	// previously present, regardless of whether its score changed.
	AddModeAdded AddMode = iota
	// AddModeChanged counts an element as affected if it is new OR its
	// score changed.
	AddModeChanged
)

// scoreBucket is one node of the score-ordered btree: all elements
// currently sharing a given score, in insertion order.
type scoreBucket struct {
	score    int64
	elements []string
}

func (b *scoreBucket) Less(than btree.Item) bool {
	return b.score < than.(*scoreBucket).score
}

// SortedSet is a multimap from signed 64-bit score to unique elements,
// backed by two indexes: a score-ordered btree for O(log n) range
// iteration, and an element->score map for O(1) membership (spec.md
// §4.B). Grounded on original_source/src/structures/sorted_set.rs's
// BTreeMap<i64, Vec<T>> + HashMap<T, i64> pair; the btree here plays the
// role of the Rust BTreeMap.
type SortedSet struct {
	byScore   *btree.BTree
	byElement map[string]int64
}

// NewSortedSet returns an empty SortedSet.
func NewSortedSet() *SortedSet {
	return &SortedSet{
		byScore:   btree.New(32),
		byElement: make(map[string]int64),
	}
}

// Add upserts element at score under the given mode, maintaining invariant
// I1 (the two indexes stay mutually consistent) even on a no-op upsert. It
// returns 1 if the upsert counts as affected under mode, else 0.
func (s *SortedSet) Add(element string, score int64, mode AddMode) int {
	oldScore, existed := s.byElement[element]

	affected := 1
	if existed {
		scoreChanged := oldScore != score
		switch mode {
		case AddModeAdded:
			affected = 0
		case AddModeChanged:
			if scoreChanged {
				affected = 1
			} else {
				affected = 0
			}
		}

		if !scoreChanged {
			return affected
		}

		s.removeFromBucket(oldScore, element)
	}

	s.insertIntoBucket(score, element)
	s.byElement[element] = score

	return affected
}

// AddAll upserts every element in values under mode and returns the sum of
// the per-element affected counts (spec.md §4.B add_all).
func (s *SortedSet) AddAll(values map[string]int64, mode AddMode) int {
	total := 0
	for element, score := range values {
		total += s.Add(element, score, mode)
	}
	return total
}

// Remove deletes element, returning its prior score and whether it existed.
func (s *SortedSet) Remove(element string) (score int64, ok bool) {
	score, ok = s.byElement[element]
	if !ok {
		return 0, false
	}

	s.removeFromBucket(score, element)
	delete(s.byElement, element)

	return score, true
}

// Score returns the score of element and whether it exists.
func (s *SortedSet) Score(element string) (int64, bool) {
	score, ok := s.byElement[element]
	return score, ok
}

// Range returns every element whose score lies within the closed interval
// [lo, hi], in ascending score order, and in insertion order within a
// single score.
func (s *SortedSet) Range(lo, hi int64) []string {
	var out []string
	pivot := &scoreBucket{score: lo}
	s.byScore.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		b := i.(*scoreBucket)
		if b.score > hi {
			return false
		}
		out = append(out, b.elements...)
		return true
	})
	return out
}

// Cardinality returns the number of distinct elements in the set.
func (s *SortedSet) Cardinality() int {
	return len(s.byElement)
}

func (s *SortedSet) insertIntoBucket(score int64, element string) {
	pivot := &scoreBucket{score: score}
	if existing := s.byScore.Get(pivot); existing != nil {
		b := existing.(*scoreBucket)
		b.elements = append(b.elements, element)
		return
	}
	s.byScore.ReplaceOrInsert(&scoreBucket{score: score, elements: []string{element}})
}

func (s *SortedSet) removeFromBucket(score int64, element string) {
	pivot := &scoreBucket{score: score}
	existing := s.byScore.Get(pivot)
	if existing == nil {
		return
	}

	b := existing.(*scoreBucket)
	for i, e := range b.elements {
		if e == element {
			b.elements = append(b.elements[:i], b.elements[i+1:]...)
			break
		}
	}

	if len(b.elements) == 0 {
		s.byScore.Delete(pivot)
	}
}
