package core

import "github.com/mshaverdo/pouch/message"

// zadd implements ZADD: upsert each element/score pair into the SORTEDSET
// at key, creating it if absent. Upserts use AddModeAdded, so the response
// count reflects only elements that were not already members, matching
// original_source/server/src/processor/sorted_sets.rs's zadd (which passes
// SortedSetAddReturnType::Added).
func (e *Engine) zadd(key string, values map[string]int64) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if ok && v.kind != KindSortedSet {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		nv := v
		if !ok {
			nv = newSortedSetValue()
		}

		affected := nv.sortedSet.AddAll(values, AddModeAdded)

		set(nv)
		resp = message.NewCountResponse(affected)
	})
	return resp
}

// zcard implements ZCARD.
func (e *Engine) zcard(key string) message.Response {
	var resp message.Response
	e.dict.View(key, func(v *Value, ok bool) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindSortedSet {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}
		resp = message.NewCountResponse(v.sortedSet.Cardinality())
	})
	return resp
}
