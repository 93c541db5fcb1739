package core

import "github.com/mshaverdo/pouch/message"

// push implements LPUSH (left=true) and RPUSH (left=false). LPUSH
// prepends each given element in the order supplied, leaving the last
// supplied element at position 0; RPUSH appends in order (spec.md
// §4.A). LPUSH/RPUSH are creators. The response carries the resulting
// list length, following
// original_source/server/src/processor/lists.rs's lpush/rpush (which
// return Response::Integer(list.len())); spec.md does not give an
// explicit response shape for these two commands, so this is grounded
// directly on the original rather than on spec.md wording.
func (e *Engine) push(key string, values []string, left bool) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if ok && v.kind != KindList {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		var list [][]byte
		if ok {
			list = v.list
		}

		if left {
			for _, val := range values {
				list = append([][]byte{[]byte(val)}, list...)
			}
		} else {
			for _, val := range values {
				list = append(list, []byte(val))
			}
		}

		set(newListValue(list))
		resp = message.NewCountResponse(len(list))
	})
	return resp
}

// pop implements LPOP (left=true) and RPOP (left=false): remove and
// return the head or tail element. An empty list resolves the open
// question in spec.md §9 as UnknownKey, same as an absent key.
func (e *Engine) pop(key string, left bool) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindList {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}
		if len(v.list) == 0 {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}

		var popped []byte
		var rest [][]byte
		if left {
			popped = v.list[0]
			rest = v.list[1:]
		} else {
			popped = v.list[len(v.list)-1]
			rest = v.list[:len(v.list)-1]
		}

		set(newListValue(rest))
		resp = message.NewStringValueResponse(string(popped))
	})
	return resp
}

// lrange implements LRANGE: clamp start and end to [0, len] (both
// missing means full range), returning an empty list on an inverted
// range (spec.md §4.A).
func (e *Engine) lrange(key string, start, end *int) message.Response {
	var resp message.Response
	e.dict.View(key, func(v *Value, ok bool) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindList {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		n := len(v.list)
		s, en := 0, n
		if start != nil {
			s = clamp(*start, 0, n)
		}
		if end != nil {
			en = clamp(*end, 0, n)
		}
		if en < s {
			resp = message.NewValuesResponse(nil)
			return
		}

		out := make([]string, 0, en-s)
		for _, b := range v.list[s:en] {
			out = append(out, string(b))
		}
		resp = message.NewValuesResponse(out)
	})
	return resp
}

// llen implements LLEN.
func (e *Engine) llen(key string) message.Response {
	var resp message.Response
	e.dict.View(key, func(v *Value, ok bool) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindList {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}
		resp = message.NewCountResponse(len(v.list))
	})
	return resp
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
