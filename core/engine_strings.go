package core

import (
	"strconv"

	"github.com/mshaverdo/pouch/message"
)

// get implements GET: return the string at key, applying lazy expiry
// first (spec.md §4.A, I2). Grounded on
// original_source/server/src/processor/strings.rs's get.
func (e *Engine) get(key string) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindString {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		expired, timeOK := e.checkExpiry(v)
		if !timeOK {
			resp = message.NewErrorResponse(message.ErrTimeWentBackwards)
			return
		}
		if expired {
			del()
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}

		resp = message.NewStringValueResponse(string(v.str))
	})
	return resp
}

// getDel implements GETDEL: return the string at key and remove it
// unconditionally (an already-expired value still yields UnknownKey, not
// the stale string). Grounded on
// original_source/server/src/processor/strings.rs's get_del.
func (e *Engine) getDel(key string) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindString {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		expired, timeOK := e.checkExpiry(v)
		if !timeOK {
			resp = message.NewErrorResponse(message.ErrTimeWentBackwards)
			return
		}
		if expired {
			del()
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}

		value := string(v.str)
		del()
		resp = message.NewStringValueResponse(value)
	})
	return resp
}

// set implements SET: create or replace the STRING at key. SET is a
// creator per the type-compatibility algorithm (spec.md §4.D): it
// refuses to overwrite a key currently holding a different kind.
func (e *Engine) set(key string, value []byte, expiryTS int64) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if ok && v.kind != KindString {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		set(newStringValue(value, expiryTS))
		resp = message.NewAffectedKeysResponse(1)
	})
	return resp
}

// incrBy implements INCR/INCRBY/DECR/DECRBY by adding delta to the
// integer parsed from the STRING at key. INCR family is not a creator:
// an absent key yields UnknownKey (spec.md §4.A). A non-integer payload
// or an overflowing sum both yield NotInteger (spec.md §9's explicit
// overflow resolution). Grounded on
// original_source/server/src/processor/strings.rs's incr/incr_by/decr/decr_by.
func (e *Engine) incrBy(key string, delta int64) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if !ok {
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}
		if v.kind != KindString {
			resp = message.NewErrorResponse(message.ErrIncompatibleDataType)
			return
		}

		expired, timeOK := e.checkExpiry(v)
		if !timeOK {
			resp = message.NewErrorResponse(message.ErrTimeWentBackwards)
			return
		}
		if expired {
			del()
			resp = message.NewErrorResponse(message.ErrUnknownKey)
			return
		}

		current, err := strconv.ParseInt(string(v.str), 10, 64)
		if err != nil {
			resp = message.NewErrorResponse(message.ErrNotInteger)
			return
		}

		next, overflow := addInt64(current, delta)
		if overflow {
			resp = message.NewErrorResponse(message.ErrNotInteger)
			return
		}

		set(newStringValue([]byte(strconv.FormatInt(next, 10)), v.expiryTS))
		resp = message.NewIntValueResponse(next)
	})
	return resp
}

func addInt64(a, b int64) (sum int64, overflow bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	return sum, false
}
