package core

import (
	"sync/atomic"
	"time"

	"github.com/mshaverdo/pouch/message"
)

// WALWriter durably appends a mutating command before it is applied to
// the dictionary (spec.md §4.D rule 2). Engine depends only on this
// interface, never on a concrete WAL implementation, so tests can
// substitute a fake journaler (spec.md §9's "trait-like polymorphism"
// design note).
type WALWriter interface {
	Append(cmd message.Command) error
}

// mutatingActions classifies commands that mutate the dictionary and
// must therefore be durably logged before being applied (spec.md §4.D
// rule 1).
var mutatingActions = map[message.Action]bool{
	message.ActionSet:    true,
	message.ActionDelete: true,
	message.ActionGetDel: true,
	message.ActionLPush:  true,
	message.ActionRPush:  true,
	message.ActionLPop:   true,
	message.ActionRPop:   true,
	message.ActionIncr:   true,
	message.ActionIncrBy: true,
	message.ActionDecr:   true,
	message.ActionDecrBy: true,
	message.ActionSAdd:   true,
	message.ActionZAdd:   true,
}

// IsMutating reports whether action mutates the dictionary and therefore
// requires a WAL append before it is applied.
func IsMutating(action message.Action) bool {
	return mutatingActions[action]
}

// Engine dispatches commands against a Dictionary, enforcing type
// compatibility and TTL semantics (spec.md §4.D). Grounded on
// original_source/server/src/processor/db.rs's Processor::cmd match
// dispatch and its log_if_some! append-before-apply macro.
type Engine struct {
	dict *Dictionary

	// lastTime is the unix-seconds watermark used to detect the wall
	// clock running backwards (spec.md's TimeWentBackwards).
	lastTime int64
}

// NewEngine returns an Engine backed by a fresh, empty Dictionary.
func NewEngine() *Engine {
	return &Engine{dict: NewDictionary()}
}

// now returns the current unix-seconds time and advances the monotonic
// watermark, or reports false if the wall clock has gone backwards
// relative to a previously observed reading.
func (e *Engine) now() (int64, bool) {
	n := time.Now().Unix()
	for {
		last := atomic.LoadInt64(&e.lastTime)
		if n < last {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(&e.lastTime, last, n) {
			return n, true
		}
	}
}

// checkExpiry reports whether v (a STRING) is currently expired. For
// non-STRING kinds and for the no-expiry sentinel it always reports not
// expired. timeOK is false only if the wall clock appears to have gone
// backwards while computing "now".
func (e *Engine) checkExpiry(v *Value) (expired, timeOK bool) {
	if v.kind != KindString || v.expiryTS == noExpiry {
		return false, true
	}
	now, ok := e.now()
	if !ok {
		return false, false
	}
	return now > v.expiryTS, true
}

// resolveExpiry finalizes cmd.ExpiryTS for a SET command before it is
// appended to the WAL, so replay never has to recompute a relative
// offset against a new "now" (spec.md §4.D, and see SPEC_FULL.md §4.D).
// An expiry_seconds of 0 is treated as "no explicit expiry" via the
// noExpiry sentinel, resolving spec.md §9's open question in the
// direction it permits.
func (e *Engine) resolveExpiry(cmd message.Command) (message.Command, bool) {
	if cmd.ExpiryTS != 0 {
		// Already resolved -- e.g. a WAL replay re-applying a finalized command.
		return cmd, true
	}
	if cmd.ExpirySeconds == 0 {
		cmd.ExpiryTS = noExpiry
		return cmd, true
	}

	now, ok := e.now()
	if !ok {
		return cmd, false
	}
	cmd.ExpiryTS = now + cmd.ExpirySeconds
	return cmd, true
}

// Apply dispatches cmd and returns its response (spec.md §4.D). When wal
// is non-nil and cmd mutates state, the command is durably appended
// before it is applied to the dictionary; a WAL failure aborts the
// command without mutating anything and returns message.NewIOErrorResponse.
func (e *Engine) Apply(cmd message.Command, wal WALWriter) message.Response {
	if IsMutating(cmd.Action) {
		if cmd.Action == message.ActionSet {
			resolved, ok := e.resolveExpiry(cmd)
			if !ok {
				return message.NewErrorResponse(message.ErrTimeWentBackwards)
			}
			cmd = resolved
		}

		if wal != nil {
			if err := wal.Append(cmd); err != nil {
				return message.NewIOErrorResponse()
			}
		}
	}

	switch cmd.Action {
	case message.ActionGet:
		return e.get(cmd.Key)
	case message.ActionGetDel:
		return e.getDel(cmd.Key)
	case message.ActionSet:
		return e.set(cmd.Key, []byte(cmd.Value), cmd.ExpiryTS)
	case message.ActionDelete:
		return e.delete(cmd.Keys)
	case message.ActionExists:
		return e.exists(cmd.Key)
	case message.ActionIncr:
		return e.incrBy(cmd.Key, 1)
	case message.ActionIncrBy:
		return e.incrBy(cmd.Key, cmd.Increment)
	case message.ActionDecr:
		return e.incrBy(cmd.Key, -1)
	case message.ActionDecrBy:
		return e.incrBy(cmd.Key, -cmd.Decrement)
	case message.ActionLPush:
		return e.push(cmd.Key, cmd.Values, true)
	case message.ActionRPush:
		return e.push(cmd.Key, cmd.Values, false)
	case message.ActionLPop:
		return e.pop(cmd.Key, true)
	case message.ActionRPop:
		return e.pop(cmd.Key, false)
	case message.ActionLRange:
		return e.lrange(cmd.Key, cmd.Start, cmd.End)
	case message.ActionLLen:
		return e.llen(cmd.Key)
	case message.ActionSAdd:
		return e.sadd(cmd.Key, cmd.Values)
	case message.ActionSCard:
		return e.scard(cmd.Key)
	case message.ActionSInter:
		return e.sinter(cmd.Key, cmd.Others)
	case message.ActionSDiff:
		return e.sdiff(cmd.Key, cmd.Others)
	case message.ActionZAdd:
		return e.zadd(cmd.Key, cmd.ScoredValues)
	case message.ActionZCard:
		return e.zcard(cmd.Key)
	default:
		return message.NewErrorResponse(message.ErrUnknownCommand)
	}
}

// delete removes every key present among keys regardless of kind
// (spec.md §4.A: DELETE is type-agnostic, grounded on
// original_source/server/src/processor/db.rs's InMemoryDb::delete).
func (e *Engine) delete(keys []string) message.Response {
	n := e.dict.Delete(keys)
	return message.NewAffectedKeysResponse(n)
}

// exists reports presence of key under any kind, applying lazy STRING
// expiry first (spec.md §4.A: EXISTS is type-agnostic, grounded on
// original_source/server/src/processor/db.rs's InMemoryDb::exists).
func (e *Engine) exists(key string) message.Response {
	var resp message.Response
	e.dict.Mutate(key, func(v *Value, ok bool, set func(*Value), del func()) {
		if !ok {
			resp = message.NewBoolValueResponse(false)
			return
		}

		expired, timeOK := e.checkExpiry(v)
		if !timeOK {
			resp = message.NewErrorResponse(message.ErrTimeWentBackwards)
			return
		}
		if expired {
			del()
			resp = message.NewBoolValueResponse(false)
			return
		}

		resp = message.NewBoolValueResponse(true)
	})
	return resp
}
