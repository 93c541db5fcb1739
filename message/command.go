// Package message defines the wire shapes pouch exchanges with clients:
// the Command a connection decodes from a frame, and the Response the
// engine produces for it (spec.md §6).
package message

import (
	"encoding/json"
	"fmt"
)

// Action identifies which command variant a Command carries.
type Action string

const (
	ActionGet    Action = "GET"
	ActionGetDel Action = "GETDEL"
	ActionSet    Action = "SET"
	ActionDelete Action = "DELETE"
	ActionLPush  Action = "LPUSH"
	ActionRPush  Action = "RPUSH"
	ActionLRange Action = "LRANGE"
	ActionLLen   Action = "LLEN"
	ActionLPop   Action = "LPOP"
	ActionRPop   Action = "RPOP"
	ActionExists Action = "EXISTS"
	ActionIncr   Action = "INCR"
	ActionIncrBy Action = "INCRBY"
	ActionDecr   Action = "DECR"
	ActionDecrBy Action = "DECRBY"
	ActionSAdd   Action = "SADD"
	ActionSCard  Action = "SCARD"
	ActionSInter Action = "SINTER"
	ActionSDiff  Action = "SDIFF"
	ActionZAdd   Action = "ZADD"
	ActionZCard  Action = "ZCARD"
)

// Command is the decoded shape of every request pouch understands
// (spec.md §6). Only the fields relevant to Action are populated; the
// rest stay zero. The "values" wire field is polymorphic (an array for
// LPUSH/RPUSH/SADD, an object for ZADD), so Command carries both
// possible destinations and picks between them based on Action during
// (un)marshaling.
type Command struct {
	Action Action

	Key  string
	Keys []string

	Value         string
	ExpirySeconds int64
	ExpiryTS      int64

	Values       []string
	ScoredValues map[string]int64

	Start *int
	End   *int

	Increment int64
	Decrement int64

	Others []string
}

// wireCommand is the literal JSON shape of Command; Values is deferred as
// raw JSON so its type (array vs. object) can be resolved by Action.
type wireCommand struct {
	Action        Action          `json:"action"`
	Key           string          `json:"key,omitempty"`
	Keys          []string        `json:"keys,omitempty"`
	Value         string          `json:"value,omitempty"`
	ExpirySeconds int64           `json:"expiry_seconds,omitempty"`
	ExpiryTS      int64           `json:"expiry_ts,omitempty"`
	Values        json.RawMessage `json:"values,omitempty"`
	Start         *int            `json:"start,omitempty"`
	End           *int            `json:"end,omitempty"`
	Increment     int64           `json:"increment,omitempty"`
	Decrement     int64           `json:"decrement,omitempty"`
	Others        []string        `json:"others,omitempty"`
}

// MarshalJSON emits the exact wire shape from spec.md §6.
func (c Command) MarshalJSON() ([]byte, error) {
	w := wireCommand{
		Action:        c.Action,
		Key:           c.Key,
		Keys:          c.Keys,
		Value:         c.Value,
		ExpirySeconds: c.ExpirySeconds,
		ExpiryTS:      c.ExpiryTS,
		Start:         c.Start,
		End:           c.End,
		Increment:     c.Increment,
		Decrement:     c.Decrement,
		Others:        c.Others,
	}

	switch c.Action {
	case ActionZAdd:
		raw, err := json.Marshal(c.ScoredValues)
		if err != nil {
			return nil, fmt.Errorf("message: marshal ZADD values: %w", err)
		}
		w.Values = raw
	case ActionLPush, ActionRPush, ActionSAdd:
		raw, err := json.Marshal(c.Values)
		if err != nil {
			return nil, fmt.Errorf("message: marshal %s values: %w", c.Action, err)
		}
		w.Values = raw
	}

	return json.Marshal(w)
}

// UnmarshalJSON parses a wire command, resolving the polymorphic "values"
// field according to Action.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = Command{
		Action:        w.Action,
		Key:           w.Key,
		Keys:          w.Keys,
		Value:         w.Value,
		ExpirySeconds: w.ExpirySeconds,
		ExpiryTS:      w.ExpiryTS,
		Start:         w.Start,
		End:           w.End,
		Increment:     w.Increment,
		Decrement:     w.Decrement,
		Others:        w.Others,
	}

	if len(w.Values) == 0 {
		return nil
	}

	switch w.Action {
	case ActionZAdd:
		return json.Unmarshal(w.Values, &c.ScoredValues)
	case ActionLPush, ActionRPush, ActionSAdd:
		return json.Unmarshal(w.Values, &c.Values)
	default:
		return fmt.Errorf("message: action %q does not accept a values field", w.Action)
	}
}
