package core

import (
	"errors"
	"testing"

	"github.com/go-test/deep"

	"github.com/mshaverdo/pouch/message"
)

// fakeWAL records every command Append received, for asserting exactly
// what Engine decided to durably log.
type fakeWAL struct {
	commands []message.Command
	failNext bool
}

func (w *fakeWAL) Append(cmd message.Command) error {
	if w.failNext {
		w.failNext = false
		return errSimulatedWALFailure
	}
	w.commands = append(w.commands, cmd)
	return nil
}

var errSimulatedWALFailure = errors.New("simulated WAL failure")

func mustValues(t *testing.T, resp message.Response) []string {
	t.Helper()
	v, ok := resp.Values()
	if !ok {
		t.Fatalf("response is not values-shaped: %+v", resp)
	}
	return v
}

func mustString(t *testing.T, resp message.Response) string {
	t.Helper()
	v, ok := resp.StringValue()
	if !ok {
		t.Fatalf("response is not a string value: %+v", resp)
	}
	return v
}

func mustInt(t *testing.T, resp message.Response) int64 {
	t.Helper()
	v, ok := resp.IntValue()
	if !ok {
		t.Fatalf("response is not an int value: %+v", resp)
	}
	return v
}

func mustCount(t *testing.T, resp message.Response) int {
	t.Helper()
	v, ok := resp.Count()
	if !ok {
		t.Fatalf("response is not a count: %+v", resp)
	}
	return v
}

func mustAffectedKeys(t *testing.T, resp message.Response) int {
	t.Helper()
	v, ok := resp.AffectedKeys()
	if !ok {
		t.Fatalf("response is not an affected_keys count: %+v", resp)
	}
	return v
}

// TestEngine_ConcreteScenarios exercises spec.md §8's seven literal
// scenarios end to end, including the WAL-replay equivalence in
// scenario 7 (P3).
func TestEngine_ConcreteScenarios(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	// 1. SET k v 3600; GET k
	setResp := engine.Apply(message.Command{Action: message.ActionSet, Key: "k", Value: "v", ExpirySeconds: 3600}, wal)
	if got := mustAffectedKeys(t, setResp); got != 1 {
		t.Errorf("SET k v 3600 affected_keys = %d, want 1", got)
	}
	if got := mustString(t, engine.Apply(message.Command{Action: message.ActionGet, Key: "k"}, wal)); got != "v" {
		t.Errorf("GET k = %q, want \"v\"", got)
	}

	// 2. LPUSH fruits apple; LPUSH fruits banana; LRANGE fruits 0 10
	engine.Apply(message.Command{Action: message.ActionLPush, Key: "fruits", Values: []string{"apple"}}, wal)
	engine.Apply(message.Command{Action: message.ActionLPush, Key: "fruits", Values: []string{"banana"}}, wal)
	start, end := 0, 10
	rangeResp := engine.Apply(message.Command{Action: message.ActionLRange, Key: "fruits", Start: &start, End: &end}, wal)
	if diff := deep.Equal(mustValues(t, rangeResp), []string{"banana", "apple"}); diff != nil {
		t.Errorf("LRANGE fruits 0 10: %s", diff)
	}

	// 3. RPUSH nums 1; RPUSH nums 2; LLEN nums; RPOP nums
	engine.Apply(message.Command{Action: message.ActionRPush, Key: "nums", Values: []string{"1"}}, wal)
	engine.Apply(message.Command{Action: message.ActionRPush, Key: "nums", Values: []string{"2"}}, wal)
	if got := mustCount(t, engine.Apply(message.Command{Action: message.ActionLLen, Key: "nums"}, wal)); got != 2 {
		t.Errorf("LLEN nums = %d, want 2", got)
	}
	if got := mustString(t, engine.Apply(message.Command{Action: message.ActionRPop, Key: "nums"}, wal)); got != "2" {
		t.Errorf("RPOP nums = %q, want \"2\"", got)
	}

	// 4. SET counter 10 3600; INCRBY counter 5; DECR counter
	engine.Apply(message.Command{Action: message.ActionSet, Key: "counter", Value: "10", ExpirySeconds: 3600}, wal)
	if got := mustInt(t, engine.Apply(message.Command{Action: message.ActionIncrBy, Key: "counter", Increment: 5}, wal)); got != 15 {
		t.Errorf("INCRBY counter 5 = %d, want 15", got)
	}
	if got := mustInt(t, engine.Apply(message.Command{Action: message.ActionDecr, Key: "counter"}, wal)); got != 14 {
		t.Errorf("DECR counter = %d, want 14", got)
	}

	// 5. SADD s a b c; SADD t b c d; SINTER s [t]
	engine.Apply(message.Command{Action: message.ActionSAdd, Key: "s", Values: []string{"a", "b", "c"}}, wal)
	engine.Apply(message.Command{Action: message.ActionSAdd, Key: "t", Values: []string{"b", "c", "d"}}, wal)
	interResp := engine.Apply(message.Command{Action: message.ActionSInter, Key: "s", Others: []string{"t"}}, wal)
	gotInter := mustValues(t, interResp)
	wantInter := map[string]bool{"b": true, "c": true}
	if len(gotInter) != len(wantInter) {
		t.Errorf("SINTER s [t] = %v, want set {b, c}", gotInter)
	}
	for _, v := range gotInter {
		if !wantInter[v] {
			t.Errorf("SINTER s [t] contains unexpected member %q", v)
		}
	}

	// 6. ZADD z {"x":1,"y":2}; ZADD z {"x":3}; ZCARD z
	engine.Apply(message.Command{Action: message.ActionZAdd, Key: "z", ScoredValues: map[string]int64{"x": 1, "y": 2}}, wal)
	engine.Apply(message.Command{Action: message.ActionZAdd, Key: "z", ScoredValues: map[string]int64{"x": 3}}, wal)
	if got := mustCount(t, engine.Apply(message.Command{Action: message.ActionZCard, Key: "z"}, wal)); got != 2 {
		t.Errorf("ZCARD z = %d, want 2", got)
	}

	// 7. Replaying the recorded WAL against a fresh engine reproduces the
	// same read-query responses (P3).
	replay := NewEngine()
	for _, cmd := range wal.commands {
		replay.Apply(cmd, nil)
	}

	if got := mustString(t, replay.Apply(message.Command{Action: message.ActionGet, Key: "k"}, nil)); got != "v" {
		t.Errorf("replayed GET k = %q, want \"v\"", got)
	}
	if diff := deep.Equal(mustValues(t, replay.Apply(message.Command{Action: message.ActionLRange, Key: "fruits", Start: &start, End: &end}, nil)), []string{"banana", "apple"}); diff != nil {
		t.Errorf("replayed LRANGE fruits 0 10: %s", diff)
	}
	if got := mustCount(t, replay.Apply(message.Command{Action: message.ActionLLen, Key: "nums"}, nil)); got != 1 {
		t.Errorf("replayed LLEN nums = %d, want 1 (one RPOP already logged)", got)
	}
	if got := mustCount(t, replay.Apply(message.Command{Action: message.ActionZCard, Key: "z"}, nil)); got != 2 {
		t.Errorf("replayed ZCARD z = %d, want 2", got)
	}
}

func TestEngine_TypeCompatibility(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionSet, Key: "str", Value: "v"}, wal)

	resp := engine.Apply(message.Command{Action: message.ActionLPush, Key: "str", Values: []string{"x"}}, wal)
	if code, ok := resp.Error(); !ok || code != message.ErrIncompatibleDataType {
		t.Errorf("LPUSH on a STRING key = %+v, want IncompatibleDataType", resp)
	}

	resp = engine.Apply(message.Command{Action: message.ActionLLen, Key: "missing"}, wal)
	if code, ok := resp.Error(); !ok || code != message.ErrUnknownKey {
		t.Errorf("LLEN on an absent key = %+v, want UnknownKey", resp)
	}
}

func TestEngine_EmptyListPopIsUnknownKey(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionLPush, Key: "l", Values: []string{"only"}}, wal)
	engine.Apply(message.Command{Action: message.ActionLPop, Key: "l"}, wal)

	resp := engine.Apply(message.Command{Action: message.ActionLPop, Key: "l"}, wal)
	if code, ok := resp.Error(); !ok || code != message.ErrUnknownKey {
		t.Errorf("LPOP on now-empty list = %+v, want UnknownKey", resp)
	}
}

func TestEngine_IncrOverflowIsNotInteger(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionSet, Key: "n", Value: "9223372036854775807"}, wal)
	resp := engine.Apply(message.Command{Action: message.ActionIncr, Key: "n"}, wal)
	if code, ok := resp.Error(); !ok || code != message.ErrNotInteger {
		t.Errorf("INCR overflow = %+v, want NotInteger", resp)
	}
}

func TestEngine_SDiffSkipsMissingOthers(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionSAdd, Key: "s", Values: []string{"a", "b"}}, wal)

	resp := engine.Apply(message.Command{Action: message.ActionSDiff, Key: "s", Others: []string{"missing"}}, wal)
	got := mustValues(t, resp)
	want := map[string]bool{"a": true, "b": true}
	if len(got) != len(want) {
		t.Errorf("SDIFF s [missing] = %v, want {a, b} unchanged", got)
	}
}

func TestEngine_SInterMissingOtherCollapsesToEmpty(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionSAdd, Key: "s", Values: []string{"a", "b"}}, wal)

	resp := engine.Apply(message.Command{Action: message.ActionSInter, Key: "s", Others: []string{"missing"}}, wal)
	got := mustValues(t, resp)
	if len(got) != 0 {
		t.Errorf("SINTER s [missing] = %v, want empty", got)
	}
}

func TestEngine_WALFailureIsFatalAndDoesNotMutate(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{failNext: true}

	resp := engine.Apply(message.Command{Action: message.ActionSet, Key: "k", Value: "v"}, wal)
	if !resp.IsFatal() {
		t.Errorf("SET with a failing WAL = %+v, want a fatal response", resp)
	}

	getResp := engine.Apply(message.Command{Action: message.ActionGet, Key: "k"}, wal)
	if code, ok := getResp.Error(); !ok || code != message.ErrUnknownKey {
		t.Errorf("GET k after a failed WAL-backed SET = %+v, want UnknownKey (no mutation happened)", getResp)
	}
}

func TestEngine_DeleteAndExistsAreTypeAgnostic(t *testing.T) {
	engine := NewEngine()
	wal := &fakeWAL{}

	engine.Apply(message.Command{Action: message.ActionLPush, Key: "l", Values: []string{"x"}}, wal)
	engine.Apply(message.Command{Action: message.ActionSAdd, Key: "s", Values: []string{"x"}}, wal)

	for _, key := range []string{"l", "s"} {
		resp := engine.Apply(message.Command{Action: message.ActionExists, Key: key}, wal)
		if got, ok := resp.BoolValue(); !ok || !got {
			t.Errorf("EXISTS %s = %+v, want true", key, resp)
		}
	}

	delResp := engine.Apply(message.Command{Action: message.ActionDelete, Keys: []string{"l", "s", "missing"}}, wal)
	if got := mustAffectedKeys(t, delResp); got != 2 {
		t.Errorf("DELETE [l, s, missing] affected_keys = %d, want 2", got)
	}
}
