package message

import (
	"encoding/json"
	"fmt"
)

// ErrorCode names one of the documented response error variants
// (spec.md §7).
type ErrorCode string

const (
	ErrUnknownCommand       ErrorCode = "UnknownCommand"
	ErrUnknownKey           ErrorCode = "UnknownKey"
	ErrIncompatibleDataType ErrorCode = "IncompatibleDataType"
	ErrNotInteger           ErrorCode = "NotInteger"
	ErrTimeWentBackwards    ErrorCode = "TimeWentBackwards"

	// errIO is not part of the documented taxonomy in spec.md §7. It
	// exists only so a WAL append failure (spec.md §4.D rule 2) can be
	// surfaced as a response variant that tells the request pipeline to
	// tear the connection down; a well-behaved caller never sees it
	// documented as part of the public error set.
	errIO ErrorCode = "IOError"
)

type responseKind int

const (
	kindValues responseKind = iota
	kindError
	kindAffectedKeys
	kindCount
	kindValueString
	kindValueInt
	kindValueBool
)

// Response is the untagged envelope Engine.Apply returns (spec.md §6);
// the populated field (driven by kind) identifies the variant.
type Response struct {
	kind responseKind

	values       []string
	errCode      ErrorCode
	affectedKeys int
	count        int
	valueString  string
	valueInt     int64
	valueBool    bool
}

// NewValuesResponse builds a list/set-shaped response. A nil values slice
// is normalized to an empty one so the wire always carries "values":[]
// rather than "values":null.
func NewValuesResponse(values []string) Response {
	if values == nil {
		values = []string{}
	}
	return Response{kind: kindValues, values: values}
}

// NewErrorResponse builds one of the five documented error variants.
func NewErrorResponse(code ErrorCode) Response {
	return Response{kind: kindError, errCode: code}
}

// NewIOErrorResponse builds the internal, undocumented WAL-failure
// signal described on errIO.
func NewIOErrorResponse() Response {
	return Response{kind: kindError, errCode: errIO}
}

// NewAffectedKeysResponse builds an {"affected_keys":n} response.
func NewAffectedKeysResponse(n int) Response {
	return Response{kind: kindAffectedKeys, affectedKeys: n}
}

// NewCountResponse builds a {"count":n} response.
func NewCountResponse(n int) Response {
	return Response{kind: kindCount, count: n}
}

// NewStringValueResponse builds a {"value":"..."} response.
func NewStringValueResponse(s string) Response {
	return Response{kind: kindValueString, valueString: s}
}

// NewIntValueResponse builds a {"value":n} response.
func NewIntValueResponse(n int64) Response {
	return Response{kind: kindValueInt, valueInt: n}
}

// NewBoolValueResponse builds a {"value":true|false} response.
func NewBoolValueResponse(b bool) Response {
	return Response{kind: kindValueBool, valueBool: b}
}

// IsFatal reports whether this response signals a failure that must tear
// the connection down (spec.md §4.F) -- currently only a WAL write
// failure.
func (r Response) IsFatal() bool {
	return r.kind == kindError && r.errCode == errIO
}

// Values returns the values slice for a values-kind response.
func (r Response) Values() ([]string, bool) {
	return r.values, r.kind == kindValues
}

// Error returns the error code for an error-kind response.
func (r Response) Error() (ErrorCode, bool) {
	return r.errCode, r.kind == kindError
}

// AffectedKeys returns the affected-keys count for that response kind.
func (r Response) AffectedKeys() (int, bool) {
	return r.affectedKeys, r.kind == kindAffectedKeys
}

// Count returns the count for a count-kind response.
func (r Response) Count() (int, bool) {
	return r.count, r.kind == kindCount
}

// StringValue returns the string for a string-value response.
func (r Response) StringValue() (string, bool) {
	return r.valueString, r.kind == kindValueString
}

// IntValue returns the integer for an int-value response.
func (r Response) IntValue() (int64, bool) {
	return r.valueInt, r.kind == kindValueInt
}

// BoolValue returns the boolean for a bool-value response.
func (r Response) BoolValue() (bool, bool) {
	return r.valueBool, r.kind == kindValueBool
}

// MarshalJSON emits the exact untagged envelope shape from spec.md §6.
// The shapes are distinguished by which single field is present, so a
// generic struct-tag-driven marshal (which cannot tell a legitimately
// empty slice from an omitted one) would not do -- each kind builds its
// own literal object.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case kindValues:
		return json.Marshal(struct {
			Values []string `json:"values"`
		}{r.values})
	case kindError:
		return json.Marshal(struct {
			Error ErrorCode `json:"error"`
		}{r.errCode})
	case kindAffectedKeys:
		return json.Marshal(struct {
			AffectedKeys int `json:"affected_keys"`
		}{r.affectedKeys})
	case kindCount:
		return json.Marshal(struct {
			Count int `json:"count"`
		}{r.count})
	case kindValueString:
		return json.Marshal(struct {
			Value string `json:"value"`
		}{r.valueString})
	case kindValueInt:
		return json.Marshal(struct {
			Value int64 `json:"value"`
		}{r.valueInt})
	case kindValueBool:
		return json.Marshal(struct {
			Value bool `json:"value"`
		}{r.valueBool})
	default:
		return nil, fmt.Errorf("message: response: unknown kind %d", r.kind)
	}
}
