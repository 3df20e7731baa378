package provider

import (
	"bytes"
	"cmp"
	"slices"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/lysyi3m/video-comb/app/video"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage defers decoding of one item until it is normalized.
type RawMessage = jsoniter.RawMessage

// Decode unmarshals a provider payload.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Providers are loose with JSON types: ids, years and ratings arrive as
// numbers on one endpoint and strings on another, and empty values come
// as null, false, 0, "" or []. The Flex types accept all of them; falsy
// values decode to the zero value.

// falsy reports whether data is a JSON literal the providers use for
// "no value".
func falsy(data []byte) bool {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "", "null", "false", `""`, "[]", "{}":
		return true
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		f, err := strconv.ParseFloat(string(data), 64)
		return err == nil && f == 0
	}
	return false
}

type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if falsy(data) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
	case '[', '{':
		// Structured values never fit a text field.
		*s = ""
	default:
		*s = FlexString(data)
	}
	return nil
}

func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = FlexInt(ParseInt(s.String()))
	return nil
}

type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s.String(), ",", "."), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(s.String()) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// FlexList accepts a JSON array of strings, a comma separated string or
// an object keyed by provider ids ({"4": "драма"}). Object values are
// ordered by key.
type FlexList []string

func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var items map[string]FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeys)
		out := make([]string, 0, len(items))
		for _, k := range keys {
			out = append(out, items[k].String())
		}
		*l = FlexList(video.CleanList(out))
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.String())
		}
		*l = FlexList(video.CleanList(out))
		return nil
	}
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*l = FlexList(video.SplitList(s.String()))
	return nil
}

// Optional holds a nested object or array. Falsy placeholders leave it
// unset instead of failing the whole item.
type Optional[T any] struct {
	Value T
	Set   bool
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	*o = Optional[T]{}
	if falsy(data) {
		return nil
	}
	data = bytes.TrimSpace(data)
	if data[0] != '{' && data[0] != '[' {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// compareKeys orders numeric keys by value and everything else lexically.
func compareKeys(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

// ParseInt returns the leading integer in s, or 0. "120 мин." gives 120.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
