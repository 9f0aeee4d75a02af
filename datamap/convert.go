// Bidirectional conversion between nested maps and JSON document trees.

package datamap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TimeSuffix tags keys whose value is a timestamp (or a homogeneous
	// list of timestamps) in the serialized JSON.
	TimeSuffix = "@ISOtime"
	// BinarySuffix tags keys whose value is a binary blob (or a homogeneous
	// list of blobs), stored as standard padded base64.
	BinarySuffix = "@base64"
)

// ConvError is a conversion failure. It names the offending key and, on the
// read side, the raw text that could not be decoded.
type ConvError struct {
	Key string // offending map key
	Raw string // raw text encountered, if any
	Err error  // wrapped cause, may be nil
}

func (e *ConvError) Error() string {
	msg := fmt.Sprintf("cannot convert entry %q", e.Key)
	if e.Raw != "" {
		msg += fmt.Sprintf(" (value %q)", e.Raw)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConvError) Unwrap() error {
	return e.Err
}

// ToDocument converts a nested map into a JSON-ready document tree.
// Timestamp and binary values (and homogeneous lists thereof) move under
// suffix-tagged keys as formatted text; everything else maps to its native
// JSON kind. The transform is pure: on failure the partial document is
// discarded and a single ConvError naming the first offending entry is
// returned.
func ToDocument(m map[string]any) (map[string]any, error) {
	doc := make(map[string]any, len(m))
	for key, value := range m {
		if err := encodeEntry(doc, key, value); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func encodeEntry(doc map[string]any, key string, value any) error {
	switch KindOf(value) {
	case KindNull:
		doc[key] = nil
	case KindBool:
		doc[key] = value.(bool)
	case KindInt:
		n, ok := asInt64(value)
		if !ok {
			return &ConvError{Key: key, Err: fmt.Errorf("integer %v overflows int64", value)}
		}
		doc[key] = n
	case KindFloat:
		doc[key] = asFloat64(value)
	case KindString:
		doc[key] = value.(string)
	case KindTime:
		doc[key+TimeSuffix] = formatInstant(value.(time.Time))
	case KindBinary:
		doc[key+BinarySuffix] = base64.StdEncoding.EncodeToString(value.([]byte))
	case KindList:
		list := asList(value)
		switch {
		case listKind(list, KindTime):
			out := make([]any, len(list))
			for i, v := range list {
				out[i] = formatInstant(v.(time.Time))
			}
			doc[key+TimeSuffix] = out
		case listKind(list, KindBinary):
			out := make([]any, len(list))
			for i, v := range list {
				out[i] = base64.StdEncoding.EncodeToString(v.([]byte))
			}
			doc[key+BinarySuffix] = out
		default:
			arr, err := encodeArray(list)
			if err != nil {
				return &ConvError{Key: key, Err: err}
			}
			doc[key] = arr
		}
	case KindMap:
		child, err := asStringMap(value)
		if err != nil {
			return &ConvError{Key: key, Err: err}
		}
		sub, err := ToDocument(child)
		if err != nil {
			return &ConvError{Key: key, Err: err}
		}
		doc[key] = sub
	default:
		return &ConvError{Key: key, Err: fmt.Errorf("unsupported type %T", value)}
	}
	return nil
}

// encodeArray serializes a heterogeneous list element-wise. A nested list
// that is homogeneously timestamps or blobs still encodes as formatted text,
// but with no key available the type tag is lost; such values come back as
// plain strings. A timestamp or blob mixed with other kinds has no encoding
// at all and fails.
func encodeArray(list []any) ([]any, error) {
	if listKind(list, KindTime) {
		out := make([]any, len(list))
		for i, v := range list {
			out[i] = formatInstant(v.(time.Time))
		}
		return out, nil
	}
	if listKind(list, KindBinary) {
		out := make([]any, len(list))
		for i, v := range list {
			out[i] = base64.StdEncoding.EncodeToString(v.([]byte))
		}
		return out, nil
	}
	out := make([]any, len(list))
	for i, v := range list {
		switch KindOf(v) {
		case KindNull:
			out[i] = nil
		case KindBool:
			out[i] = v.(bool)
		case KindInt:
			n, ok := asInt64(v)
			if !ok {
				return nil, fmt.Errorf("element %d: integer %v overflows int64", i, v)
			}
			out[i] = n
		case KindFloat:
			out[i] = asFloat64(v)
		case KindString:
			out[i] = v.(string)
		case KindMap:
			child, err := asStringMap(v)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			sub, err := ToDocument(child)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = sub
		case KindList:
			sub, err := encodeArray(asList(v))
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = sub
		default:
			// Timestamps and blobs in a mixed list have no tagged key to
			// carry their type; refusing is better than decaying to text.
			return nil, fmt.Errorf("element %d: unsupported type %T in mixed list", i, v)
		}
	}
	return out, nil
}

// FromDocument converts a parsed JSON document tree back into a nested map,
// reversing ToDocument. Numeric values must arrive as json.Number (use
// Unmarshal, or a json.Decoder with UseNumber). Suffix-tagged keys are
// stripped exactly once, at the key level of the immediate parent mapping;
// arrays nested below a tagged key decode element-wise without suffix
// handling.
func FromDocument(doc map[string]any) (map[string]any, error) {
	m := make(map[string]any, len(doc))
	for key, raw := range doc {
		if err := decodeEntry(m, key, raw); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeEntry(m map[string]any, key string, raw any) error {
	arr, isArray := raw.([]any)
	switch {
	case strings.HasSuffix(key, TimeSuffix):
		bare := strings.TrimSuffix(key, TimeSuffix)
		if isArray {
			out := make([]any, len(arr))
			for i, v := range arr {
				t, err := decodeInstant(v)
				if err != nil {
					return &ConvError{Key: bare, Raw: rawText(v), Err: err}
				}
				out[i] = t
			}
			m[bare] = out
			return nil
		}
		t, err := decodeInstant(raw)
		if err != nil {
			return &ConvError{Key: bare, Raw: rawText(raw), Err: err}
		}
		m[bare] = t
	case strings.HasSuffix(key, BinarySuffix):
		bare := strings.TrimSuffix(key, BinarySuffix)
		if isArray {
			out := make([]any, len(arr))
			for i, v := range arr {
				b, err := decodeBase64(v)
				if err != nil {
					return &ConvError{Key: bare, Raw: rawText(v), Err: err}
				}
				out[i] = b
			}
			m[bare] = out
			return nil
		}
		b, err := decodeBase64(raw)
		if err != nil {
			return &ConvError{Key: bare, Raw: rawText(raw), Err: err}
		}
		m[bare] = b
	default:
		v, err := decodeValue(raw)
		if err != nil {
			return &ConvError{Key: key, Raw: rawText(raw), Err: err}
		}
		m[key] = v
	}
	return nil
}

// decodeValue handles the untagged JSON kinds. Nested objects recurse
// through FromDocument, so suffix stripping applies at every mapping level;
// nested arrays decode element-wise with no suffix handling.
func decodeValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return v, nil
	case json.Number:
		return decodeNumber(v)
	case map[string]any:
		return FromDocument(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			d, err := decodeValue(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported JSON node %T", raw)
	}
}

// decodeNumber follows the numeric text: no fraction or exponent means
// int64, otherwise float64. Integers too wide for int64 fall back to
// float64, matching the widening JSON itself performs.
func decodeNumber(n json.Number) (any, error) {
	text := n.String()
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number: %w", err)
	}
	return f, nil
}

// formatInstant writes a UTC instant as ISO-8601 text with a trailing Z and
// second-or-finer precision. Exact inverse of decodeInstant.
func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeInstant(raw any) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp value is %T, not text", raw)
	}
	// Strict instant profile: offset form must be the literal Z.
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("timestamp %q does not end in Z", s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeBase64(raw any) ([]byte, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("binary value is %T, not text", raw)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// rawText renders a JSON-side value for error messages.
func rawText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Marshal converts a nested map through ToDocument and serializes it as
// compact JSON. Map keys emit in sorted order, so output is deterministic.
func Marshal(m map[string]any) ([]byte, error) {
	doc, err := ToDocument(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Unmarshal parses JSON text and converts it through FromDocument. The top
// level must be a JSON object.
func Unmarshal(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed JSON document: %w", err)
	}
	return FromDocument(doc)
}
