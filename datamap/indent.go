// Display-only indentation pass for compact JSON text.

package datamap

import "strings"

// Indent reformats already-serialized compact JSON for display by inserting
// a newline plus one copy of unit per nesting level after every '{', '[' and
// ',' and before every '}' and ']'. The depth counter is decremented after a
// closing bracket is emitted, so the bracket itself sits at the inner depth
// and the text after it at the outer depth.
//
// This is a convenience for human readers, not a serializer: text inside
// string literals is not treated specially, and round-trip correctness of
// the document never depends on it.
func Indent(jsonText, unit string) string {
	var out strings.Builder
	out.Grow(len(jsonText) * 2)
	level := 0
	for i := 0; i < len(jsonText); i++ {
		c := jsonText[i]
		var next byte
		if i < len(jsonText)-1 {
			next = jsonText[i+1]
		}
		out.WriteByte(c)
		switch c {
		case '{', '[':
			level++
		case '}', ']':
			level--
		}
		if c == '{' || c == '[' || c == ',' || next == '}' || next == ']' {
			out.WriteByte('\n')
			for n := 0; n < level; n++ {
				out.WriteString(unit)
			}
		}
	}
	return out.String()
}
