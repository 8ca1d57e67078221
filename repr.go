package pymarshal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Repr returns a Python-flavored textual representation of obj.
//
// Scalars and containers print the way Python's repr would show them,
// so the output can be pasted into a Python session to cross-check a
// decoded stream. Reference markers keep their table index: a store
// prints as @i=value and a load as @i.
func Repr(obj Object) string {
	var b strings.Builder
	writeRepr(&b, obj)
	return b.String()
}

func writeRepr(b *strings.Builder, obj Object) {
	switch v := obj.(type) {
	case nil:
		b.WriteString("NULL")
	case None:
		b.WriteString("None")
	case StopIteration:
		b.WriteString("StopIteration")
	case Ellipsis:
		b.WriteString("...")
	case Bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}

	case Long:
		b.WriteString(v.Value.String())
	case Float:
		b.WriteString(reprFloat(v.Value))
	case Complex:
		b.WriteByte('(')
		b.WriteString(reprFloat(v.Re))
		if v.Im >= 0 || v.Im != v.Im {
			b.WriteByte('+')
		}
		b.WriteString(reprFloat(v.Im))
		b.WriteString("j)")

	case Bytes:
		b.WriteByte('b')
		b.WriteString(pyquote(string(v)))
	case Str:
		b.WriteString(pyquote(v.Value))

	case Tuple:
		b.WriteByte('(')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, item)
		}
		if len(v.Items) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')

	case List:
		b.WriteByte('[')
		writeReprItems(b, v)
		b.WriteByte(']')

	case Set:
		if len(v) == 0 {
			b.WriteString("set()")
			return
		}
		b.WriteByte('{')
		writeReprItems(b, v)
		b.WriteByte('}')

	case FrozenSet:
		b.WriteString("frozenset({")
		writeReprItems(b, v)
		b.WriteString("})")

	case Dict:
		b.WriteByte('{')
		for i, kv := range v.Items() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, kv.Key)
			b.WriteString(": ")
			writeRepr(b, kv.Value)
		}
		b.WriteByte('}')

	case Ref:
		fmt.Fprintf(b, "@%d", v.Index)
	case StoreRef:
		fmt.Fprintf(b, "@%d=", v.Index)
		writeRepr(b, v.Value)

	case *Code310:
		fmt.Fprintf(b, "<code object %s, file %s, line %d>",
			Repr(v.Name), Repr(v.Filename), v.FirstLineNo)
	case *Code311:
		fmt.Fprintf(b, "<code object %s, file %s, line %d>",
			Repr(v.Name), Repr(v.Filename), v.FirstLineNo)
	}
}

func writeReprItems(b *strings.Builder, items []Object) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, item)
	}
}

func reprFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Python always spells a float with a point or an exponent
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// pyquote, similarly to strconv.Quote, quotes s with " but does not
// use "\u" and "\U" inside.
//
// Python translates \u in a bytes literal to \\u rather than a
// character, so byte escapes are the only form that reads back the
// same on both sides. Keeping the output paste-able into Python makes
// it easy to cross-check a dump against the interpreter.
func pyquote(s string) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(s))

	for {
		r, width := utf8.DecodeRuneInString(s)
		if width == 0 {
			break
		}

		emitRaw := false

		switch {
		// invalid & everything else goes in numeric byte escapes
		case r == utf8.RuneError:
			fallthrough
		default:
			emitRaw = true

		case r == '\\' || r == '"':
			out = append(out, '\\', byte(r))

		case strconv.IsPrint(r):
			out = append(out, s[:width]...)

		case r < ' ':
			rq := strconv.QuoteRune(r) // e.g. "'\n'"
			rq = rq[1 : len(rq)-1]     // ->   `\n`
			out = append(out, rq...)
		}

		if emitRaw {
			for i := 0; i < width; i++ {
				out = append(out, '\\', 'x', hexdigits[s[i]>>4], hexdigits[s[i]&0xf])
			}
		}

		s = s[width:]
	}

	return "\"" + string(out) + "\""
}
