// Package codec implements the reversible mapping between raw inline
// HTML tags and masked placeholder elements.
//
// Masking replaces every inline tag (opening, closing, self-closing)
// inside one segment's markup with a flat, self-closing <sh-tag>
// placeholder carrying the original tag name and its exact source text.
// Unmasking splices the source text back. The codec is total and
// lossless for any input that is well formed at the character level; it
// never balances or sanitizes markup.
package codec

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Wire dialect element and attribute names.
const (
	ElemSegment = "sh-segment"
	ElemTag     = "sh-tag"

	AttrID          = "id"
	AttrElement     = "element"
	AttrRaw         = "raw"
	AttrCompleted   = "completed"
	AttrActive      = "active"
	AttrMissingTags = "has-missing-tags"
	AttrSource      = "source"
	AttrQuality     = "quality"
)

// CodecError reports a malformed placeholder or a failed unescaping.
// It is fatal for the affected segment only.
type CodecError struct {
	Offset int
	Msg    string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec: %s at offset %d", e.Msg, e.Offset)
}

// Void elements never take a closing tag, so an opener must not be
// pushed on the pairing stack.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Mask replaces every inline tag in rawHTML with a placeholder. Text
// content is passed through byte-for-byte. Pairing is strict
// innermost-match: a closing tag whose name differs from the innermost
// open tag masks with a "/" prefix on its element name and is kept, not
// repaired. Masking already-masked content fails with a CodecError
// rather than double-masking.
func Mask(rawHTML string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	var open []string
	pos := 0

	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				// Unterminated trailing bytes stay in the output.
				b.WriteString(raw)
				return b.String(), nil
			}
			return "", &CodecError{Offset: pos, Msg: z.Err().Error()}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			el := string(name)
			if el == ElemTag {
				return "", &CodecError{Offset: pos, Msg: "input is already masked"}
			}
			if el == ElemSegment {
				return "", &CodecError{Offset: pos, Msg: "segment container inside segment markup"}
			}
			b.WriteString(placeholder(el, raw))
			if tt == html.StartTagToken && !voidElements[el] {
				open = append(open, el)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			el := string(name)
			if el == ElemTag || el == ElemSegment {
				return "", &CodecError{Offset: pos, Msg: "input is already masked"}
			}
			if len(open) > 0 && open[len(open)-1] == el {
				open = open[:len(open)-1]
			} else {
				el = "/" + el
			}
			b.WriteString(placeholder(el, raw))

		default:
			// Text, comments, doctypes pass through untouched.
			b.WriteString(raw)
		}
		pos += len(raw)
	}
}

// Unmask performs the inverse substitution using each placeholder's raw
// attribute. Non-placeholder markup, including segment containers,
// passes through untouched, so Unmask works over a whole document as
// well as over one segment. It fails with a CodecError when a
// placeholder lacks a raw attribute or its value does not unescape to a
// tag.
func Unmask(maskedHTML string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(maskedHTML))
	var b strings.Builder
	pos := 0

	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				b.WriteString(raw)
				return b.String(), nil
			}
			return "", &CodecError{Offset: pos, Msg: z.Err().Error()}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != ElemTag {
				b.WriteString(raw)
				break
			}
			val, ok := tagAttrs(z, hasAttr)[AttrRaw]
			if !ok {
				return "", &CodecError{Offset: pos, Msg: "placeholder without raw attribute"}
			}
			if len(val) < 2 || val[0] != '<' || val[len(val)-1] != '>' {
				return "", &CodecError{Offset: pos, Msg: "placeholder raw attribute is not a tag"}
			}
			b.WriteString(val)

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == ElemTag {
				// Placeholders are self-closing; a stray closer
				// contributes nothing.
				break
			}
			b.WriteString(raw)

		default:
			b.WriteString(raw)
		}
		pos += len(raw)
	}
}

// Strip removes all markup, masked or raw, and returns the text content
// byte-for-byte (entity references are not decoded). It accepts raw
// HTML, masked segment markup, or a whole masked document.
func Strip(htmlText string) string {
	z := html.NewTokenizer(strings.NewReader(htmlText))
	var b strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				b.Write(z.Raw())
			}
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

// Placeholders returns the masked tags of a segment's markup in
// document order.
func Placeholders(maskedHTML string) []MaskedTagRef {
	z := html.NewTokenizer(strings.NewReader(maskedHTML))
	var out []MaskedTagRef

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != ElemTag {
				continue
			}
			attrs := tagAttrs(z, hasAttr)
			out = append(out, MaskedTagRef{Element: attrs[AttrElement], Raw: attrs[AttrRaw]})
		}
	}
}

// MaskedTagRef mirrors models.MaskedTag without importing it; the codec
// stays a leaf package.
type MaskedTagRef struct {
	Element string
	Raw     string
}

func placeholder(element, raw string) string {
	return fmt.Sprintf(`<%s %s="%s" %s="%s"/>`,
		ElemTag,
		AttrElement, html.EscapeString(element),
		AttrRaw, html.EscapeString(raw),
	)
}

// tagAttrs collects the current tag's attributes. TagAttr iterates
// destructively, so callers must collect once per token. The tokenizer
// unescapes attribute values, so a raw attribute comes back as the
// original tag source text.
func tagAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		k, v, more := z.TagAttr()
		attrs[string(k)] = string(v)
		hasAttr = more
	}
	return attrs
}
