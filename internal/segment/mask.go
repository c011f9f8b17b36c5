package segment

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"segmenthub/internal/codec"
)

// MaskDocument masks the inline markup inside every segment container
// of a raw segmented document. Text and markup outside containers pass
// through untouched.
func MaskDocument(rawDoc string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(rawDoc))
	var out strings.Builder
	var inner strings.Builder
	inSegment := false

	for {
		tt := z.Next()
		raw := string(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return "", fmt.Errorf("mask document: %w", z.Err())
			}
			if inSegment {
				return "", ErrUnclosedSegment
			}
			out.WriteString(raw)
			return out.String(), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == codec.ElemSegment {
				if inSegment {
					return "", ErrNestedSegment
				}
				inSegment = true
				inner.Reset()
				out.WriteString(raw)
				continue
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == codec.ElemSegment {
				if !inSegment {
					return "", fmt.Errorf("mask document: stray segment closer")
				}
				masked, err := codec.Mask(inner.String())
				if err != nil {
					return "", err
				}
				out.WriteString(masked)
				out.WriteString(raw)
				inSegment = false
				continue
			}
		}

		if inSegment {
			inner.WriteString(raw)
		} else {
			out.WriteString(raw)
		}
	}
}

// UnmaskDocument restores every placeholder in a masked document to its
// original tag text. Containers and their statuses survive.
func UnmaskDocument(maskedDoc string) (string, error) {
	return codec.Unmask(maskedDoc)
}
