package driver

import (
	"fmt"
	"strings"
)

// QueryKind says how a parsed selector is evaluated.
type QueryKind int

const (
	// QueryCSS is a document.querySelectorAll expression.
	QueryCSS QueryKind = iota
	// QueryXPath is an XPath expression evaluated against the document.
	QueryXPath
)

// Query is a selector normalized for evaluation.
type Query struct {
	Kind QueryKind
	Expr string
}

// Selector prefixes understood by ParseSelector.
const (
	prefixText  = "text="
	prefixXPath = "xpath="
	prefixCSS   = "css="
)

// ParseSelector converts a selector string into a Query.
//
//	text=Claude Sonnet   exact match on whitespace-normalized visible text
//	xpath=//button[1]    raw XPath
//	css=.model-button    explicit CSS
//	.model-button        CSS (default)
//
// A text= value may be wrapped in double quotes to keep leading or
// trailing spaces.
func ParseSelector(selector string) (Query, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return Query{}, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}

	switch {
	case strings.HasPrefix(s, prefixText):
		value := strings.TrimPrefix(s, prefixText)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		value = strings.Join(strings.Fields(value), " ")
		if value == "" {
			return Query{}, fmt.Errorf("%w: empty text selector", ErrInvalidSelector)
		}
		return Query{Kind: QueryXPath, Expr: exactTextXPath(value)}, nil
	case strings.HasPrefix(s, prefixXPath):
		expr := strings.TrimSpace(strings.TrimPrefix(s, prefixXPath))
		if expr == "" {
			return Query{}, fmt.Errorf("%w: empty xpath selector", ErrInvalidSelector)
		}
		return Query{Kind: QueryXPath, Expr: expr}, nil
	case strings.HasPrefix(s, prefixCSS):
		expr := strings.TrimSpace(strings.TrimPrefix(s, prefixCSS))
		if expr == "" {
			return Query{}, fmt.Errorf("%w: empty css selector", ErrInvalidSelector)
		}
		return Query{Kind: QueryCSS, Expr: expr}, nil
	default:
		return Query{Kind: QueryCSS, Expr: s}, nil
	}
}

// TextSelector builds a text= selector that matches value exactly.
func TextSelector(value string) string {
	return prefixText + `"` + value + `"`
}

// exactTextXPath matches the innermost elements whose normalized text
// equals value, so a wrapping container with the same text is not
// returned ahead of the clickable item itself.
func exactTextXPath(value string) string {
	lit := xpathLiteral(value)
	return fmt.Sprintf("//*[normalize-space(.)=%s][not(.//*[normalize-space(.)=%s])]", lit, lit)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
