package tsx

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// walk visits n and its descendants in preorder. visit returning false
// prunes the subtree below the node it was called with.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		walk(n.NamedChild(i), visit)
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func firstNamedOfType(n *sitter.Node, kind string) *sitter.Node {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c.Type() == kind {
			return c
		}
	}
	return nil
}

// hasTokenChild reports whether n has a direct child token of the given
// type, anonymous tokens included. Keyword markers (`async`, `default`,
// `type`, `*`) surface this way in the grammar.
func hasTokenChild(n *sitter.Node, token string) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if n.Child(i).Type() == token {
			return true
		}
	}
	return false
}

// stringValue returns the contents of a string literal without quotes.
func stringValue(src []byte, n *sitter.Node) string {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c.Type() == "string_fragment" {
			return c.Content(src)
		}
	}
	return strings.Trim(n.Content(src), `'"`)
}

// stringOrIdent returns a binding name that the grammar allows to be either
// an identifier or a string literal.
func stringOrIdent(src []byte, n *sitter.Node) string {
	if n.Type() == "string" {
		return stringValue(src, n)
	}
	return n.Content(src)
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression",
		"generator_function", "function_declaration", "generator_function_declaration":
		return true
	default:
		return false
	}
}

// unwrapExpression strips wrappers that do not change what expression a
// value is: parentheses, `as` and `satisfies` casts, non-null assertions.
func unwrapExpression(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "non_null_expression":
			n = firstNamedChild(n)
		case "as_expression", "satisfies_expression":
			inner := n.NamedChild(0)
			if inner == nil {
				return n
			}
			n = inner
		default:
			return n
		}
	}
	return n
}
