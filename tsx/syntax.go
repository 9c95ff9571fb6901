package tsx

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/understory"
)

// Invocations lists every call, construct, and embed site in a file, built
// on first request and cached.
func (p *Provider) Invocations(file string) []understory.Invocation {
	idx, ok := p.fileIdx[file]
	if !ok {
		return nil
	}
	f := p.files[idx]
	if f.invDone {
		return f.invocations
	}
	f.invDone = true

	walk(f.root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			if callee := n.ChildByFieldName("function"); callee != nil {
				f.invocations = append(f.invocations, understory.Invocation{
					Kind:   understory.UsageCall,
					Callee: p.intern(idx, callee),
					Range:  rangeOf(n),
				})
			}
		case "new_expression":
			if callee := n.ChildByFieldName("constructor"); callee != nil {
				f.invocations = append(f.invocations, understory.Invocation{
					Kind:   understory.UsageConstruct,
					Callee: p.intern(idx, callee),
					Range:  rangeOf(n),
				})
			}
		case "jsx_opening_element", "jsx_self_closing_element":
			if name := n.ChildByFieldName("name"); name != nil {
				f.invocations = append(f.invocations, understory.Invocation{
					Kind:       understory.UsageEmbed,
					Callee:     p.intern(idx, name),
					Range:      rangeOf(n),
					Attributes: p.jsxAttributes(idx, n),
				})
			}
		}
		return true
	})
	return f.invocations
}

// jsxAttributes extracts the attributes of one JSX tag. Spread attributes
// surface as jsx_expression children holding a spread_element.
func (p *Provider) jsxAttributes(idx int32, element *sitter.Node) []understory.Attribute {
	f := p.files[idx]
	var attrs []understory.Attribute
	count := int(element.NamedChildCount())
	for i := 0; i < count; i++ {
		c := element.NamedChild(i)
		switch c.Type() {
		case "jsx_attribute":
			nameNode := firstNamedChild(c)
			if nameNode == nil {
				continue
			}
			attr := understory.Attribute{
				Name:  nameNode.Content(f.src),
				Range: rangeOf(c),
			}
			if c.NamedChildCount() > 1 {
				attr.Value = p.intern(idx, attributeValue(c.NamedChild(1)))
			}
			attrs = append(attrs, attr)
		case "jsx_expression":
			if spread := firstNamedOfType(c, "spread_element"); spread != nil {
				attrs = append(attrs, understory.Attribute{
					Value:  p.intern(idx, firstNamedChild(spread)),
					Range:  rangeOf(c),
					Spread: true,
				})
			}
		}
	}
	return attrs
}

// attributeValue unwraps `attr={expr}` braces down to the expression. A
// plain string value is the value node itself; empty braces yield nil.
func attributeValue(v *sitter.Node) *sitter.Node {
	if v == nil {
		return nil
	}
	if v.Type() == "jsx_expression" {
		return firstNamedChild(v)
	}
	return v
}

// WrapperCalls lists every call expression of a file in wrapper form,
// built on first request and cached.
func (p *Provider) WrapperCalls(file string) []understory.Wrapper {
	idx, ok := p.fileIdx[file]
	if !ok {
		return nil
	}
	f := p.files[idx]
	if f.wrapDone {
		return f.wrappers
	}
	f.wrapDone = true

	walk(f.root, func(n *sitter.Node) bool {
		if n.Type() == "call_expression" {
			if w, ok := p.wrapperFromCall(idx, n); ok {
				f.wrappers = append(f.wrappers, w)
			}
		}
		return true
	})
	return f.wrappers
}

func (p *Provider) wrapperFromCall(idx int32, call *sitter.Node) (understory.Wrapper, bool) {
	f := p.files[idx]
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return understory.Wrapper{}, false
	}
	w := understory.Wrapper{
		Callee: callee.Content(f.src),
		Bound:  p.bindingFor(idx, call),
	}
	if args := call.ChildByFieldName("arguments"); args != nil && args.Type() == "arguments" {
		w.Arg = p.intern(idx, unwrapExpression(firstNamedChild(args)))
	}
	return w, true
}

// bindingFor finds the symbol a call expression's result is bound to:
// the declared variable, the assigned top-level name, or the synthetic
// default-export symbol. NoSymbol for expression position.
func (p *Provider) bindingFor(idx int32, call *sitter.Node) understory.Symbol {
	f := p.files[idx]
	parent := call.Parent()
	for parent != nil {
		switch parent.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			parent = parent.Parent()
			continue
		case "variable_declarator":
			if name := parent.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				return f.scope[name.Content(f.src)]
			}
			return understory.NoSymbol
		case "assignment_expression":
			if left := parent.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				return f.scope[left.Content(f.src)]
			}
			return understory.NoSymbol
		case "export_statement":
			return f.scope["default"]
		default:
			return understory.NoSymbol
		}
	}
	return understory.NoSymbol
}

// WrapperCall reports the call wrapping or initializing the declaration at
// ref: the initializer call of a declarator or default export, or the
// enclosing call when ref itself sits in argument position.
func (p *Provider) WrapperCall(ref understory.NodeRef) (understory.Wrapper, bool) {
	e := p.node(ref)
	if e == nil {
		return understory.Wrapper{}, false
	}
	n := e.n
	switch n.Type() {
	case "variable_declarator", "export_statement":
		value := unwrapExpression(n.ChildByFieldName("value"))
		if value != nil && value.Type() == "call_expression" {
			return p.wrapperFromCall(e.file, value)
		}
		return understory.Wrapper{}, false
	default:
		parent := n.Parent()
		for parent != nil {
			switch parent.Type() {
			case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
				parent = parent.Parent()
				continue
			case "arguments":
				if call := parent.Parent(); call != nil && call.Type() == "call_expression" {
					return p.wrapperFromCall(e.file, call)
				}
				return understory.Wrapper{}, false
			default:
				return understory.Wrapper{}, false
			}
		}
		return understory.Wrapper{}, false
	}
}

// ExprForm classifies an expression node, seeing through parentheses and
// casts.
func (p *Provider) ExprForm(ref understory.NodeRef) understory.ExprForm {
	e := p.node(ref)
	if e == nil {
		return understory.ExprOther
	}
	n := unwrapExpression(e.n)
	if n == nil {
		return understory.ExprOther
	}
	switch n.Type() {
	case "object":
		return understory.ExprObjectLiteral
	case "array":
		return understory.ExprArrayLiteral
	case "arrow_function":
		return understory.ExprArrow
	case "function", "function_expression", "generator_function", "method_definition":
		return understory.ExprFunction
	case "template_string":
		return understory.ExprTemplate
	case "new_expression":
		return understory.ExprNew
	case "identifier", "shorthand_property_identifier":
		return understory.ExprIdentifier
	default:
		return understory.ExprOther
	}
}

// ObjectEntries lists the entries of an object literal node.
func (p *Provider) ObjectEntries(ref understory.NodeRef) []understory.ObjectEntry {
	e := p.node(ref)
	if e == nil {
		return nil
	}
	n := unwrapExpression(e.n)
	if n == nil || n.Type() != "object" {
		return nil
	}
	f := p.files[e.file]
	var entries []understory.ObjectEntry
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "pair":
			key := c.ChildByFieldName("key")
			value := c.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			entries = append(entries, understory.ObjectEntry{
				Name:  stringOrIdent(f.src, key),
				Value: p.intern(e.file, value),
			})
		case "shorthand_property_identifier":
			entries = append(entries, understory.ObjectEntry{
				Name:  c.Content(f.src),
				Value: p.intern(e.file, c),
			})
		case "method_definition":
			if name := c.ChildByFieldName("name"); name != nil {
				entries = append(entries, understory.ObjectEntry{
					Name:  stringOrIdent(f.src, name),
					Value: p.intern(e.file, c),
				})
			}
		case "spread_element":
			entries = append(entries, understory.ObjectEntry{
				Value:  p.intern(e.file, firstNamedChild(c)),
				Spread: true,
			})
		}
	}
	return entries
}

// ReturnsUIElement reports whether the declaration at ref is a function
// whose own body returns JSX. Nested function bodies are not searched.
func (p *Provider) ReturnsUIElement(ref understory.NodeRef) bool {
	e := p.node(ref)
	if e == nil {
		return false
	}
	n := e.n
	if isFunctionNode(n) {
		return fnReturnsUI(n)
	}
	switch n.Type() {
	case "variable_declarator", "export_statement":
		value := unwrapExpression(n.ChildByFieldName("value"))
		if value != nil && isFunctionNode(value) {
			return fnReturnsUI(value)
		}
	}
	return false
}

func fnReturnsUI(fn *sitter.Node) bool {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return false
	}
	if body.Type() != "statement_block" {
		// Arrow shorthand body.
		return isUIExpr(body)
	}
	found := false
	walk(body, func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Type() {
		case "return_statement":
			if expr := firstNamedChild(n); expr != nil && isUIExpr(expr) {
				found = true
			}
			return true
		case "arrow_function", "function", "function_expression", "generator_function",
			"function_declaration", "generator_function_declaration", "method_definition",
			"class_declaration":
			return false
		default:
			return true
		}
	})
	return found
}

// isUIExpr recognizes JSX-shaped return values, looking through ternary
// arms and `cond && <jsx/>` guards.
func isUIExpr(n *sitter.Node) bool {
	n = unwrapExpression(n)
	if n == nil {
		return false
	}
	switch n.Type() {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	case "ternary_expression":
		return isUIExpr(n.ChildByFieldName("consequence")) || isUIExpr(n.ChildByFieldName("alternative"))
	case "binary_expression":
		return isUIExpr(n.ChildByFieldName("right"))
	default:
		return false
	}
}
