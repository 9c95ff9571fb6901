package understory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetadataEngine(f *fakeProvider) *metadataEngine {
	return newMetadataEngine(f, &resolver{p: f}, defaultMemoWrappers, defaultDeferredTypes, defaultUIElementTypes)
}

func TestClassifyKind(t *testing.T) {
	cases := []struct {
		flags DeclFlags
		want  DeclKind
	}{
		{FlagFunction, KindFunction},
		{FlagClass, KindClass},
		{FlagVariable, KindVariable},
		{FlagEnum, KindEnum},
		{FlagInterface, KindInterface},
		{FlagTypeAlias, KindTypeAlias},
		{FlagNamespace, KindNamespace},
		{0, KindUnknown},
		{FlagAsync, KindUnknown},
		// Merged declarations keep the most concrete kind.
		{FlagFunction | FlagVariable, KindFunction},
		{FlagVariable | FlagTypeAlias, KindVariable},
		{FlagInterface | FlagTypeAlias, KindInterface},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyKind(tc.flags), "flags %b", tc.flags)
	}
}

func TestIsHookName(t *testing.T) {
	cases := map[string]bool{
		"useState":   true,
		"useEffect":  true,
		"use2fa":     true,
		"useX":       true,
		"use":        false,
		"user":       false,
		"used":       false,
		"useful":     false,
		"Use":        false,
		"UseCounter": false,
		"":           false,
	}
	for name, want := range cases {
		assert.Equal(t, want, isHookName(name), "name %q", name)
	}
}

func TestMetadata_BasicFacts(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "Widget", Flags: FlagFunction})
	e := newTestMetadataEngine(f)

	md := e.Metadata(widget)
	assert.Equal(t, "Widget", md.DeclaredName)
	assert.Equal(t, KindFunction, md.Kind)
	assert.Equal(t, "w.tsx", md.DeclarationFile)
	assert.False(t, md.IsHookLike)
	assert.False(t, md.IsComponent)
	assert.Nil(t, md.PropertyShapes)
}

func TestMetadata_DeclaredNameFallsBackToSymbolName(t *testing.T) {
	f := newFakeProvider("w.tsx")
	// An unnamed default export binds no identifier at its site.
	anon := f.newSymbol("default", DeclSite{File: "w.tsx", Node: f.newNode(), Flags: FlagFunction})
	e := newTestMetadataEngine(f)

	assert.Equal(t, "default", e.Metadata(anon).DeclaredName)
}

func TestMetadata_ComputedOncePerSnapshot(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "Widget", Flags: FlagFunction})
	e := newTestMetadataEngine(f)

	assert.Same(t, e.Metadata(widget), e.Metadata(widget))
}

func TestIsAsync_SyntacticFlag(t *testing.T) {
	f := newFakeProvider("w.tsx")
	fn := f.newSymbol("load", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "load", Flags: FlagFunction | FlagAsync})
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(fn).IsAsync)
}

func TestIsAsync_FromSignatures(t *testing.T) {
	f := newFakeProvider("w.tsx")
	allAsync := f.newType("")
	f.sigs[allAsync] = []Signature{{Async: true}, {Async: true}}
	mixed := f.newType("")
	f.sigs[mixed] = []Signature{{Async: true}, {}}

	a := f.newSymbol("a", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "a", Flags: FlagFunction})
	f.symTypes[a] = allAsync
	b := f.newSymbol("b", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "b", Flags: FlagFunction})
	f.symTypes[b] = mixed
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(a).IsAsync)
	assert.False(t, e.Metadata(b).IsAsync)
}

func TestReturnsDeferred_EverySignatureMustAgree(t *testing.T) {
	f := newFakeProvider("w.tsx")
	inner := f.newType("number")
	promise := f.newType("Promise<number>")
	f.unwraps[promise] = inner

	deferred := f.newType("")
	f.sigs[deferred] = []Signature{{Return: promise}}
	overloaded := f.newType("")
	f.sigs[overloaded] = []Signature{{Return: promise}, {Return: inner}}

	a := f.newSymbol("fetchCount", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "fetchCount", Flags: FlagFunction})
	f.symTypes[a] = deferred
	b := f.newSymbol("maybeSync", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "maybeSync", Flags: FlagFunction})
	f.symTypes[b] = overloaded
	c := f.newSymbol("untyped", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "untyped", Flags: FlagFunction})
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(a).ReturnsDeferredValue)
	assert.False(t, e.Metadata(b).ReturnsDeferredValue)
	assert.False(t, e.Metadata(c).ReturnsDeferredValue)
}

func TestDeferredLike_UnionDecomposesBeforeUnwrapping(t *testing.T) {
	f := newFakeProvider("w.tsx")
	p1 := f.newType("Promise<A>")
	f.unwraps[p1] = f.newType("A")
	p2 := f.newType("Promise<B>")
	f.unwraps[p2] = f.newType("B")
	num := f.newType("number")

	mixed := f.newType("Promise<A> | number")
	f.unions[mixed] = []TypeRef{p1, num}
	allDeferred := f.newType("Promise<A> | Promise<B>")
	f.unions[allDeferred] = []TypeRef{p1, p2}
	e := newTestMetadataEngine(f)

	assert.False(t, e.deferredLike(mixed, make(map[TypeRef]bool)))
	assert.True(t, e.deferredLike(allDeferred, make(map[TypeRef]bool)))
}

func TestDeferredLike_TextualFallback(t *testing.T) {
	f := newFakeProvider("w.tsx")
	e := newTestMetadataEngine(f)

	cases := map[TypeRef]bool{
		f.newType("Promise<void>"):  true,
		f.newType("Thenable"):       true,
		f.newType("CustomPromise"):  false,
		f.newType("PromiseRejects"): false,
		f.newType("number"):         false,
	}
	for ref, want := range cases {
		assert.Equal(t, want, e.deferredLike(ref, make(map[TypeRef]bool)), "text %q", f.typeTexts[ref])
	}
}

func TestDeferredLike_ThenableStructure(t *testing.T) {
	f := newFakeProvider("w.tsx")
	callback := f.newType("(value: T) => void")
	thenFn := f.newType("")
	f.sigs[thenFn] = []Signature{{Params: []TypeRef{callback}}}
	thenable := f.newType("CustomTask")
	f.props[thenable] = []Property{{Name: "then", Type: thenFn}}

	noArgThen := f.newType("")
	f.sigs[noArgThen] = []Signature{{}}
	notThenable := f.newType("CustomTask2")
	f.props[notThenable] = []Property{{Name: "then", Type: noArgThen}}
	e := newTestMetadataEngine(f)

	assert.True(t, e.deferredLike(thenable, make(map[TypeRef]bool)))
	assert.False(t, e.deferredLike(notThenable, make(map[TypeRef]bool)))
}

func TestIsComponent_UIReturningSite(t *testing.T) {
	f := newFakeProvider("w.tsx")
	node := f.newNode()
	f.returnsUI[node] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: node, Name: "Widget", Flags: FlagFunction})
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(widget).IsComponent)
}

func TestIsComponent_SiteIsWrapperArgument(t *testing.T) {
	f := newFakeProvider("w.tsx")
	node := f.newNode()
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: node, Name: "Widget", Flags: FlagFunction})
	f.wrapAt[node] = Wrapper{Callee: "React.memo", Arg: node, Bound: widget}
	e := newTestMetadataEngine(f)

	md := e.Metadata(widget)
	assert.True(t, md.IsComponent)
	assert.True(t, md.IsMemoized)
}

func TestIsComponent_InitializedFromWrappedComponent(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widgetNode := f.newNode()
	f.returnsUI[widgetNode] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: widgetNode, Name: "Widget", Flags: FlagFunction})

	arg := f.newNode()
	f.refs[arg] = widget
	memoNode := f.newNode()
	memoed := f.newSymbol("Memoed", DeclSite{File: "w.tsx", Node: memoNode, Name: "Memoed", Flags: FlagVariable})
	f.wrapAt[memoNode] = Wrapper{Callee: "memo", Arg: arg, Bound: memoed}
	e := newTestMetadataEngine(f)

	md := e.Metadata(memoed)
	assert.True(t, md.IsComponent)
	assert.True(t, md.IsMemoized)
}

func TestIsComponent_InitializedFromNonComponent(t *testing.T) {
	f := newFakeProvider("w.tsx")
	fnNode := f.newNode()
	plain := f.newSymbol("compute", DeclSite{File: "w.tsx", Node: fnNode, Name: "compute", Flags: FlagFunction})

	arg := f.newNode()
	f.refs[arg] = plain
	memoNode := f.newNode()
	memoed := f.newSymbol("Memoed", DeclSite{File: "w.tsx", Node: memoNode, Name: "Memoed", Flags: FlagVariable})
	f.wrapAt[memoNode] = Wrapper{Callee: "memo", Arg: arg, Bound: memoed}
	e := newTestMetadataEngine(f)

	md := e.Metadata(memoed)
	assert.False(t, md.IsComponent)
	assert.False(t, md.IsMemoized)
}

func TestIsComponent_WrapperCycleTerminates(t *testing.T) {
	f := newFakeProvider("w.tsx")
	na := f.newNode()
	nb := f.newNode()
	refA := f.newNode()
	refB := f.newNode()
	a := f.newSymbol("A", DeclSite{File: "w.tsx", Node: na, Name: "A", Flags: FlagVariable})
	b := f.newSymbol("B", DeclSite{File: "w.tsx", Node: nb, Name: "B", Flags: FlagVariable})
	f.refs[refA] = a
	f.refs[refB] = b
	f.wrapAt[na] = Wrapper{Callee: "memo", Arg: refB, Bound: a}
	f.wrapAt[nb] = Wrapper{Callee: "memo", Arg: refA, Bound: b}
	e := newTestMetadataEngine(f)

	assert.False(t, e.Metadata(a).IsComponent)
	assert.False(t, e.Metadata(b).IsComponent)
	assert.Same(t, e.Metadata(a), e.Metadata(a))
}

func TestIsComponent_CapitalizedWithUISignatures(t *testing.T) {
	f := newFakeProvider("w.tsx")
	jsx := f.newType("JSX.Element")
	str := f.newType("string")

	uiOnly := f.newType("")
	f.sigs[uiOnly] = []Signature{{Return: jsx}}
	mixed := f.newType("")
	f.sigs[mixed] = []Signature{{Return: jsx}, {Return: str}}

	card := f.newSymbol("Card", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "Card", Flags: FlagFunction})
	f.symTypes[card] = uiOnly
	lower := f.newSymbol("card", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "card", Flags: FlagFunction})
	f.symTypes[lower] = uiOnly
	partial := f.newSymbol("Maybe", DeclSite{File: "w.tsx", Node: f.newNode(), Name: "Maybe", Flags: FlagFunction})
	f.symTypes[partial] = mixed
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(card).IsComponent)
	assert.False(t, e.Metadata(lower).IsComponent)
	assert.False(t, e.Metadata(partial).IsComponent)
}

func TestIsMemoized_WrapperBindingAnotherDeclaration(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widgetNode := f.newNode()
	f.returnsUI[widgetNode] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: widgetNode, Name: "Widget", Flags: FlagFunction})

	// const Other = memo(Widget): the call memoizes Other, not Widget.
	arg := f.newNode()
	f.refs[arg] = widget
	otherNode := f.newNode()
	other := f.newSymbol("Other", DeclSite{File: "w.tsx", Node: otherNode, Name: "Other", Flags: FlagVariable})
	f.wrapAt[otherNode] = Wrapper{Callee: "memo", Arg: arg, Bound: other}
	f.wrappers["w.tsx"] = []Wrapper{{Callee: "memo", Arg: arg, Bound: other}}
	e := newTestMetadataEngine(f)

	widgetMD := e.Metadata(widget)
	assert.True(t, widgetMD.IsComponent)
	assert.False(t, widgetMD.IsMemoized)

	otherMD := e.Metadata(other)
	assert.True(t, otherMD.IsComponent)
	assert.True(t, otherMD.IsMemoized)
}

func TestIsMemoized_ExpressionPositionWrapper(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widgetNode := f.newNode()
	f.returnsUI[widgetNode] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: widgetNode, Name: "Widget", Flags: FlagFunction})

	// export default memo(Widget): the call result is not bound to a
	// separate declaration.
	arg := f.newNode()
	f.refs[arg] = widget
	f.wrappers["w.tsx"] = []Wrapper{{Callee: "memo", Arg: arg, Bound: NoSymbol}}
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(widget).IsMemoized)
}

func TestIsMemoized_BindingResolvingBackToDeclaration(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widgetNode := f.newNode()
	f.returnsUI[widgetNode] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: widgetNode, Name: "Widget", Flags: FlagFunction})

	arg := f.newNode()
	f.refs[arg] = widget
	exported := f.newAlias("default", widget)
	f.wrappers["w.tsx"] = []Wrapper{{Callee: "memo", Arg: arg, Bound: exported}}
	e := newTestMetadataEngine(f)

	assert.True(t, e.Metadata(widget).IsMemoized)
}

func TestIsMemoized_UnrecognizedWrapper(t *testing.T) {
	f := newFakeProvider("w.tsx")
	widgetNode := f.newNode()
	f.returnsUI[widgetNode] = true
	widget := f.newSymbol("Widget", DeclSite{File: "w.tsx", Node: widgetNode, Name: "Widget", Flags: FlagFunction})

	arg := f.newNode()
	f.refs[arg] = widget
	f.wrappers["w.tsx"] = []Wrapper{{Callee: "observer", Arg: arg, Bound: NoSymbol}}
	e := newTestMetadataEngine(f)

	assert.False(t, e.Metadata(widget).IsMemoized)
}

func TestPropertyShapes_FlattensFirstParameter(t *testing.T) {
	f := newFakeProvider("w.tsx")
	jsx := f.newType("JSX.Element")
	str := f.newType("string")
	handler := f.newType("() => void")
	f.sigs[handler] = []Signature{{Return: f.newType("void")}}
	style := f.newType("CSSProperties")
	f.objectish[style] = true

	propsT := f.newType("WidgetProps")
	f.props[propsT] = []Property{
		{Name: "label", Type: str},
		{Name: "onClick", Type: handler, Optional: true},
		{Name: "style", Type: style},
	}
	compT := f.newType("")
	f.sigs[compT] = []Signature{{Params: []TypeRef{propsT}, Return: jsx}}

	node := f.newNode()
	f.returnsUI[node] = true
	card := f.newSymbol("Card", DeclSite{File: "w.tsx", Node: node, Name: "Card", Flags: FlagFunction})
	f.symTypes[card] = compT
	e := newTestMetadataEngine(f)

	md := e.Metadata(card)
	require.True(t, md.IsComponent)
	require.Len(t, md.PropertyShapes, 3)
	assert.Equal(t, PropertyShape{Kind: ShapeOther}, md.PropertyShapes["label"])
	assert.Equal(t, PropertyShape{Kind: ShapeFunction, IsOptional: true}, md.PropertyShapes["onClick"])
	assert.Equal(t, PropertyShape{Kind: ShapeObject}, md.PropertyShapes["style"])
}

func TestPropertyShapes_FirstOccurrenceWinsAcrossUnion(t *testing.T) {
	f := newFakeProvider("w.tsx")
	jsx := f.newType("JSX.Element")
	str := f.newType("string")
	handler := f.newType("() => void")
	f.sigs[handler] = []Signature{{}}

	branchA := f.newType("")
	f.props[branchA] = []Property{{Name: "size", Type: str}}
	branchB := f.newType("")
	f.props[branchB] = []Property{{Name: "size", Type: handler}, {Name: "onResize", Type: handler}}
	union := f.newType("")
	f.unions[union] = []TypeRef{branchA, branchB}

	compT := f.newType("")
	f.sigs[compT] = []Signature{{Params: []TypeRef{union}, Return: jsx}}

	node := f.newNode()
	f.returnsUI[node] = true
	card := f.newSymbol("Card", DeclSite{File: "w.tsx", Node: node, Name: "Card", Flags: FlagFunction})
	f.symTypes[card] = compT
	e := newTestMetadataEngine(f)

	shapes := e.Metadata(card).PropertyShapes
	require.Len(t, shapes, 2)
	assert.Equal(t, ShapeOther, shapes["size"].Kind)
	assert.Equal(t, ShapeFunction, shapes["onResize"].Kind)
}

func TestPropertyShapes_InheritedThroughBaseTypes(t *testing.T) {
	f := newFakeProvider("w.tsx")
	jsx := f.newType("JSX.Element")
	str := f.newType("string")

	baseT := f.newType("BaseProps")
	f.props[baseT] = []Property{{Name: "id", Type: str}}
	derived := f.newType("CardProps")
	f.props[derived] = []Property{{Name: "title", Type: str}}
	f.bases[derived] = []TypeRef{baseT}

	compT := f.newType("")
	f.sigs[compT] = []Signature{{Params: []TypeRef{derived}, Return: jsx}}

	node := f.newNode()
	f.returnsUI[node] = true
	card := f.newSymbol("Card", DeclSite{File: "w.tsx", Node: node, Name: "Card", Flags: FlagFunction})
	f.symTypes[card] = compT
	e := newTestMetadataEngine(f)

	shapes := e.Metadata(card).PropertyShapes
	require.Len(t, shapes, 2)
	assert.Contains(t, shapes, "id")
	assert.Contains(t, shapes, "title")
}
