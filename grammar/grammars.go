package grammar

// Root state names of the built-in grammars.
const (
	// RootDocument reads one top-level construct of a PDF file: an indirect
	// object, a trailer, a startxref pointer, or a bare token.
	RootDocument = "Top"
	// RootValue reads a single direct value.
	RootValue = "V"
	// RootReverse finds the startxref pointer in input fed backwards from
	// the end of the file.
	RootReverse = "Rev"
	// RootHeader reads the integer header of an object stream onto the
	// build stack.
	RootHeader = "Hdr"
	// RootVerbatim returns the next symbol unchanged.
	RootVerbatim = "Sym"
)

// New returns the compiled PDF grammar. Build it once and share it.
func New() *Graph {
	g := NewGraph()
	defineValue(g)
	defineDocument(g)
	defineReverse(g)

	g.Define(RootHeader).
		OnNumber(PushSymbol(), Stash()).
		On("%", SkipLine()).
		OnEOF(Combine(TagHeader))

	g.Define(RootVerbatim).
		OnAny(PushSymbol(), PopState()).
		OnEOF(Combine(TagEOF))

	if err := g.Compile(); err != nil {
		panic(err)
	}
	return g
}

func defineValue(g *Graph) {
	g.Define("V").
		OnNumber(PushSymbol(), PushState("N2"), PopState()).
		On("true", PushSymbol(), PopState()).
		On("false", PushSymbol(), PopState()).
		On("null", PushSymbol(), PopState()).
		On("/", Mark(), SkipToDelim(), EmitRange(TagName), PopState()).
		On("(", Mark(), PushState("LitString"), PopState()).
		On("<", Mark(), PushState("Angle"), PopState()).
		On("[", PushState("Array"), PopState()).
		On("%", SkipLine())

	// A number may be the start of "num gen R".
	g.Define("N2").
		OnNumber(PushSymbol(), PushState("N3"), PopState()).
		OnAny(PushBack(), PopState()).
		OnEOF(PushBack(), PopState())
	g.Define("N3").
		On("R", PopVar("gen"), PopVar("num"), Combine(TagRef), PopState()).
		OnAny(PushBack(), PushBackTop(), PopState()).
		OnEOF(PushBack(), PushBackTop(), PopState())

	lit := g.Define("LitString").
		On("(", PushState("LitNest")).
		On(")", EmitRange(TagString), PopState()).
		OnAny(Nop())
	lit.Literal = true
	nest := g.Define("LitNest").
		On("(", PushState("LitNest")).
		On(")", PopState()).
		OnAny(Nop())
	nest.Literal = true

	g.Define("Angle").
		On("<", PushState("Dict"), PopState()).
		On(">", EmitRange(TagHex), PopState()).
		OnAny(PushState("Hex"), PopState())
	g.Define("Hex").
		On(">", EmitRange(TagHex), PopState()).
		OnAny(Nop())

	g.Define("Dict").
		On("/", Mark(), SkipToDelim(), EmitRange(TagName), PopVar(""), PushState("V"), PopVar("")).
		On(">", PushState("DictClose"), Combine(TagDict), PopState()).
		On("%", SkipLine())
	g.Define("DictClose").
		On(">", PopState())

	g.Define("Array").
		On("]", Combine(TagArray), PopState()).
		On("%", SkipLine()).
		OnAny(PushBack(), PushState("V"), PopVar(""))
}

func defineDocument(g *Graph) {
	g.Define("Top").
		OnNumber(PushSymbol(), PushState("T2"), PopState()).
		On("trailer", PushState("V"), PopVar("dict"), Combine(TagTrailer)).
		On("startxref", PushState("V"), PopVar("offset"), Combine(TagStartXRef)).
		On("%", SkipLine()).
		OnAny(PushSymbol(), PopState()).
		OnEOF(Combine(TagEOF))

	g.Define("T2").
		OnNumber(PushSymbol(), PushState("T3"), PopState()).
		OnAny(PushBack(), PopState()).
		OnEOF(PushBack(), PopState())
	g.Define("T3").
		On("obj",
			PopVar("gen"), PopVar("num"),
			PushState("V"), PopVar("value"),
			PushState("ObjEnd"), PopVar("end"),
			Combine(TagObj), PopState()).
		OnAny(PushBack(), PushBackTop(), PopState()).
		OnEOF(PushBack(), PushBackTop(), PopState())

	// A missing endobj is tolerated; whatever follows is left for the next
	// parse.
	g.Define("ObjEnd").
		On("endobj", PushSymbol(), PopState()).
		On("stream", PushSymbol(), PopState()).
		On("%", SkipLine()).
		OnAny(PushBack(), PushEmpty(TagMissing), PopState()).
		OnEOF(PushBack(), PushEmpty(TagMissing), PopState())
}

func defineReverse(g *Graph) {
	// Input arrives reversed, so "startxref 1234" reads "4321 ferxtrats".
	g.Define("Rev").
		OnNumber(PushSymbol(), PushWeak("RevX"), PopVar("offset"), Combine(TagStartXRef)).
		OnAny(Nop())
	g.Define("RevX").
		On("ferxtrats", PopState())
}
