package grammar

import (
	"fmt"
	"sort"
)

// OpCode names a grammar operator.
type OpCode int

const (
	OpNop OpCode = iota
	OpPushState
	OpPushWeak
	OpPopState
	OpPushSymbol
	OpPopVar
	OpPushEmpty
	OpCombine
	OpStash
	OpPushBack
	OpPushBackTop
	OpSkipLine
	OpSkipToDelim
	OpMark
	OpEmitRange
)

var opNames = [...]string{
	OpNop:         "Nop",
	OpPushState:   "PushState",
	OpPushWeak:    "PushWeak",
	OpPopState:    "PopState",
	OpPushSymbol:  "PushSymbol",
	OpPopVar:      "PopVar",
	OpPushEmpty:   "PushEmpty",
	OpCombine:     "Combine",
	OpStash:       "Stash",
	OpPushBack:    "PushBack",
	OpPushBackTop: "PushBackTop",
	OpSkipLine:    "SkipLine",
	OpSkipToDelim: "SkipToDelim",
	OpMark:        "Mark",
	OpEmitRange:   "EmitRange",
}

// String returns the operator name.
func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return fmt.Sprintf("OpCode(%d)", int(c))
}

// Op is one operator in a chain. Arg is a state name, variable name or
// node tag depending on the code.
type Op struct {
	Code  OpCode
	Arg   string
	state *State
}

// String returns the operator and its argument.
func (o Op) String() string {
	if o.Arg == "" {
		return o.Code.String()
	}
	return o.Code.String() + "(" + o.Arg + ")"
}

// Chain is a sequence of operators run for one matched symbol. Operators
// after a PushState or PushWeak form the continuation that runs when the
// pushed state pops.
type Chain []Op

// Nop does nothing.
func Nop() Op { return Op{Code: OpNop} }

// PushState enters the named state.
func PushState(name string) Op { return Op{Code: OpPushState, Arg: name} }

// PushWeak enters the named state. When a weak state cannot match a symbol
// it is abandoned without running its continuation and the symbol is
// retried in the state below.
func PushWeak(name string) Op { return Op{Code: OpPushWeak, Arg: name} }

// PopState leaves the current state and runs its continuation.
func PopState() Op { return Op{Code: OpPopState} }

// PushSymbol pushes the matched symbol onto the value stack.
func PushSymbol() Op { return Op{Code: OpPushSymbol} }

// PopVar moves the top value into the current state's variables. An empty
// name collects it anonymously.
func PopVar(name string) Op { return Op{Code: OpPopVar, Arg: name} }

// PushEmpty pushes an empty value with the given tag.
func PushEmpty(tag string) Op { return Op{Code: OpPushEmpty, Arg: tag} }

// Combine builds a tagged node from the current state's variables. In the
// root state it completes the parse.
func Combine(tag string) Op { return Op{Code: OpCombine, Arg: tag} }

// Stash moves the top value onto the engine's build stack.
func Stash() Op { return Op{Code: OpStash} }

// PushBack returns the matched symbol to the scanner.
func PushBack() Op { return Op{Code: OpPushBack} }

// PushBackTop pops the top value and returns it to the scanner as a symbol.
func PushBackTop() Op { return Op{Code: OpPushBackTop} }

// SkipLine discards input through the end of the line.
func SkipLine() Op { return Op{Code: OpSkipLine} }

// SkipToDelim discards input up to the next whitespace or delimiter.
func SkipToDelim() Op { return Op{Code: OpSkipToDelim} }

// Mark records the current input position in the current state.
func Mark() Op { return Op{Code: OpMark} }

// EmitRange pushes the raw input between the innermost mark and the
// matched symbol (or the scan position, if the symbol precedes the mark).
func EmitRange(tag string) Op { return Op{Code: OpEmitRange, Arg: tag} }

// State is a named grammar node holding the chains it can match.
type State struct {
	Name string
	// Literal selects literal-string scanning while this state is on top.
	Literal bool

	exact   map[string]Chain
	numeric Chain
	delim   Chain
	any     Chain
	eof     Chain
}

// On adds a chain for symbols whose text is exactly text.
func (s *State) On(text string, ops ...Op) *State {
	s.exact[text] = ops
	return s
}

// OnNumber adds the chain for numeric regular symbols.
func (s *State) OnNumber(ops ...Op) *State {
	s.numeric = ops
	return s
}

// OnDelimiter adds the fallback chain for delimiters without an exact chain.
func (s *State) OnDelimiter(ops ...Op) *State {
	s.delim = ops
	return s
}

// OnAny adds the catch-all chain for symbols other than EOF.
func (s *State) OnAny(ops ...Op) *State {
	s.any = ops
	return s
}

// OnEOF adds the chain for end of input.
func (s *State) OnEOF(ops ...Op) *State {
	s.eof = ops
	return s
}

// match picks the chain for sym: exact text, then numeric, then delimiter
// fallback, then catch-all.
func (s *State) match(sym Symbol) (Chain, bool) {
	if sym.Kind == EOF {
		return s.eof, s.eof != nil
	}
	if c, ok := s.exact[string(sym.Text)]; ok {
		return c, true
	}
	if s.numeric != nil && sym.Kind == Regular && isNumeric(sym.Text) {
		return s.numeric, true
	}
	if s.delim != nil && sym.Kind == Delimiter {
		return s.delim, true
	}
	if s.any != nil {
		return s.any, true
	}
	return nil, false
}

// Graph is a compiled set of states. It is immutable after Compile and can
// be shared by any number of engines.
type Graph struct {
	states   map[string]*State
	compiled bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{states: make(map[string]*State)}
}

// Define adds a state, or returns the existing one with that name.
func (g *Graph) Define(name string) *State {
	if s, ok := g.states[name]; ok {
		return s
	}
	s := &State{Name: name, exact: make(map[string]Chain)}
	g.states[name] = s
	return s
}

// Compile resolves state references in every chain.
func (g *Graph) Compile() error {
	names := make([]string, 0, len(g.states))
	for name := range g.states {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := g.states[name]
		chains := []Chain{s.numeric, s.delim, s.any, s.eof}
		for _, c := range s.exact {
			chains = append(chains, c)
		}
		for _, c := range chains {
			for i := range c {
				if c[i].Code != OpPushState && c[i].Code != OpPushWeak {
					continue
				}
				target, ok := g.states[c[i].Arg]
				if !ok {
					return fmt.Errorf("state %s: %s refers to undefined state", name, c[i])
				}
				c[i].state = target
			}
		}
	}
	g.compiled = true
	return nil
}

// Has reports whether a state is defined.
func (g *Graph) Has(name string) bool {
	_, ok := g.states[name]
	return ok
}
