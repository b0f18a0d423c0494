package grammar

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when no chain of the current state matches the
// next symbol. The parse cannot continue from that point.
var ErrNoMatch = errors.New("grammar: no matching chain")

type frame struct {
	state *State
	cont  Chain
	weak  bool
	vars  []*Node
	mark  int64
	start int64
}

// Engine runs a compiled graph over a scanner. An engine is not safe for
// concurrent use; create one per scanner.
type Engine struct {
	g      *Graph
	sc     *Scanner
	frames []*frame
	values []*Node
	stash  []*Node
	done   bool
	result *Node
}

// NewEngine returns an engine for g reading from sc.
func NewEngine(g *Graph, sc *Scanner) *Engine {
	return &Engine{g: g, sc: sc}
}

// Scanner returns the engine's scanner.
func (e *Engine) Scanner() *Scanner { return e.sc }

// TakeStash returns and clears the build stack filled by Stash operators.
func (e *Engine) TakeStash() []*Node {
	s := e.stash
	e.stash = nil
	return s
}

// Parse runs the graph from the root state until the construct completes.
// It returns the resulting node, which may be nil when the root pops
// without producing a value.
func (e *Engine) Parse(root string) (*Node, error) {
	if !e.g.compiled {
		return nil, fmt.Errorf("grammar: graph is not compiled")
	}
	state, ok := e.g.states[root]
	if !ok {
		return nil, fmt.Errorf("grammar: unknown root state %q", root)
	}

	e.frames = append(e.frames[:0], &frame{state: state, mark: -1, start: -1})
	e.values = e.values[:0]
	e.done = false
	e.result = nil

	for !e.done {
		top := e.frames[len(e.frames)-1]
		e.sc.SetLiteral(top.state.Literal)
		sym, err := e.sc.Next()
		if err != nil {
			return nil, fmt.Errorf("grammar: reading input: %w", err)
		}

		chain, ok := top.state.match(sym)
		for !ok && top.weak {
			e.frames = e.frames[:len(e.frames)-1]
			top = e.frames[len(e.frames)-1]
			e.sc.SetLiteral(top.state.Literal)
			chain, ok = top.state.match(sym)
		}
		if !ok {
			return nil, fmt.Errorf("%w: state %s at offset %d, symbol %s", ErrNoMatch, top.state.Name, sym.Start, sym)
		}

		if len(e.frames) == 1 && top.start < 0 && !skipOnly(chain) {
			top.start = sym.Start
		}
		if err := e.run(chain, sym); err != nil {
			return nil, err
		}
	}
	return e.result, nil
}

// skipOnly reports whether chain only discards input, as comment chains do.
func skipOnly(c Chain) bool {
	for _, op := range c {
		if op.Code != OpSkipLine && op.Code != OpNop {
			return false
		}
	}
	return true
}

func (e *Engine) run(chain Chain, sym Symbol) error {
	for i, op := range chain {
		f := e.frames[len(e.frames)-1]
		switch op.Code {
		case OpNop:
		case OpPushState, OpPushWeak:
			e.frames = append(e.frames, &frame{
				state: op.state,
				cont:  chain[i+1:],
				weak:  op.Code == OpPushWeak,
				mark:  -1,
				start: sym.Start,
			})
			return nil
		case OpPopState:
			e.frames = e.frames[:len(e.frames)-1]
			if len(e.frames) == 0 {
				e.finish()
				return nil
			}
			return e.run(f.cont, sym)
		case OpPushSymbol:
			e.values = append(e.values, &Node{Tag: TagSymbol, Text: sym.Text, Start: sym.Start})
		case OpPopVar:
			v, err := e.pop(op)
			if err != nil {
				return err
			}
			v.Name = op.Arg
			f.vars = append(f.vars, v)
		case OpPushEmpty:
			e.values = append(e.values, &Node{Tag: op.Arg, Text: []byte{}, Start: sym.Start})
		case OpCombine:
			n := &Node{Tag: op.Arg, Items: f.vars, Start: f.start}
			for _, item := range f.vars {
				if n.Start < 0 || (item.Start >= 0 && item.Start < n.Start) {
					n.Start = item.Start
				}
			}
			f.vars = nil
			e.values = append(e.values, n)
			if len(e.frames) == 1 {
				e.finish()
				return nil
			}
		case OpStash:
			v, err := e.pop(op)
			if err != nil {
				return err
			}
			e.stash = append(e.stash, v)
		case OpPushBack:
			e.sc.PushBack(sym)
		case OpPushBackTop:
			v, err := e.pop(op)
			if err != nil {
				return err
			}
			e.sc.PushBack(Symbol{Kind: Regular, Text: v.Text, Start: v.Start})
		case OpSkipLine:
			e.sc.SkipLine()
		case OpSkipToDelim:
			e.sc.SkipToDelimiter()
		case OpMark:
			f.mark = e.sc.Pos()
		case OpEmitRange:
			mark := int64(-1)
			for j := len(e.frames) - 1; j >= 0; j-- {
				if e.frames[j].mark >= 0 {
					mark = e.frames[j].mark
					break
				}
			}
			if mark < 0 {
				return fmt.Errorf("grammar: %s in state %s without a mark", op, f.state.Name)
			}
			end := e.sc.Pos()
			if sym.Start >= mark {
				end = sym.Start
			}
			text := e.sc.Range(mark, end)
			if text == nil {
				return fmt.Errorf("grammar: range %d-%d is no longer buffered", mark, end)
			}
			e.values = append(e.values, &Node{Tag: op.Arg, Text: text, Start: mark})
		default:
			return fmt.Errorf("grammar: unknown operator %s", op)
		}
	}
	return nil
}

func (e *Engine) pop(op Op) (*Node, error) {
	if len(e.values) == 0 {
		return nil, fmt.Errorf("grammar: %s on empty value stack", op)
	}
	v := e.values[len(e.values)-1]
	e.values = e.values[:len(e.values)-1]
	return v, nil
}

func (e *Engine) finish() {
	e.done = true
	if n := len(e.values); n > 0 {
		e.result = e.values[n-1]
	}
}
