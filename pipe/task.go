package pipe

import "fmt"

// Result tells the traversal how to continue after a task ran.
type Result int

const (
	// Continue runs the next matching task.
	Continue Result = iota
	// SkipRest skips the remaining tasks of the same predicate for the
	// current object. Other objects are unaffected.
	SkipRest
	// Abort stops the run. Run returns ErrAborted.
	Abort
	// RemoveSelf continues and removes the task so it never runs again.
	RemoveSelf
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "Continue"
	case SkipRest:
		return "SkipRest"
	case Abort:
		return "Abort"
	case RemoveSelf:
		return "RemoveSelf"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// TaskFunc edits or inspects the object it is called with. The object is
// current for the duration of the call.
type TaskFunc func(*Object) Result

type predicateKind int

const (
	byID predicateKind = iota
	isRoot
	isInfo
	byType
	byPage
	isTrailer
)

// Predicate selects the objects a task runs on. Predicates are comparable;
// tasks enqueued with equal predicates share one queue and run in the
// order they were enqueued.
type Predicate struct {
	kind predicateKind
	id   int
	name string
}

// ByID matches the object with the given number.
func ByID(id int) Predicate { return Predicate{kind: byID, id: id} }

// IsRoot matches the document catalog named by the trailer /Root.
func IsRoot() Predicate { return Predicate{kind: isRoot} }

// IsInfo matches the document information dictionary named by /Info.
func IsInfo() Predicate { return Predicate{kind: isInfo} }

// ByType matches objects whose dictionary /Type is name.
func ByType(name string) Predicate { return Predicate{kind: byType, name: name} }

// ByPage matches the page object of page n, counting from 1.
func ByPage(n int) Predicate { return Predicate{kind: byPage, id: n} }

// MatchTrailer matches the trailer written after the last object.
func MatchTrailer() Predicate { return Predicate{kind: isTrailer} }

func (p Predicate) String() string {
	switch p.kind {
	case byID:
		return fmt.Sprintf("id %d", p.id)
	case isRoot:
		return "root"
	case isInfo:
		return "info"
	case byType:
		return "type " + p.name
	case byPage:
		return fmt.Sprintf("page %d", p.id)
	case isTrailer:
		return "trailer"
	default:
		return "unknown"
	}
}

type task struct {
	fn      TaskFunc
	removed bool
}

// queue holds the tasks of one predicate in enqueue order.
type queue struct {
	pred  Predicate
	tasks []*task
	live  int
}

func (q *queue) push(fn TaskFunc) {
	q.tasks = append(q.tasks, &task{fn: fn})
	q.live++
}

func (q *queue) remove(t *task) {
	if !t.removed {
		t.removed = true
		q.live--
	}
}

// compact drops removed tasks. It runs between objects so indexes held
// by a running chain stay valid.
func (q *queue) compact() {
	if q.live == len(q.tasks) {
		return
	}
	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if !t.removed {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = kept
}
