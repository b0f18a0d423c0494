package pipe

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfpipe/reader"
)

var (
	// ErrAborted is returned by Run when a task reports Abort. The output
	// holds what was written so far and no cross-reference section.
	ErrAborted = errors.New("pipe: run aborted by task")

	// ErrNotFound reports an object number with no definition.
	ErrNotFound = reader.ErrNotFound

	// ErrFinished is returned when Run is called on a session that already
	// ran.
	ErrFinished = errors.New("pipe: session already run")
)

// ContractError describes a misuse of the session API, such as editing an
// object that has already been written. It is raised with panic.
type ContractError struct {
	Op     string
	Object int
	Reason string
}

func (e *ContractError) Error() string {
	if e.Object > 0 {
		return fmt.Sprintf("pipe: %s object %d: %s", e.Op, e.Object, e.Reason)
	}
	return fmt.Sprintf("pipe: %s: %s", e.Op, e.Reason)
}

func violation(op string, id int, reason string) {
	panic(&ContractError{Op: op, Object: id, Reason: reason})
}
