// Package pipe rewrites a PDF in one forward pass.
//
// A [Session] reads the cross-reference index of its input, then walks the
// object definitions in file order. Tasks enqueued against a [Predicate]
// run when the traversal reaches a matching object:
//
//	s, err := pipe.Open(cfg, in, size, out)
//	s.Enqueue(pipe.ByType("Annot"), func(o *pipe.Object) pipe.Result {
//		o.Delete()
//		return pipe.Continue
//	})
//	n, err := s.Run()
//
// # Mutability Window
//
// Every object is pending until the traversal reaches it, current while its
// tasks run, and committed once it has been written. Only current objects
// can be edited; editing any other object panics with a [ContractError].
// A task enqueued for an object that is already committed never runs.
//
// Unchanged objects are copied byte for byte. Edited objects replace their
// definition in place; members of object streams cause their container to
// be re-encoded. Objects created with [Session.Append] are written after the
// last original object, newest first, followed by a regenerated index in
// the input's format and the trailer.
package pipe
