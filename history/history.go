// Package history keeps bounded undo and redo stacks of planning states.
package history

import "artillery-planner/game"

// DefaultLimit is the number of undo steps kept.
const DefaultLimit = 50

// History is owned by one planning session. It is not safe for concurrent
// use.
type History struct {
	undo  []game.State
	redo  []game.State
	limit int
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Push records the state as it was before a mutation. The oldest entry is
// dropped once the limit is exceeded, and redo history is discarded.
func (h *History) Push(before game.State) {
	h.undo = append(h.undo, before.Clone())
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0], h.undo[over:]...)
	}
	h.redo = h.redo[:0]
}

// Undo returns the previous state and remembers current for Redo.
func (h *History) Undo(current game.State) (game.State, bool) {
	if len(h.undo) == 0 {
		return current, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return prev, true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current game.State) (game.State, bool) {
	if len(h.redo) == 0 {
		return current, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.Clone())
	return next, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) UndoLen() int { return len(h.undo) }
func (h *History) RedoLen() int { return len(h.redo) }

// Reset forgets all history.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}
