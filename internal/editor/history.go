// Package editor holds the client-side annotation editor: the pointer and
// keyboard state machine, its linear undo history, and a session that loads
// and saves drafts through the HTTP API.
package editor

import "pdf-form-drafts/internal/domain"

// History is a linear undo/redo stack of whole-collection snapshots.
// snapshots[index] is always the collection being shown and edited.
// It is not safe for concurrent use.
type History struct {
	snapshots []domain.AnnotationCollection
	index     int
}

// NewHistory starts a history holding only the loaded collection.
func NewHistory(loaded domain.AnnotationCollection) *History {
	return &History{snapshots: []domain.AnnotationCollection{loaded}}
}

// Push drops any redoable snapshots and appends c as the new current one.
func (h *History) Push(c domain.AnnotationCollection) {
	h.snapshots = append(h.snapshots[:h.index+1:h.index+1], c)
	h.index = len(h.snapshots) - 1
}

// Undo steps back one snapshot. At the first snapshot it does nothing and
// reports false.
func (h *History) Undo() (domain.AnnotationCollection, bool) {
	if h.index == 0 {
		return h.Current(), false
	}
	h.index--
	return h.Current(), true
}

// Redo steps forward one snapshot. At the last snapshot it does nothing and
// reports false.
func (h *History) Redo() (domain.AnnotationCollection, bool) {
	if h.index == len(h.snapshots)-1 {
		return h.Current(), false
	}
	h.index++
	return h.Current(), true
}

func (h *History) Current() domain.AnnotationCollection { return h.snapshots[h.index] }
func (h *History) CanUndo() bool                        { return h.index > 0 }
func (h *History) CanRedo() bool                        { return h.index < len(h.snapshots)-1 }
func (h *History) Len() int                             { return len(h.snapshots) }
func (h *History) Index() int                           { return h.index }

// Reset replaces the whole history with a single loaded snapshot.
func (h *History) Reset(loaded domain.AnnotationCollection) {
	h.snapshots = []domain.AnnotationCollection{loaded}
	h.index = 0
}
