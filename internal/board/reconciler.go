// Package board is the client-side mirror of the kanban board: a four-way
// partition of task ids by status with optimistic drag-and-drop moves that
// are rolled back exactly when the remote call fails.
package board

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"

	"pulse-board/backend/internal/models"
)

var (
	// ErrCompletedImmovable is the pure client-side guard: no network call
	// is made for a drag out of the done column.
	ErrCompletedImmovable = errors.New("completed tasks cannot be moved; create a derived task")

	ErrTaskNotInColumn = errors.New("task is not in the source column")
	ErrUnknownColumn   = errors.New("unknown board column")
)

// Engine is the remote transition surface the reconciler calls. The server
// side is internal/services.TaskService behind HTTP.
type Engine interface {
	UpdateStatus(taskID uuid.UUID, newStatus string) error
	Complete(taskID uuid.UUID, notes string, links []string, mentions []uuid.UUID) error
}

// Move records one applied column move with enough detail to invert it
// exactly, including the task's prior position.
type Move struct {
	TaskID    uuid.UUID
	From      string
	To        string
	FromIndex int
}

// Board is the in-memory four-way partition: status to ordered task ids.
type Board struct {
	columns map[string][]uuid.UUID
}

func NewBoard() *Board {
	b := &Board{columns: make(map[string][]uuid.UUID, len(models.Statuses))}
	for _, status := range models.Statuses {
		b.columns[status] = []uuid.UUID{}
	}
	return b
}

// Load replaces the board contents with server truth.
func (b *Board) Load(columns map[string][]uuid.UUID) {
	for _, status := range models.Statuses {
		ids := columns[status]
		b.columns[status] = append([]uuid.UUID{}, ids...)
	}
}

// Column returns a copy of one column's ordered ids.
func (b *Board) Column(status string) []uuid.UUID {
	return append([]uuid.UUID{}, b.columns[status]...)
}

// Snapshot returns a deep copy of the whole partition.
func (b *Board) Snapshot() map[string][]uuid.UUID {
	snapshot := make(map[string][]uuid.UUID, len(b.columns))
	for status, ids := range b.columns {
		snapshot[status] = append([]uuid.UUID{}, ids...)
	}
	return snapshot
}

// MoveTask removes the task from its source column and appends it to the
// target column, returning the Move needed to undo it.
func (b *Board) MoveTask(taskID uuid.UUID, from, to string) (Move, error) {
	if !models.IsValidStatus(from) || !models.IsValidStatus(to) {
		return Move{}, ErrUnknownColumn
	}
	index := -1
	for i, id := range b.columns[from] {
		if id == taskID {
			index = i
			break
		}
	}
	if index < 0 {
		return Move{}, ErrTaskNotInColumn
	}

	b.columns[from] = append(b.columns[from][:index], b.columns[from][index+1:]...)
	b.columns[to] = append(b.columns[to], taskID)

	return Move{TaskID: taskID, From: from, To: to, FromIndex: index}, nil
}

// Undo reverts a Move, restoring the task to its exact prior position.
func (b *Board) Undo(move Move) {
	ids := b.columns[move.To]
	for i, id := range ids {
		if id == move.TaskID {
			b.columns[move.To] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	source := b.columns[move.From]
	if move.FromIndex > len(source) {
		b.columns[move.From] = append(source, move.TaskID)
		return
	}
	source = append(source, uuid.Nil)
	copy(source[move.FromIndex+1:], source[move.FromIndex:])
	source[move.FromIndex] = move.TaskID
	b.columns[move.From] = source
}

// PendingCompletion holds an optimistic move into the done column while the
// completion dialog is open. Confirm performs the remote completion;
// Cancel reverts the move exactly.
type PendingCompletion struct {
	reconciler *Reconciler
	move       Move
	resolved   bool
}

func (p *PendingCompletion) Confirm(notes string, links []string, mentions []uuid.UUID) error {
	if p.resolved {
		return errors.New("completion already resolved")
	}
	p.resolved = true

	if err := p.reconciler.engine.Complete(p.move.TaskID, notes, links, mentions); err != nil {
		p.reconciler.board.Undo(p.move)
		return err
	}
	p.reconciler.refresh()
	return nil
}

func (p *PendingCompletion) Cancel() {
	if p.resolved {
		return
	}
	p.resolved = true
	p.reconciler.board.Undo(p.move)
}

// Reconciler drives the optimistic drag-and-drop flow against the remote
// transition engine. It has no persistence of its own: server truth is
// re-fetched through onRefresh after every confirmed mutation.
type Reconciler struct {
	board     *Board
	engine    Engine
	onRefresh func()
}

func NewReconciler(b *Board, engine Engine, onRefresh func()) *Reconciler {
	return &Reconciler{board: b, engine: engine, onRefresh: onRefresh}
}

func (r *Reconciler) Board() *Board {
	return r.board
}

func (r *Reconciler) refresh() {
	if r.onRefresh != nil {
		r.onRefresh()
	}
}

// HandleDrop processes one drag-drop gesture ending over the target column.
// The returned PendingCompletion is non-nil only for drops onto done, where
// the actual write waits for the user to confirm the completion dialog.
func (r *Reconciler) HandleDrop(taskID uuid.UUID, from, to string) (*PendingCompletion, error) {
	if from == models.StatusDone {
		return nil, ErrCompletedImmovable
	}
	if from == to {
		return nil, nil
	}

	// Optimistic: the card moves before the network answers.
	move, err := r.board.MoveTask(taskID, from, to)
	if err != nil {
		return nil, err
	}

	if to == models.StatusDone {
		return &PendingCompletion{reconciler: r, move: move}, nil
	}

	if err := r.engine.UpdateStatus(taskID, to); err != nil {
		r.board.Undo(move)
		return nil, fmt.Errorf("move rejected: %w", err)
	}
	r.refresh()
	return nil, nil
}
