// Package ordering keeps sibling positions dense (0..n-1) inside a container.
// Functions mutate positions in memory and return the items whose position changed;
// callers persist those in one transaction.
package ordering

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Item is an ordered child of a container
type Item interface {
	GetID() uuid.UUID
	GetPosition() int
	SetPosition(int)
}

// ErrDuplicateItem is returned when an ordering lists the same ID twice
var ErrDuplicateItem = errors.New("item listed more than once")

// UnknownItemError names an ID that is not a child of the container
type UnknownItemError struct {
	ID uuid.UUID
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("item not found with id: %s", e.ID)
}

// Append returns the position of a child added after count siblings
func Append(count int) int {
	return count
}

// Sort orders items by position, oldest index first on ties
func Sort[T Item](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].GetPosition() < items[j].GetPosition()
	})
}

// Reorder assigns positions following orderedIDs.
// Every listed ID must be a child; nothing is modified otherwise.
// Children missing from the list keep their relative order after the listed ones.
// It returns all children in their new order.
func Reorder[T Item](children []T, orderedIDs []uuid.UUID) ([]T, error) {
	byID := make(map[uuid.UUID]T, len(children))
	for _, child := range children {
		byID[child.GetID()] = child
	}

	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	ordered := make([]T, 0, len(children))
	for _, id := range orderedIDs {
		child, ok := byID[id]
		if !ok {
			return nil, &UnknownItemError{ID: id}
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, id)
		}
		seen[id] = struct{}{}
		ordered = append(ordered, child)
	}

	rest := make([]T, 0, len(children)-len(ordered))
	for _, child := range children {
		if _, listed := seen[child.GetID()]; !listed {
			rest = append(rest, child)
		}
	}
	Sort(rest)
	ordered = append(ordered, rest...)

	for i, child := range ordered {
		child.SetPosition(i)
	}
	return ordered, nil
}

// Remove closes the gap left by removed: siblings after it move up by one.
// siblings must not contain removed. It returns the shifted siblings.
func Remove[T Item](siblings []T, removed T) []T {
	var shifted []T
	for _, sibling := range siblings {
		if sibling.GetID() == removed.GetID() {
			continue
		}
		if sibling.GetPosition() > removed.GetPosition() {
			sibling.SetPosition(sibling.GetPosition() - 1)
			shifted = append(shifted, sibling)
		}
	}
	return shifted
}

// Insert places item at index among siblings (clamped to the valid range) and renumbers.
// siblings must not contain item. It returns every item whose position changed, item included.
func Insert[T Item](siblings []T, item T, index int) []T {
	ordered := make([]T, 0, len(siblings)+1)
	for _, sibling := range siblings {
		if sibling.GetID() != item.GetID() {
			ordered = append(ordered, sibling)
		}
	}
	Sort(ordered)

	if index < 0 {
		index = 0
	}
	if index > len(ordered) {
		index = len(ordered)
	}
	ordered = append(ordered, item)
	copy(ordered[index+1:], ordered[index:])
	ordered[index] = item

	return renumber(ordered, item.GetID())
}

// Compact renumbers siblings densely in their current order and returns the ones that moved
func Compact[T Item](siblings []T) []T {
	ordered := append([]T(nil), siblings...)
	Sort(ordered)
	return renumber(ordered, uuid.Nil)
}

// renumber assigns index positions; always reports the item named by force as changed
func renumber[T Item](ordered []T, force uuid.UUID) []T {
	var changed []T
	for i, child := range ordered {
		if child.GetPosition() != i || child.GetID() == force {
			child.SetPosition(i)
			changed = append(changed, child)
		}
	}
	return changed
}

// IsDense reports whether positions are exactly 0..n-1
func IsDense[T Item](items []T) bool {
	seen := make([]bool, len(items))
	for _, item := range items {
		p := item.GetPosition()
		if p < 0 || p >= len(items) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
