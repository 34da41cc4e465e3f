package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/repository"
	"gorm.io/gorm"
)

// HierarchyResolver walks the created-by tree below a user.
type HierarchyResolver struct {
	users repository.UserRepository
}

func NewHierarchyResolver(users repository.UserRepository) *HierarchyResolver {
	return &HierarchyResolver{users: users}
}

// ResolveManagedUsers returns the root (when it exists) followed by every user it created,
// directly or transitively, in breadth-first order. Soft-deleted users are included.
// One query is issued per level.
func (h *HierarchyResolver) ResolveManagedUsers(ctx context.Context, rootID uint64) ([]models.User, error) {
	result := make([]models.User, 0)

	root, err := h.users.FindByIDUnscoped(ctx, rootID)
	switch {
	case err == nil:
		result = append(result, *root)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("failed to load root user: %w", err)
	}

	visited := map[uint64]struct{}{rootID: {}}
	frontier := []uint64{rootID}

	for len(frontier) > 0 {
		children, err := h.users.FindByCreators(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to load subordinates: %w", err)
		}

		next := make([]uint64, 0, len(children))
		for _, child := range children {
			// guards against malformed cyclic data
			if _, seen := visited[child.ID]; seen {
				continue
			}
			visited[child.ID] = struct{}{}
			result = append(result, child)
			next = append(next, child.ID)
		}
		frontier = next
	}

	return result, nil
}

// ResolveActiveManagedUsers is ResolveManagedUsers without soft-deleted users.
// Deleted users are still traversed, so their active subordinates stay visible.
func (h *HierarchyResolver) ResolveActiveManagedUsers(ctx context.Context, rootID uint64) ([]models.User, error) {
	all, err := h.ResolveManagedUsers(ctx, rootID)
	if err != nil {
		return nil, err
	}

	active := make([]models.User, 0, len(all))
	for _, u := range all {
		if !u.IsDeleted() {
			active = append(active, u)
		}
	}
	return active, nil
}

// Manages reports whether targetID is in rootID's active hierarchy, rootID included.
func (h *HierarchyResolver) Manages(ctx context.Context, rootID, targetID uint64) (bool, error) {
	users, err := h.ResolveActiveManagedUsers(ctx, rootID)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID == targetID {
			return true, nil
		}
	}
	return false, nil
}
