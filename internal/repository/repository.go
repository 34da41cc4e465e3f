package repository

import (
	"context"

	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/utils"
)

// AssignmentStore is the persistence surface the assignment reconciler works against.
// Implementations bound to a transaction stage writes until the transaction commits.
type AssignmentStore interface {
	// FindAssignmentsByIDs returns the rows of taskID whose ids are in ids
	FindAssignmentsByIDs(ctx context.Context, taskID uint64, ids []uint64) ([]models.TaskAssignment, error)

	// ExistingActiveUserIDs returns the subset of ids that belong to users which are not soft-deleted
	ExistingActiveUserIDs(ctx context.Context, ids []uint64) ([]uint64, error)

	// AddAssignments inserts new assignment rows
	AddAssignments(ctx context.Context, rows []models.TaskAssignment) error

	// RemoveAssignments deletes the given assignment rows
	RemoveAssignments(ctx context.Context, rows []models.TaskAssignment) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	AssignmentStore

	// Transaction runs fn against a repository bound to a single database transaction
	Transaction(ctx context.Context, fn func(tx TaskRepository) error) error

	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update writes the mutable task columns guarded by task.Version and bumps the version.
	// ErrStaleTask is returned when another writer got there first.
	Update(ctx context.Context, task *models.Task) error

	// Delete removes a task and its assignments, guarded by task.Version like Update.
	Delete(ctx context.Context, task *models.Task) error

	// ListAssignments returns the current assignments of a task
	ListAssignments(ctx context.Context, taskID uint64) ([]models.TaskAssignment, error)

	// TaskTypeExists reports whether a task type with the given id exists
	TaskTypeExists(ctx context.Context, id uint64) (bool, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	CreatedBy      *uint64
	AssignedUserID *uint64
	Status         *bool
	Pagination     utils.PaginationParams
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds an active user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDUnscoped finds a user by ID including soft-deleted ones
	FindByIDUnscoped(ctx context.Context, id uint64) (*models.User, error)

	// FindByLogin finds a user by login including soft-deleted ones
	FindByLogin(ctx context.Context, login string) (*models.User, error)

	// FindByCreators returns the users created by any of creatorIDs, soft-deleted ones included,
	// in primary key order
	FindByCreators(ctx context.Context, creatorIDs []uint64) ([]models.User, error)

	// Update saves the user
	Update(ctx context.Context, user *models.User) error

	// SoftDelete marks the user deleted and removes their device tokens in one transaction
	SoftDelete(ctx context.Context, id uint64) error
}

// DeviceTokenRepository defines the interface for push token data access
type DeviceTokenRepository interface {
	// FindByToken finds a token row regardless of owner
	FindByToken(ctx context.Context, token string) (*models.UserDeviceToken, error)

	// Create creates a new token row
	Create(ctx context.Context, token *models.UserDeviceToken) error

	// Update saves an existing token row
	Update(ctx context.Context, token *models.UserDeviceToken) error

	// DeleteByToken removes a token owned by userID and reports how many rows went away
	DeleteByToken(ctx context.Context, userID uint64, token string) (int64, error)

	// DeleteByUser removes every token of userID
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)

	// TokensForUsers returns the device tokens registered by any of userIDs
	TokensForUsers(ctx context.Context, userIDs []uint64) ([]string, error)
}

// TaskTypeRepository defines the interface for task type data access
type TaskTypeRepository interface {
	// List returns task types ordered by name
	List(ctx context.Context, onlyAccessible bool) ([]models.TaskType, error)

	// FindByID finds a task type by ID
	FindByID(ctx context.Context, id uint64) (*models.TaskType, error)

	// FindByNormalizedName finds a task type whose trimmed, lower-cased name equals name
	FindByNormalizedName(ctx context.Context, name string) (*models.TaskType, error)

	// Create creates a new task type
	Create(ctx context.Context, taskType *models.TaskType) error

	// Update saves a task type
	Update(ctx context.Context, taskType *models.TaskType) error
}
