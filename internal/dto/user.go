package dto

import (
	"time"

	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/services"
)

// LoginRequest represents the request body for login
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued access token
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// TokenInfoResponse describes a validated token
type TokenInfoResponse struct {
	UserID    uint64      `json:"user_id"`
	Login     string      `json:"login"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	LastName  string      `json:"last_name" binding:"required"`
	FirstName string      `json:"first_name" binding:"required"`
	Surname   string      `json:"surname"`
	Login     string      `json:"login" binding:"required"`
	Password  string      `json:"password" binding:"required"`
	Role      models.Role `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user.
// An empty password keeps the current one.
type UpdateUserRequest struct {
	LastName  string      `json:"last_name" binding:"required"`
	FirstName string      `json:"first_name" binding:"required"`
	Surname   string      `json:"surname"`
	Login     string      `json:"login" binding:"required"`
	Password  string      `json:"password"`
	Role      models.Role `json:"role"`
}

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	LastName  string      `json:"last_name"`
	FirstName string      `json:"first_name"`
	Surname   string      `json:"surname"`
	Login     string      `json:"login"`
	Role      models.Role `json:"role"`
	CreatedBy *uint64     `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at"`
}

// ToInput converts the request to service input
func (r CreateUserRequest) ToInput() services.CreateUserInput {
	return services.CreateUserInput{
		LastName:  r.LastName,
		FirstName: r.FirstName,
		Surname:   r.Surname,
		Login:     r.Login,
		Password:  r.Password,
		Role:      r.Role,
	}
}

// ToInput converts the request to service input
func (r UpdateUserRequest) ToInput() services.UpdateUserInput {
	return services.UpdateUserInput{
		LastName:  r.LastName,
		FirstName: r.FirstName,
		Surname:   r.Surname,
		Login:     r.Login,
		Password:  r.Password,
		Role:      r.Role,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:        user.ID,
		LastName:  user.LastName,
		FirstName: user.FirstName,
		Surname:   user.Surname,
		Login:     user.Login,
		Role:      user.Role,
		CreatedBy: user.CreatedBy,
		CreatedAt: user.CreatedAt,
	}
	if user.DeletedAt.Valid {
		deletedAt := user.DeletedAt.Time
		dto.DeletedAt = &deletedAt
	}
	return dto
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}
