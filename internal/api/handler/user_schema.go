package handler

import (
	"time"

	"github.com/watchdeck/user-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// editUserRequest leaves a field unchanged when it is omitted or empty.
type editUserRequest struct {
	Username string  `json:"username"`
	Role     *string `json:"role"`
}

type watchItemRequest struct {
	RefID string `json:"ref_id"`
	Title string `json:"title"`
}

type watchItemCreatedResponse struct {
	ID string `json:"id"`
}

type watchItemResponse struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	RefID   string    `json:"ref_id"`
	Title   string    `json:"title,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

type userResponse struct {
	ID        string              `json:"id"`
	Username  string              `json:"username"`
	Role      string              `json:"role"`
	WatchList []watchItemResponse `json:"watch_list"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// --- Mappers ---

func toWatchItemResponses(items []domain.WatchItem) []watchItemResponse {
	out := make([]watchItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, watchItemResponse{
			ID:      it.ID,
			Kind:    string(it.Kind),
			RefID:   it.RefID,
			Title:   it.Title,
			AddedAt: it.AddedAt,
		})
	}
	return out
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		WatchList: toWatchItemResponses(u.WatchList),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
