package dto

import (
	"caseflow.dev/caseflowlearn/internal/entity"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
)

type ListUsersQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=student evaluator admin"`
	commonDto.PageQuery
}

type ChangeRoleInput struct {
	Role string `json:"role" binding:"required,oneof=student evaluator admin"`
}

type AdminUserResponse struct {
	User    *entity.User    `json:"user"`
	Profile *entity.Profile `json:"profile,omitempty"`
}

type PaginatedUsers = commonDto.Paginated[AdminUserResponse]

type UserStats struct {
	Total      int64 `json:"total"`
	Students   int64 `json:"students"`
	Evaluators int64 `json:"evaluators"`
	Admins     int64 `json:"admins"`
}

func ToUserResponse(u *entity.User) AdminUserResponse {
	return AdminUserResponse{User: u, Profile: u.Profile}
}
