package dto

import (
	"caseflow.dev/caseflowlearn/internal/entity"
)

type SignUpInput struct {
	Email       string  `json:"email" binding:"required,email,max=100"`
	Password    string  `json:"password" binding:"required,min=8,max=72"`
	FullName    string  `json:"full_name" binding:"required,max=100"`
	Role        string  `json:"role" binding:"required,signup_role"`
	Specialty   *string `json:"specialty" binding:"omitempty,max=100"`
	Affiliation *string `json:"affiliation" binding:"omitempty,max=150"`
}

type SignInInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is returned by every operation that issues a token.
type Session struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	User        *entity.User    `json:"user"`
	Profile     *entity.Profile `json:"profile"`
}

type ChangeRoleInput struct {
	Role string `json:"role" binding:"required,oneof=student evaluator admin"`
}

type UserFilter struct {
	Role  string `form:"role" binding:"omitempty,oneof=student evaluator admin"`
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}
