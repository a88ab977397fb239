package dto

type CreateUniversityRequest struct {
	Name string  `json:"name" binding:"required,max=150"`
	Code *string `json:"code" binding:"omitempty,max=20"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required,max=150"`
}

type CreateTopicRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}
