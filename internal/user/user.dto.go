package user

import "github.com/google/uuid"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=user trainer"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

type UpdateProfileRequest struct {
	Name   *string  `json:"name,omitempty"`
	Email  *string  `json:"email,omitempty" validate:"omitempty,email"`
	Age    *int     `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Weight *float64 `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Gender *string  `json:"gender,omitempty"`
}
