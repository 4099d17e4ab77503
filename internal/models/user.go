package models

import "time"

// User represents a Modelos user account
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	Role      string    `json:"perfil"`
	Active    bool      `json:"ativo"`
	CreatedAt time.Time `json:"criado_em"`
}

// UserCreate represents the request to create a user
type UserCreate struct {
	Name     string `json:"nome" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required,min=6"`
	Role     string `json:"perfil" validate:"required,oneof=admin editor leitor"`
}

// UserUpdate represents the request to update a user
type UserUpdate struct {
	Name     *string `json:"nome,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"senha,omitempty" validate:"omitempty,min=6"`
	Role     *string `json:"perfil,omitempty" validate:"omitempty,oneof=admin editor leitor"`
	Active   *bool   `json:"ativo,omitempty"`
}

// Credentials represents a login request
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required"`
}

// LoginResponse represents the backend reply to a successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"usuario"`
}
