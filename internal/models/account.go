package models

import "time"

// Client cliente destino de un romaneio
type Client struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Document  *string    `json:"document,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type ClientInput struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Document *string `json:"document,omitempty"`
	Email    *string `json:"email,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type Category struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Position    int     `json:"position"`
}

// User usuario autenticado (GET /auth/me)
type User struct {
	ID       int     `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	IsAdmin  bool    `json:"is_admin"`
	IsActive bool    `json:"is_active"`
	PlanID   *string `json:"plan_id,omitempty"`
}

// Token respuesta de POST /auth/login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UsageCounter struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// PlanUsage respuesta de GET /plans/usage
type PlanUsage struct {
	Products   UsageCounter `json:"products"`
	Categories UsageCounter `json:"categories"`
	PlanID     string       `json:"plan_id"`
}
