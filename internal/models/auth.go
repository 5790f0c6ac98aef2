package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the workflow roles recognised by the platform.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleLoader  UserRole = "LOADER"
	RoleAdvisor UserRole = "ADVISOR"
	RoleAuditor UserRole = "AUDITOR"
)

// JWTClaims captures the verified identity attached to each request.
// Token issuance lives in the identity service; this API only validates.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
