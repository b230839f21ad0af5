package models

import "github.com/golang-jwt/jwt/v5"

// Credential is a stored user login record.
type Credential struct {
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"password_hash" json:"-"`
	Role         string `bson:"role" json:"role"`
}

// Claims carries the session identity inside a signed token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}
