package jwttoken

import (
	authmw "startingline/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets the auth middleware validate registration tokens
// without depending on the jwt package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{AccountID: claims.AccountID, Role: claims.Role}, nil
}
