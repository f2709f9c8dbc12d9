package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"opsdeck/internal/core/domain"
)

type TokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    "opsdeck-backend",
		ttl:       ttl,
	}
}

// GenerateToken signs a JWT carrying the user's identity, role and assigned
// venture/office scope.
func (s *TokenService) GenerateToken(u *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", u.ID),
		"email":    u.Email,
		"name":     u.FullName,
		"role":     string(u.Role),
		"ventures": u.VentureIDs,
		"offices":  u.OfficeIDs,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
		"iss":      s.issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses and validates the JWT string, rebuilding the session
// user from its claims.
func (s *TokenService) ValidateToken(tokenStr string) (*domain.SessionUser, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("subject not found in token")
	}
	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid subject")
	}

	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &domain.SessionUser{
		ID:         userID,
		Email:      email,
		FullName:   name,
		Role:       domain.Role(role),
		VentureIDs: int64Claim(claims["ventures"]),
		OfficeIDs:  int64Claim(claims["offices"]),
	}, nil
}

// int64Claim converts the JSON array claim back into ids; JSON numbers come
// back as float64.
func int64Claim(v any) []int64 {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(arr))
	for _, e := range arr {
		if f, ok := e.(float64); ok {
			out = append(out, int64(f))
		}
	}
	return out
}
