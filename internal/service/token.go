package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity участник, от имени которого выполняется операция. Выдаётся внешним провайдером идентификации.
type Identity struct {
	UserID uuid.UUID
	Role   string
	Name   string
}

// TokenManager проверяет access токены провайдера идентификации.
type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
	}
}

// Issue выпускает access токен. Сервис логин не реализует, метод нужен для тестов и локальной отладки.
func (m *TokenManager) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id.UserID.String(),
		"role": id.Role,
		"name": id.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(m.accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// ParseAccess извлекает участника из access токена.
func (m *TokenManager) ParseAccess(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи %v", t.Header["alg"])
		}
		return m.accessSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, err
	}

	role, _ := claims["role"].(string)
	name, _ := claims["name"].(string)
	return Identity{UserID: userID, Role: role, Name: name}, nil
}
