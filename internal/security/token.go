package security

import (
	"errors"
	"time"

	"rentops-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

const (
	issuer   = "rentops-auth"
	audience = "rentops-api"
)

// ActorClaims carries the identity the API acts on behalf of.
type ActorClaims struct {
	ActorID int32       `json:"actor_id"`
	Email   string      `json:"email"`
	Name    string      `json:"name,omitempty"`
	Role    domain.Role `json:"role"`
	Type    TokenType   `json:"type"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the identity passed to services.
func (c *ActorClaims) Actor() domain.Actor {
	return domain.Actor{ID: c.ActorID, Email: c.Email, Name: c.Name, Role: c.Role}
}

type TokenManager interface {
	GenerateAccessToken(actor domain.Actor) (string, error)
	GenerateServiceToken(name string) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type tokenManager struct {
	secret      []byte
	accessTTL   time.Duration
	serviceTTL  time.Duration
	currentTime func() time.Time
}

func NewTokenManager(secret string, accessTTL time.Duration) TokenManager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &tokenManager{
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		serviceTTL:  5 * time.Minute,
		currentTime: time.Now,
	}
}

func (m *tokenManager) sign(claims ActorClaims, ttl time.Duration) (string, error) {
	now := m.currentTime()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Email,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(actor domain.Actor) (string, error) {
	if actor.Email == "" {
		return "", errors.New("actor email is required")
	}
	if actor.Role == "" {
		actor.Role = domain.RoleUser
	}
	return m.sign(ActorClaims{
		ActorID: actor.ID,
		Email:   actor.Email,
		Name:    actor.Name,
		Role:    actor.Role,
		Type:    TokenTypeAccess,
	}, m.accessTTL)
}

// GenerateServiceToken issues a short-lived system token for internal callers
// such as the cron binary.
func (m *tokenManager) GenerateServiceToken(name string) (string, error) {
	return m.sign(ActorClaims{
		Email: name,
		Name:  name,
		Role:  domain.RoleSystem,
		Type:  TokenTypeService,
	}, m.serviceTTL)
}

func (m *tokenManager) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.currentTime),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess && claims.Type != TokenTypeService {
		return nil, ErrWrongTokenType
	}
	if claims.Email == "" {
		claims.Email = claims.Subject
	}
	return claims, nil
}

