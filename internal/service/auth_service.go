package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

// AuthConfig defines configuration for access token handling.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// TokenSubject describes the identity embedded in an issued token.
type TokenSubject struct {
	UserID       int64
	Role         models.UserRole
	Email        string
	FullName     string
	DepartmentID int64
	UnitID       int64
}

// AuthService validates bearer tokens issued by the portal's authentication provider. Sessions
// and passwords live with that provider; IssueToken only serves development tooling.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID <= 0 || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing identity claims")
	}

	return claims, nil
}

// IssueToken signs an access token for subject.
func (s *AuthService) IssueToken(subject TokenSubject) (string, time.Time, error) {
	if subject.UserID <= 0 || subject.Role == "" {
		return "", time.Time{}, fmt.Errorf("user id and role are required")
	}
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:       subject.UserID,
		Role:         subject.Role,
		Email:        subject.Email,
		FullName:     subject.FullName,
		DepartmentID: subject.DepartmentID,
		UnitID:       subject.UnitID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(subject.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	s.logger.Debug("access token issued", zap.Int64("user_id", subject.UserID), zap.String("role", string(subject.Role)))
	return signed, expiresAt, nil
}
