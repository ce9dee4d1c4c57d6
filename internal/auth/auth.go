package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer is the issuer claim of every admin token
const TokenIssuer = "opgl-raid-tracker"

// AdminSubject is the subject claim of admin tokens; there is a single admin
const AdminSubject = "admin"

// ErrInvalidCredentials is returned when the admin password does not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims represents the JWT claims structure
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken is returned by a successful admin login
type AccessToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthService handles admin login and token validation
type AuthService struct {
	jwtSecret      []byte
	passwordHash   string
	accessTokenTTL time.Duration
	now            func() time.Time
}

// NewAuthService creates a new authentication service for the admin account
func NewAuthService(jwtSecret string, passwordHash string, accessTokenTTL time.Duration) *AuthService {
	return &AuthService{
		jwtSecret:      []byte(jwtSecret),
		passwordHash:   passwordHash,
		accessTokenTTL: accessTokenTTL,
		now:            time.Now,
	}
}

// Login verifies the admin password and issues an access token
func (authService *AuthService) Login(password string) (*AccessToken, error) {
	if !VerifyPassword(password, authService.passwordHash) {
		return nil, ErrInvalidCredentials
	}

	tokenString, err := authService.generateToken()
	if err != nil {
		return nil, err
	}

	return &AccessToken{
		AccessToken: tokenString,
		ExpiresIn:   int64(authService.accessTokenTTL.Seconds()),
	}, nil
}

// generateToken creates a signed HS256 token for the admin
func (authService *AuthService) generateToken() (string, error) {
	now := authService.now()
	claims := Claims{
		Role: AdminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   AdminSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(authService.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(authService.jwtSecret)
}

// ValidateAccessToken validates an admin access token and returns its token id
func (authService *AuthService) ValidateAccessToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return authService.jwtSecret, nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithTimeFunc(authService.now))

	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	if claims.Role != AdminSubject {
		return "", errors.New("invalid token role")
	}

	return claims.ID, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(password string, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
