package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// "me" is routed to the current-user endpoints and can never be a username.
const reservedUsername = "me"

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{db: db, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterInput carries the fields of a signup request.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

func (in *RegisterInput) validate() error {
	if in.Username == reservedUsername {
		return &ValidationError{Field: "username", Message: "this username is reserved"}
	}
	if !usernamePattern.MatchString(in.Username) {
		return &ValidationError{Field: "username", Message: "username may only contain letters, digits and @/./+/-/_"}
	}
	if len(in.Password) < 8 {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// Register creates a new user. Email and username uniqueness is enforced by
// the database; violations come back as field-scoped validation errors.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateField(ctx, in)
		}
		return nil, err
	}
	return &user, nil
}

// duplicateField figures out which unique column the failed insert hit.
func (s *AuthService) duplicateField(ctx context.Context, in RegisterInput) error {
	var count int64
	s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&count)
	if count > 0 {
		return &ValidationError{Field: "email", Message: "a user with this email already exists"}
	}
	return &ValidationError{Field: "username", Message: "a user with this username already exists"}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.GenerateToken(user.ID)
}

func (s *AuthService) GenerateToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			return nil, errors.New("invalid token claims")
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return nil, err
		}
		return &middleware.TokenClaims{UserID: userID}, nil
	}
	return nil, errors.New("invalid token")
}
