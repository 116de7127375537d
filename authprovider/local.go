package authprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"campusparking/database"
	"campusparking/logger"
	"campusparking/models"
	"campusparking/utils"
)

// Local 開發用的自架認證：帳號存在資料庫，token 與託管後端格式相同
type Local struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewLocal(db *gorm.DB, secret string, ttl time.Duration) *Local {
	return &Local{db: db, secret: []byte(secret), ttl: ttl}
}

func toUser(u *models.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		Role:        "authenticated",
		AppMetadata: map[string]any{"role": u.Role, "provider": "email"},
	}
}

func (l *Local) session(u *models.User) (*Result, error) {
	user := toUser(u)
	token, err := IssueToken(l.secret, user, l.ttl)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Session: &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(l.ttl.Seconds()),
		User:        user,
	}}, nil
}

// SignUp 建立帳號並直接回傳 session
func (l *Local) SignUp(ctx context.Context, email, password string) (*Result, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := models.User{Email: email, PasswordHash: hashed}
	if err := l.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(database.TranslateError(err), database.ErrDuplicateEntry) {
			return nil, &ProviderError{Status: http.StatusUnprocessableEntity, Message: "User already registered"}
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	logger.FromContext(ctx).Info("Registered local user", "user_id", u.ID)
	return l.session(&u)
}

// SignIn 比對 bcrypt 哈希
func (l *Local) SignIn(ctx context.Context, email, password string) (*Result, error) {
	var u models.User
	err := l.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if err != nil || !utils.CheckPasswordHash(password, u.PasswordHash) {
		return nil, &ProviderError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return l.session(&u)
}

// GetUser 驗證 token 後回傳資料庫中的使用者
func (l *Local) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := ParseToken(l.secret, accessToken)
	if err != nil {
		return nil, &ProviderError{Status: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	var u models.User
	if err := l.db.WithContext(ctx).First(&u, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ProviderError{Status: http.StatusNotFound, Message: "User not found"}
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return toUser(&u), nil
}

// EnsureAdmin 確保指定帳號存在且為 admin，供 migrate 指令建立初始管理員
func (l *Local) EnsureAdmin(ctx context.Context, email, password string) error {
	log := logger.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	var u models.User
	err := l.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err == nil {
		if u.Role != "admin" {
			if err := l.db.WithContext(ctx).Model(&u).Update("role", "admin").Error; err != nil {
				return fmt.Errorf("failed to promote admin: %w", err)
			}
		}
		log.Info("Admin already exists", "email", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to query admin: %w", err)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	u = models.User{Email: email, PasswordHash: hashed, Role: "admin"}
	if err := l.db.WithContext(ctx).Create(&u).Error; err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}
	log.Info("Default admin created", "email", email)
	return nil
}

// RehashPlaintextPasswords 將匯入時仍為明文的密碼改存 bcrypt 哈希
func (l *Local) RehashPlaintextPasswords(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	var users []models.User
	if err := l.db.WithContext(ctx).Find(&users).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	updated := 0
	for _, u := range users {
		if utils.IsBcryptHash(u.PasswordHash) {
			continue
		}
		hashed, err := utils.HashPassword(u.PasswordHash)
		if err != nil {
			log.Warn("Failed to hash password", "user_id", u.ID, "error", err)
			continue
		}
		if err := l.db.WithContext(ctx).Model(&u).Update("password_hash", hashed).Error; err != nil {
			log.Warn("Failed to update password", "user_id", u.ID, "error", err)
			continue
		}
		updated++
	}
	log.Info("Password rehash check completed", "updated", updated)
	return updated, nil
}
