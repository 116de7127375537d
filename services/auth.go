package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"campusparking/authprovider"
	"campusparking/logger"
	"campusparking/models"
	"campusparking/utils"
)

// AuthResult 註冊、登入的結果，Status 直接作為 HTTP 狀態碼
type AuthResult struct {
	Status int    `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AuthService 先在本地驗證欄位，通過後才呼叫認證後端
type AuthService struct {
	provider    authprovider.Provider
	adminEmails []string
}

func NewAuthService(provider authprovider.Provider, adminEmails []string) *AuthService {
	return &AuthService{provider: provider, adminEmails: adminEmails}
}

func (s *AuthService) validate(creds models.Credentials, emailMsg string) *AuthResult {
	if !utils.ValidateEmail(strings.TrimSpace(creds.Email)) {
		return &AuthResult{Status: http.StatusUnprocessableEntity, Error: emailMsg}
	}
	if res := utils.ValidatePassword(creds.Password); !res.Valid {
		return &AuthResult{Status: http.StatusUnprocessableEntity, Error: res.Message}
	}
	return nil
}

// SignUp 註冊
func (s *AuthService) SignUp(ctx context.Context, creds models.Credentials) AuthResult {
	if bad := s.validate(creds, MsgInvalidEmailSignUp); bad != nil {
		return *bad
	}
	res, err := s.provider.SignUp(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		logger.FromContext(ctx).Warn("Sign-up rejected by auth provider", "error", err)
		return AuthResult{Status: http.StatusBadRequest, Error: err.Error()}
	}
	return AuthResult{Status: http.StatusOK, Data: res}
}

// SignIn 登入
func (s *AuthService) SignIn(ctx context.Context, creds models.Credentials) AuthResult {
	if bad := s.validate(creds, MsgInvalidEmailSignIn); bad != nil {
		return *bad
	}
	res, err := s.provider.SignIn(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		logger.FromContext(ctx).Warn("Sign-in rejected by auth provider", "error", err)
		return AuthResult{Status: http.StatusBadRequest, Error: err.Error()}
	}
	return AuthResult{Status: http.StatusOK, Data: res}
}

// CurrentUserView 目前使用者與計算後的 admin 旗標
type CurrentUserView struct {
	User      *authprovider.User `json:"user"`
	Principal models.Principal   `json:"principal"`
}

// CurrentUser 以 access token 向後端取得目前使用者
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) AuthResult {
	if accessToken == "" {
		return AuthResult{Status: http.StatusUnauthorized, Error: "Authorization header is required"}
	}
	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		status := http.StatusBadRequest
		var pe *authprovider.ProviderError
		if errors.As(err, &pe) && pe.Status == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		return AuthResult{Status: status, Error: err.Error()}
	}
	return AuthResult{Status: http.StatusOK, Data: CurrentUserView{
		User:      user,
		Principal: PrincipalFor(user, s.adminEmails),
	}}
}
