// Package authprovider 封裝註冊、登入與取得目前使用者的後端實作
package authprovider

import (
	"context"
	"fmt"
	"strings"
)

// User 認證後端回傳的使用者
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session 登入成功後的 token 資訊
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Result 註冊或登入的結果；需要信箱確認時 Session 為 nil
type Result struct {
	User    *User    `json:"user"`
	Session *Session `json:"session,omitempty"`
}

// Provider 認證後端，每個方法只做一次往返，不重試
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Result, error)
	SignIn(ctx context.Context, email, password string) (*Result, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// ProviderError 後端回報的失敗，Message 直接顯示給使用者
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Options 建立 Provider 所需的設定
type Options struct {
	Kind        string
	SupabaseURL string
	AnonKey     string
	Local       *Local
}

// New 依 AUTH_PROVIDER 選擇實作
func New(opts Options) (Provider, error) {
	switch strings.ToLower(opts.Kind) {
	case "supabase":
		return NewSupabase(opts.SupabaseURL, opts.AnonKey), nil
	case "local":
		if opts.Local == nil {
			return nil, fmt.Errorf("local auth provider requires a database")
		}
		return opts.Local, nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", opts.Kind)
}
