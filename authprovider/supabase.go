package authprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"campusparking/logger"
)

// Supabase 呼叫託管的 GoTrue REST API
type Supabase struct {
	client *resty.Client
}

// NewSupabase 建立 client，所有請求都帶 apikey header
func NewSupabase(baseURL, anonKey string) *Supabase {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("apikey", anonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Supabase{client: client}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// gotrueError GoTrue 依版本不同會用不同欄位放錯誤訊息
type gotrueError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error"`
}

func (e *gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignUp POST /auth/v1/signup
func (s *Supabase) SignUp(ctx context.Context, email, password string) (*Result, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(credentialsBody{Email: email, Password: password}).
		SetError(&gotrueError{}).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth provider: %w", err)
	}
	if err := providerError(resp); err != nil {
		return nil, err
	}
	return decodeResult(resp.Body())
}

// SignIn POST /auth/v1/token?grant_type=password
func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Result, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentialsBody{Email: email, Password: password}).
		SetError(&gotrueError{}).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth provider: %w", err)
	}
	if err := providerError(resp); err != nil {
		return nil, err
	}
	return decodeResult(resp.Body())
}

// GetUser GET /auth/v1/user
func (s *Supabase) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		SetError(&gotrueError{}).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth provider: %w", err)
	}
	if err := providerError(resp); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Fetched current user", "user_id", user.ID)
	return &user, nil
}

func providerError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := ""
	if e, ok := resp.Error().(*gotrueError); ok && e != nil {
		msg = e.text()
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &ProviderError{Status: resp.StatusCode(), Message: msg}
}

// decodeResult 有 access_token 時是 session，否則整個 body 是 user
func decodeResult(body []byte) (*Result, error) {
	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if session.AccessToken != "" {
		return &Result{User: session.User, Session: &session}, nil
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	return &Result{User: &user}, nil
}
