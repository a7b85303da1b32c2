package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"finale/internal/domain/user"
	"finale/internal/shared/auth"
)

func newAuthHandler(userRepo *MockUserRepo) *AuthHandler {
	return NewAuthHandler(userRepo, auth.NewJWT("test-secret"))
}

func TestHandleRegister(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	tests := []struct {
		name           string
		body           string
		userRepo       *MockUserRepo
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           `{"email":"new@example.com","name":"New User","password":"password123"}`,
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Name Defaults To Email Local Part",
			body:           `{"email":"casey@example.com","password":"password123"}`,
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid Email",
			body:           `{"email":"not-an-email","password":"password123"}`,
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Short Password",
			body:           `{"email":"new@example.com","password":"short"}`,
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid Body",
			body:           `{not json`,
			userRepo:       &MockUserRepo{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Email Already Registered",
			body: `{"email":"taken@example.com","password":"password123"}`,
			userRepo: &MockUserRepo{
				GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
					return &user.User{ID: 1, Email: email, PasswordHash: &hash}, nil
				},
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newAuthHandler(tt.userRepo)

			req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()
			handler.HandleRegister(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleRegister_SetsSessionCookie(t *testing.T) {
	handler := newAuthHandler(&MockUserRepo{})

	body := []byte(`{"email":"new@example.com","password":"password123"}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleRegister(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("handler returned status %d: %s", rr.Code, rr.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no access_token cookie set")
	}
	if cookie.Value == "" {
		t.Error("access_token cookie is empty")
	}
	if !cookie.HttpOnly {
		t.Error("access_token cookie is not HttpOnly")
	}

	var resp AuthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("response token is empty")
	}
	if resp.User == nil || resp.User.Email != "new@example.com" {
		t.Errorf("response user = %+v, want new@example.com", resp.User)
	}
}

func TestHandleLogin(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	knownUser := &MockUserRepo{
		GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			if email == "casey@example.com" {
				return &user.User{ID: 1, Email: email, PasswordHash: &hash}, nil
			}
			return nil, user.ErrUserNotFound
		},
	}

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           `{"email":"casey@example.com","password":"password123"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Email Case Insensitive",
			body:           `{"email":"Casey@Example.com","password":"password123"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Wrong Password",
			body:           `{"email":"casey@example.com","password":"wrong-password"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unknown Email",
			body:           `{"email":"nobody@example.com","password":"password123"}`,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Body",
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newAuthHandler(knownUser)

			req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()
			handler.HandleLogin(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleLogout(t *testing.T) {
	handler := newAuthHandler(&MockUserRepo{})

	req, _ := http.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rr := httptest.NewRecorder()
	handler.HandleLogout(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNoContent)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no access_token cookie set")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative to expire the session", cookie.MaxAge)
	}
}
