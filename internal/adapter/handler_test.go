package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresgmz/account-service/internal/entity"
	"github.com/andresgmz/account-service/internal/token"
	"github.com/andresgmz/account-service/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type MockAccountService struct{ mock.Mock }

func (m *MockAccountService) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAccountService) Verify(ctx context.Context, email, submittedCode string) (string, error) {
	args := m.Called(ctx, email, submittedCode)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, email, password string) (*usecase.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.LoginResult), args.Error(1)
}

func (m *MockAccountService) RefreshSession(ctx context.Context, refreshToken string) (token.Pair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(token.Pair), args.Error(1)
}

func (m *MockAccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	args := m.Called(ctx, id, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockAccountService) RegenerateCode(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAccountService) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAccountService) List(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockAccountService) Update(ctx context.Context, id, name, email, password string) (*entity.User, error) {
	args := m.Called(ctx, id, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAccountService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestServer(service AccountService) *httptest.Server {
	handler := NewAccountHandler(service, zap.NewNop())
	return httptest.NewServer(NewRouter(handler))
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	user := &entity.User{ID: primitive.NewObjectID(), Name: "A", Email: "a@x.com"}
	service.On("Register", mock.Anything, "A", "a@x.com", "secret1").Return(user, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, user.ID.Hex(), got["id"])
	assert.Equal(t, "a@x.com", got["email"])
	assert.Equal(t, false, got["isVerified"])
}

func TestRegisterEndpoint_MissingFields(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", map[string]string{"email": "a@x.com"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	service.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	service.On("Register", mock.Anything, "A", "a@x.com", "secret1").Return(nil, usecase.ErrEmailTaken)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVerifyEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"incorrect code", usecase.ErrInvalidCode, http.StatusBadRequest},
		{"expired code", usecase.ErrCodeExpired, http.StatusBadRequest},
		{"unknown user", usecase.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAccountService)
			srv := newTestServer(service)
			defer srv.Close()

			service.On("Verify", mock.Anything, "a@x.com", "000000").Return("", tt.serviceErr)

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/verify", map[string]string{
				"email": "a@x.com", "verificationCode": "000000",
			})
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestVerifyEndpoint_Success(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	service.On("Verify", mock.Anything, "a@x.com", "042137").Return("account verified successfully", nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/verify", map[string]string{
		"email": "a@x.com", "verificationCode": "042137",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "account verified successfully", got["message"])
}

func TestLoginEndpoint_Success(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	user := &entity.User{ID: primitive.NewObjectID(), Email: "a@x.com", IsVerified: true}
	service.On("Login", mock.Anything, "a@x.com", "secret1").Return(&usecase.LoginResult{
		Tokens: token.Pair{AccessToken: "access", RefreshToken: "refresh"},
		User:   user,
	}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/login", map[string]string{
		"email": "a@x.com", "password": "secret1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "access", got["accessToken"])
	assert.Equal(t, "refresh", got["refreshToken"])
	assert.Equal(t, user.ID.Hex(), got["user"].(map[string]interface{})["id"])
}

func TestLoginEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"bad credentials", usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unverified account", usecase.ErrUserNotVerified, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAccountService)
			srv := newTestServer(service)
			defer srv.Close()

			service.On("Login", mock.Anything, "a@x.com", "secret1").Return(nil, tt.serviceErr)

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/login", map[string]string{
				"email": "a@x.com", "password": "secret1",
			})
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRefreshTokenEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	service.On("RefreshSession", mock.Anything, "old-refresh").Return(token.Pair{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
	}, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/refresh-token", map[string]string{
		"refreshToken": "old-refresh",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "new-access", got["accessToken"])
	assert.Equal(t, "new-refresh", got["refreshToken"])
}

func TestRefreshTokenEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"invalid token", usecase.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{"unrecognized token", usecase.ErrRefreshForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAccountService)
			srv := newTestServer(service)
			defer srv.Close()

			service.On("RefreshSession", mock.Anything, "bad").Return(token.Pair{}, tt.serviceErr)

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/refresh-token", map[string]string{
				"refreshToken": "bad",
			})
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRefreshTokenEndpoint_MissingToken(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/refresh-token", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	service.AssertNotCalled(t, "RefreshSession", mock.Anything, mock.Anything)
}

func TestChangePasswordEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	id := primitive.NewObjectID().Hex()
	service.On("ChangePassword", mock.Anything, id, "secret1", "secret2").Return(nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/change-password/"+id, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	service.AssertExpectations(t)
}

func TestChangePasswordEndpoint_WrongPassword(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	id := primitive.NewObjectID().Hex()
	service.On("ChangePassword", mock.Anything, id, "wrong", "secret2").Return(usecase.ErrInvalidCredentials)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/change-password/"+id, map[string]string{
		"currentPassword": "wrong", "newPassword": "secret2",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetByIDEndpoint_NotFound(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	id := primitive.NewObjectID().Hex()
	service.On("GetByID", mock.Anything, id).Return(nil, usecase.ErrUserNotFound)

	resp, err := http.Get(srv.URL + "/api/v1/users/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	users := []*entity.User{
		{ID: primitive.NewObjectID(), Email: "a@x.com"},
		{ID: primitive.NewObjectID(), Email: "b@x.com"},
	}
	service.On("List", mock.Anything).Return(users, nil)

	resp, err := http.Get(srv.URL + "/api/v1/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestDeleteEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	id := primitive.NewObjectID().Hex()
	service.On("Delete", mock.Anything, id).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/users/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRegenerateCodeEndpoint(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	service.On("RegenerateCode", mock.Anything, "a@x.com").Return("verification code sent", nil)

	resp, err := http.Get(srv.URL + "/api/v1/users/generate-code/a@x.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "verification code sent", got["message"])
}

func TestInternalErrorIsOpaque(t *testing.T) {
	service := new(MockAccountService)
	srv := newTestServer(service)
	defer srv.Close()

	service.On("List", mock.Anything).Return(nil, assert.AnError)

	resp, err := http.Get(srv.URL + "/api/v1/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Internal server error\n", body.String())
	assert.NotContains(t, body.String(), assert.AnError.Error())
}
