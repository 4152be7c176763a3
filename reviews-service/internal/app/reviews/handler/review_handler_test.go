package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) ListActive(ctx context.Context) ([]entity.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) ListActiveForProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewService) CreateReview(ctx context.Context, actor entity.Actor, req *entity.CreateReviewRequest) (*entity.Review, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewService) DeleteReview(ctx context.Context, actor entity.Actor, reviewID uint) error {
	args := m.Called(ctx, actor, reviewID)
	return args.Error(0)
}

func (m *MockReviewService) GetReview(ctx context.Context, actor entity.Actor, reviewID uint) (*entity.Review, error) {
	args := m.Called(ctx, actor, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter() (*gin.Engine, *MockReviewService) {
	svc := new(MockReviewService)
	router := SetupRoutes(NewReviewHandler(svc), NewAuthMiddleware(testSecret))
	return router, svc
}

func mintToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := JWTClaims{
		UserID:   userID,
		Email:    "user@example.com",
		RoleName: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp entity.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

// ===================== GET /reviews =====================

func TestListActiveHandler_NoAuthRequired(t *testing.T) {
	router, svc := setupTestRouter()

	reviews := []entity.Review{
		{ID: 1, UserID: 2, ProductID: 1, Grade: 5, IsActive: true},
		{ID: 2, UserID: 3, ProductID: 1, Grade: 3, IsActive: true},
	}
	svc.On("ListActive", mock.Anything).Return(reviews, nil)

	w := doRequest(router, http.MethodGet, "/reviews", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var result []entity.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result, 2)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestListActiveHandler_EmptyIsJSONArray(t *testing.T) {
	router, svc := setupTestRouter()
	svc.On("ListActive", mock.Anything).Return([]entity.Review{}, nil)

	w := doRequest(router, http.MethodGet, "/reviews", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListActiveHandler_InternalError(t *testing.T) {
	router, svc := setupTestRouter()
	svc.On("ListActive", mock.Anything).Return(nil, errors.New("db down"))

	w := doRequest(router, http.MethodGet, "/reviews", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to get reviews", errorMessage(t, w))
}

// ===================== GET /reviews/products/:id/reviews =====================

func TestListActiveForProductHandler_Success(t *testing.T) {
	router, svc := setupTestRouter()
	svc.On("ListActiveForProduct", mock.Anything, uint(7)).Return([]entity.Review{{ID: 4, ProductID: 7, Grade: 4, IsActive: true}}, nil)

	w := doRequest(router, http.MethodGet, "/reviews/products/7/reviews", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestListActiveForProductHandler_ProductNotFound(t *testing.T) {
	router, svc := setupTestRouter()
	svc.On("ListActiveForProduct", mock.Anything, uint(7)).Return(nil, service.ErrProductNotFound)

	w := doRequest(router, http.MethodGet, "/reviews/products/7/reviews", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found or inactive", errorMessage(t, w))
}

func TestListActiveForProductHandler_InvalidID(t *testing.T) {
	router, _ := setupTestRouter()

	for _, id := range []string{"abc", "0", "-3"} {
		w := doRequest(router, http.MethodGet, "/reviews/products/"+id+"/reviews", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

// ===================== POST /reviews =====================

func TestCreateReviewHandler_Success(t *testing.T) {
	router, svc := setupTestRouter()
	token := mintToken(t, 2, entity.RoleBuyer)

	comment := "Great product!"
	created := &entity.Review{ID: 15, UserID: 2, ProductID: 1, Comment: &comment, CommentDate: time.Now().UTC(), Grade: 4, IsActive: true}
	svc.On("CreateReview", mock.Anything, entity.Actor{ID: 2, Role: entity.RoleBuyer}, &entity.CreateReviewRequest{ProductID: 1, Comment: &comment, Grade: 4}).
		Return(created, nil)

	w := doRequest(router, http.MethodPost, "/reviews", token, map[string]interface{}{
		"product_id": 1,
		"comment":    comment,
		"grade":      4,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var result entity.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, uint(15), result.ID)
	assert.True(t, result.IsActive)
	svc.AssertExpectations(t)
}

func TestCreateReviewHandler_RequiresToken(t *testing.T) {
	router, svc := setupTestRouter()

	w := doRequest(router, http.MethodPost, "/reviews", "", map[string]interface{}{"product_id": 1, "grade": 4})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReviewHandler_NonBuyerForbidden(t *testing.T) {
	router, svc := setupTestRouter()
	token := mintToken(t, 9, entity.RoleSeller)

	w := doRequest(router, http.MethodPost, "/reviews", token, map[string]interface{}{"product_id": 1, "grade": 4})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", errorMessage(t, w))
	svc.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReviewHandler_ValidationMessages(t *testing.T) {
	longComment := strings.Repeat("a", 2001)

	tests := []struct {
		name    string
		body    map[string]interface{}
		message string
	}{
		{"grade zero", map[string]interface{}{"product_id": 1, "grade": 0}, "Grade must be between 1 and 5"},
		{"grade above max", map[string]interface{}{"product_id": 1, "grade": 6}, "Grade must be between 1 and 5"},
		{"grade missing", map[string]interface{}{"product_id": 1}, "Grade must be between 1 and 5"},
		{"product missing", map[string]interface{}{"grade": 4}, "Product ID is required"},
		{"comment too long", map[string]interface{}{"product_id": 1, "grade": 4, "comment": longComment}, "Comment must be at most 2000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupTestRouter()
			token := mintToken(t, 2, entity.RoleBuyer)

			w := doRequest(router, http.MethodPost, "/reviews", token, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, errorMessage(t, w))
			svc.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReviewHandler_InvalidBody(t *testing.T) {
	router, _ := setupTestRouter()
	token := mintToken(t, 2, entity.RoleBuyer)

	req := httptest.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", errorMessage(t, w))
}

func TestCreateReviewHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"product not found", service.ErrProductNotFound, http.StatusNotFound, "Product not found or inactive"},
		{"duplicate", service.ErrDuplicateReview, http.StatusConflict, "You have already left a review for this product"},
		{"self review", service.ErrSelfReview, http.StatusBadRequest, "You can't leave a review for your product"},
		{"validation", service.ErrValidation, http.StatusBadRequest, "Grade must be between 1 and 5"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Failed to create review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupTestRouter()
			token := mintToken(t, 2, entity.RoleBuyer)
			svc.On("CreateReview", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doRequest(router, http.MethodPost, "/reviews", token, map[string]interface{}{"product_id": 1, "grade": 4})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, errorMessage(t, w))
		})
	}
}

// ===================== DELETE /reviews/:id =====================

func TestDeleteReviewHandler_Success(t *testing.T) {
	router, svc := setupTestRouter()
	token := mintToken(t, 1, entity.RoleAdmin)
	svc.On("DeleteReview", mock.Anything, entity.Actor{ID: 1, Role: entity.RoleAdmin}, uint(5)).Return(nil)

	w := doRequest(router, http.MethodDelete, "/reviews/5", token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Review deleted"}`, w.Body.String())
}

func TestDeleteReviewHandler_NotFound(t *testing.T) {
	router, svc := setupTestRouter()
	token := mintToken(t, 2, entity.RoleBuyer)
	svc.On("DeleteReview", mock.Anything, mock.Anything, uint(5)).Return(service.ErrReviewNotFound)

	w := doRequest(router, http.MethodDelete, "/reviews/5", token, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Review not found or inactive", errorMessage(t, w))
}

func TestDeleteReviewHandler_Forbidden(t *testing.T) {
	router, svc := setupTestRouter()
	token := mintToken(t, 3, entity.RoleBuyer)
	svc.On("DeleteReview", mock.Anything, mock.Anything, uint(5)).Return(service.ErrForbidden)

	w := doRequest(router, http.MethodDelete, "/reviews/5", token, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", errorMessage(t, w))
}

func TestDeleteReviewHandler_Unauthenticated(t *testing.T) {
	router, _ := setupTestRouter()

	w := doRequest(router, http.MethodDelete, "/reviews/5", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ===================== GET /reviews/:id =====================

func TestGetReviewHandler_AdminOnly(t *testing.T) {
	router, svc := setupTestRouter()
	svc.On("GetReview", mock.Anything, entity.Actor{ID: 1, Role: entity.RoleAdmin}, uint(5)).
		Return(&entity.Review{ID: 5, IsActive: false}, nil)

	w := doRequest(router, http.MethodGet, "/reviews/5", mintToken(t, 1, entity.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/reviews/5", mintToken(t, 2, entity.RoleBuyer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.AssertNumberOfCalls(t, "GetReview", 1)
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter()

	w := doRequest(router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reviews-service")
}
