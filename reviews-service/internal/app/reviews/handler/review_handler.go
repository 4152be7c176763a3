package handler

import (
	"errors"
	"net/http"
	"strconv"

	"marketplace/pkg/logger"
	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const gradeOutOfRangeMessage = "Grade must be between 1 and 5"

type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
	validator     *validator.Validate
}

func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

// ListActive GET /reviews
func (h *ReviewHandler) ListActive(c *gin.Context) {
	reviews, err := h.reviewService.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// ListActiveForProduct GET /reviews/products/:product_id/reviews
func (h *ReviewHandler) ListActiveForProduct(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	reviews, err := h.reviewService.ListActiveForProduct(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err, "Failed to get reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// CreateReview POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.respondError(c, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

// DeleteReview DELETE /reviews/:review_id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		return
	}

	reviewID, ok := parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid review ID"})
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), actor, reviewID); err != nil {
		h.respondError(c, err, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Review deleted",
	})
}

// GetReview GET /reviews/:review_id (только admin, видит и удаленные)
func (h *ReviewHandler) GetReview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		return
	}

	reviewID, ok := parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid review ID"})
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), actor, reviewID)
	if err != nil {
		h.respondError(c, err, "Failed to get review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// respondError переводит ошибки сервиса в HTTP-ответ.
// Неизвестные ошибки логируются и отдаются как 500 без подробностей
func (h *ReviewHandler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: gradeOutOfRangeMessage})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found or inactive"})
	case errors.Is(err, service.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Review not found or inactive"})
	case errors.Is(err, service.ErrDuplicateReview):
		c.JSON(http.StatusConflict, entity.ErrorResponse{Error: "You have already left a review for this product"})
	case errors.Is(err, service.ErrSelfReview):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "You can't leave a review for your product"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Access denied"})
	default:
		logger.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg(fallback)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: fallback})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// formatValidationError переводит первую ошибку валидатора в сообщение для клиента
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		switch fieldError.Field() {
		case "Grade":
			return gradeOutOfRangeMessage
		case "ProductID":
			return "Product ID is required"
		case "Comment":
			return "Comment must be at most " + fieldError.Param() + " characters"
		default:
			return fieldError.Field() + " is invalid"
		}
	}
	return "Validation failed"
}
