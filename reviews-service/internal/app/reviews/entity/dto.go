package entity

// CreateReviewRequest - запрос на создание отзыва
type CreateReviewRequest struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
	Grade     int     `json:"grade" validate:"required,min=1,max=5"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string `json:"message"`
}
