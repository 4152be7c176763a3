package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrValidation      = errors.New("grade must be between 1 and 5")
	ErrProductNotFound = errors.New("product not found or inactive")
	ErrReviewNotFound  = errors.New("review not found or inactive")
	ErrDuplicateReview = errors.New("review for this product already exists")
	ErrSelfReview      = errors.New("seller can't review own product")
	ErrForbidden       = errors.New("access denied")
)
