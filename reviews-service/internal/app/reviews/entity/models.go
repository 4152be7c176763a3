package entity

import (
	"time"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"

	MinGrade = 1
	MaxGrade = 5
)

// Review - отзыв покупателя о товаре. Никогда не удаляется физически:
// удаление выставляет IsActive=false
type Review struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_reviews_user_product,priority:1"`
	ProductID   uint      `json:"product_id" gorm:"not null;index:idx_reviews_product;uniqueIndex:idx_reviews_user_product,priority:2"`
	Comment     *string   `json:"comment" gorm:"type:text"`
	CommentDate time.Time `json:"comment_date" gorm:"not null"`
	Grade       int       `json:"grade" gorm:"not null;check:check_grade,grade >= 1 AND grade <= 5"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true;index"`
}

func (Review) TableName() string {
	return "reviews"
}

// Product - товар каталога. Сервис отзывов читает его и пишет только поле Rating
type Product struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	SellerID uint     `json:"seller_id" gorm:"not null"`
	Name     string   `json:"name" gorm:"type:varchar(255);not null"`
	IsActive bool     `json:"is_active" gorm:"not null;default:true"`
	Rating   *float64 `json:"rating"` // NULL если активных отзывов нет
}

func (Product) TableName() string {
	return "products"
}

// Actor - аутентифицированный пользователь, выполняющий операцию
type Actor struct {
	ID   uint
	Role string
}

// AverageGrade считает среднее арифметическое оценок.
// Для пустого набора возвращает nil - рейтинг товара сбрасывается в NULL
func AverageGrade(reviews []Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Grade
	}

	avg := float64(sum) / float64(len(reviews))
	return &avg
}

func ValidGrade(grade int) bool {
	return grade >= MinGrade && grade <= MaxGrade
}
