// Package policy содержит правила доступа к отзывам. Функции не зависят от хранилища:
// на вход только пользователь и ресурс
package policy

import "marketplace/reviews-service/internal/app/reviews/entity"

// CanCreateReview - оставлять отзывы могут только покупатели
func CanCreateReview(actor entity.Actor) bool {
	return actor.Role == entity.RoleBuyer
}

// CanRemoveReview - удалить отзыв может его автор или администратор
func CanRemoveReview(actor entity.Actor, review *entity.Review) bool {
	if review == nil {
		return false
	}
	return actor.ID == review.UserID || actor.Role == entity.RoleAdmin
}

// CanAudit - чтение отзыва по ID вне зависимости от статуса
func CanAudit(actor entity.Actor) bool {
	return actor.Role == entity.RoleAdmin
}

// IsSelfReview - продавец не может оценивать собственный товар
func IsSelfReview(actor entity.Actor, product *entity.Product) bool {
	return product != nil && product.SellerID == actor.ID
}
