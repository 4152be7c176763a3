package repository

import (
	"context"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore создает Store поверх GORM. Репозитории, выданные внутри Transaction,
// работают на соединении транзакции
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Reviews() ReviewRepository {
	return NewReviewRepository(s.db)
}

func (s *gormStore) Products() ProductRepository {
	return NewProductRepository(s.db)
}

// Transaction откатывается при ошибке fn и при отмене ctx до коммита
func (s *gormStore) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
