package service

import (
	"context"
	"sort"

	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/repository"
)

// memoryStore - хранилище в памяти с откатом транзакции по снимку.
// Повторяет ограничения БД: уникальность (user_id, product_id) и сортировку по id
type memoryStore struct {
	products map[uint]*entity.Product
	reviews  map[uint]*entity.Review
	nextID   uint
}

func newMemoryStore(products ...entity.Product) *memoryStore {
	s := &memoryStore{
		products: make(map[uint]*entity.Product),
		reviews:  make(map[uint]*entity.Review),
	}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *memoryStore) Reviews() repository.ReviewRepository   { return memoryReviews{s} }
func (s *memoryStore) Products() repository.ProductRepository { return memoryProducts{s} }

func (s *memoryStore) Transaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	products, reviews, nextID := s.snapshot()

	err := fn(s)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.products, s.reviews, s.nextID = products, reviews, nextID
		return err
	}
	return nil
}

func (s *memoryStore) snapshot() (map[uint]*entity.Product, map[uint]*entity.Review, uint) {
	products := make(map[uint]*entity.Product, len(s.products))
	for id, p := range s.products {
		cp := *p
		products[id] = &cp
	}
	reviews := make(map[uint]*entity.Review, len(s.reviews))
	for id, r := range s.reviews {
		cp := *r
		reviews[id] = &cp
	}
	return products, reviews, s.nextID
}

func (s *memoryStore) product(id uint) *entity.Product {
	return s.products[id]
}

func (s *memoryStore) filter(match func(r *entity.Review) bool) []entity.Review {
	out := []entity.Review{}
	for _, r := range s.reviews {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryReviews struct{ s *memoryStore }

func (m memoryReviews) Create(ctx context.Context, review *entity.Review) error {
	for _, r := range m.s.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return repository.ErrDuplicateReview
		}
	}
	m.s.nextID++
	review.ID = m.s.nextID
	cp := *review
	m.s.reviews[review.ID] = &cp
	return nil
}

func (m memoryReviews) ListActive(ctx context.Context) ([]entity.Review, error) {
	return m.s.filter(func(r *entity.Review) bool { return r.IsActive }), nil
}

func (m memoryReviews) ListActiveByProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	return m.s.filter(func(r *entity.Review) bool { return r.IsActive && r.ProductID == productID }), nil
}

func (m memoryReviews) GetByID(ctx context.Context, id uint) (*entity.Review, error) {
	r, ok := m.s.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memoryReviews) GetActiveByID(ctx context.Context, id uint) (*entity.Review, error) {
	r, ok := m.s.reviews[id]
	if !ok || !r.IsActive {
		return nil, repository.ErrReviewNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memoryReviews) ExistsByUserAndProduct(ctx context.Context, userID, productID uint) (bool, error) {
	for _, r := range m.s.reviews {
		if r.UserID == userID && r.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m memoryReviews) Deactivate(ctx context.Context, id uint) error {
	r, ok := m.s.reviews[id]
	if !ok || !r.IsActive {
		return repository.ErrReviewNotFound
	}
	r.IsActive = false
	return nil
}

type memoryProducts struct{ s *memoryStore }

func (m memoryProducts) GetActive(ctx context.Context, id uint) (*entity.Product, error) {
	p, ok := m.s.products[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memoryProducts) GetForUpdate(ctx context.Context, id uint) (*entity.Product, error) {
	p, ok := m.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memoryProducts) UpdateRating(ctx context.Context, id uint, rating *float64) error {
	p, ok := m.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if rating != nil {
		v := *rating
		rating = &v
	}
	p.Rating = rating
	return nil
}

func (m memoryProducts) ListIDs(ctx context.Context) ([]uint, error) {
	ids := make([]uint, 0, len(m.s.products))
	for id := range m.s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// listHookStore вызывает afterList один раз, сразу после чтения списка отзывов вне транзакции
type listHookStore struct {
	*memoryStore
	afterList func()
}

func (h *listHookStore) Reviews() repository.ReviewRepository {
	hook := h.afterList
	h.afterList = nil
	return listHookReviews{memoryReviews: memoryReviews{h.memoryStore}, afterList: hook}
}

type listHookReviews struct {
	memoryReviews
	afterList func()
}

func (r listHookReviews) ListActive(ctx context.Context) ([]entity.Review, error) {
	reviews, err := r.memoryReviews.ListActive(ctx)
	r.fire()
	return reviews, err
}

func (r listHookReviews) ListActiveByProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	reviews, err := r.memoryReviews.ListActiveByProduct(ctx, productID)
	r.fire()
	return reviews, err
}

func (r listHookReviews) fire() {
	if r.afterList != nil {
		r.afterList()
	}
}
