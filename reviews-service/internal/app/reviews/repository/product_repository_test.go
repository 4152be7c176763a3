package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var productColumns = []string{"id", "seller_id", "name", "is_active", "rating"}

type ProductRepositoryTestSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	sqlDB *sql.DB
	db    *gorm.DB
	repo  ProductRepository
	store Store
}

func TestProductRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProductRepositoryTestSuite))
}

func (s *ProductRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.db, err = gorm.Open(postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewProductRepository(s.db)
	s.store = NewStore(s.db)
}

func (s *ProductRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

func (s *ProductRepositoryTestSuite) TestGetActive_Success() {
	rows := sqlmock.NewRows(productColumns).AddRow(1, 5, "Mug", true, 4.5)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1 AND is_active = $2 ORDER BY "products"."id" LIMIT $3`)).
		WithArgs(1, true, 1).
		WillReturnRows(rows)

	product, err := s.repo.GetActive(context.Background(), 1)

	s.NoError(err)
	s.Equal(uint(5), product.SellerID)
	s.Require().NotNil(product.Rating)
	s.Equal(4.5, *product.Rating)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestGetActive_InactiveOrMissing() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1 AND is_active = $2`)).
		WithArgs(99, true, 1).
		WillReturnRows(sqlmock.NewRows(productColumns))

	product, err := s.repo.GetActive(context.Background(), 99)

	s.ErrorIs(err, ErrProductNotFound)
	s.Nil(product)
}

func (s *ProductRepositoryTestSuite) TestGetForUpdate_LocksRow() {
	rows := sqlmock.NewRows(productColumns).AddRow(1, 5, "Mug", false, nil)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1 ORDER BY "products"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs(1, 1).
		WillReturnRows(rows)

	product, err := s.repo.GetForUpdate(context.Background(), 1)

	s.NoError(err)
	s.False(product.IsActive)
	s.Nil(product.Rating)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestUpdateRating_SetsValue() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "rating"=$1 WHERE id = $2`)).
		WithArgs(3.5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	rating := 3.5
	err := s.repo.UpdateRating(context.Background(), 1, &rating)

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestUpdateRating_NullWhenNoReviews() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "rating"=$1 WHERE id = $2`)).
		WithArgs(nil, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.UpdateRating(context.Background(), 1, nil)

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestUpdateRating_MissingProduct() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.repo.UpdateRating(context.Background(), 42, nil)

	s.ErrorIs(err, ErrProductNotFound)
}

func (s *ProductRepositoryTestSuite) TestListIDs() {
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "products" ORDER BY id ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(7))

	ids, err := s.repo.ListIDs(context.Background())

	s.NoError(err)
	s.Equal([]uint{1, 2, 7}, ids)
}

// ===================== Store.Transaction =====================

func (s *ProductRepositoryTestSuite) TestTransaction_Commit() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(productColumns).AddRow(1, 5, "Mug", true, nil))
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE product_id = $1 AND is_active = $2`)).
		WithArgs(1, true).
		WillReturnRows(sqlmock.NewRows(reviewColumns))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "rating"=$1`)).
		WithArgs(nil, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.store.Transaction(context.Background(), func(repos Repositories) error {
		if _, err := repos.Products().GetForUpdate(context.Background(), 1); err != nil {
			return err
		}
		if _, err := repos.Reviews().ListActiveByProduct(context.Background(), 1); err != nil {
			return err
		}
		return repos.Products().UpdateRating(context.Background(), 1, nil)
	})

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ProductRepositoryTestSuite) TestTransaction_RollbackOnError() {
	fail := errors.New("aggregation failed")

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows(productColumns).AddRow(1, 5, "Mug", true, nil))
	s.mock.ExpectRollback()

	err := s.store.Transaction(context.Background(), func(repos Repositories) error {
		if _, err := repos.Products().GetForUpdate(context.Background(), 1); err != nil {
			return err
		}
		return fail
	})

	s.ErrorIs(err, fail)
	s.NoError(s.mock.ExpectationsWereMet())
}
