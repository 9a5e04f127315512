package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-checkout/internal/service"
)

func expectEnsureCart(mock pgxmock.PgxPoolIface, userID string, cartID int64) {
	mock.ExpectQuery("INSERT INTO carts").
		WithArgs(userID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(cartID))
}

func TestCartRepository_AddItem_MergesQuantity(t *testing.T) {
	mock := newMockPool(t)
	expectEnsureCart(mock, "user-1", 5)
	mock.ExpectExec(regexp.QuoteMeta("quantity = cart_items.quantity + EXCLUDED.quantity")).
		WithArgs(int64(5), int64(1), 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewCartRepositoryWithPool(mock)

	require.NoError(t, repo.AddItem(context.Background(), "user-1", 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AddItem_UnknownProduct(t *testing.T) {
	mock := newMockPool(t)
	expectEnsureCart(mock, "user-1", 5)
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs(int64(5), int64(99), 1).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	repo := NewCartRepositoryWithPool(mock)

	err := repo.AddItem(context.Background(), "user-1", 99, 1)

	assert.ErrorIs(t, err, service.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Items(t *testing.T) {
	now := time.Now()
	mock := newMockPool(t)
	mock.ExpectQuery("FROM cart_items ci").
		WithArgs("user-1").
		WillReturnRows(mock.NewRows([]string{
			"id", "cart_id", "product_id", "quantity",
			"p_id", "name", "description", "price", "stock", "created_at", "updated_at",
		}).AddRow(int64(1), int64(5), int64(2), 3, int64(2), "Mug", "", decimal.NewFromInt(8), 10, now, now))

	repo := NewCartRepositoryWithPool(mock)

	items, err := repo.Items(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Mug", items[0].Product.Name)
	assert.Equal(t, 3, items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_UpdateQuantity_OtherUsersItem(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("UPDATE cart_items ci SET quantity").
		WithArgs("user-2", int64(1), 4).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewCartRepositoryWithPool(mock)

	err := repo.UpdateQuantity(context.Background(), "user-2", 1, 4)

	assert.ErrorIs(t, err, service.ErrCartItemNotFound)
}

func TestCartRepository_RemoveItem(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("DELETE FROM cart_items ci USING carts c").
		WithArgs("user-1", int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewCartRepositoryWithPool(mock)

	require.NoError(t, repo.RemoveItem(context.Background(), "user-1", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ClearTx(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id IN")).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	repo := NewCartRepositoryWithPool(mock)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.ClearTx(context.Background(), tx, "user-1"))
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
