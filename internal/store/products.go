package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/models"
	"github.com/shopspring/decimal"
)

func CreateProduct(ctx context.Context, db *sql.DB, sku, name, description, imageURL string, price decimal.Decimal, stock sql.NullInt64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, name, description, image_url, price, stock_quantity, is_active, is_available, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, TRUE, NOW(), NOW(), 1)
		RETURNING id, sku, name, description, image_url, price, stock_quantity, is_active, is_available, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, sku, name, description, imageURL, price, stock).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.ImageURL,
		&product.Price,
		&product.StockQuantity,
		&product.IsActive,
		&product.IsAvailable,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, sku, name, description, image_url, price, stock_quantity, is_active, is_available, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.ImageURL,
		&product.Price,
		&product.StockQuantity,
		&product.IsActive,
		&product.IsAvailable,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductsByIDs loads the referenced products in a single batch read.
// Missing ids are simply absent from the returned map.
func GetProductsByIDs(ctx context.Context, db *sql.DB, ids []int64) (map[int64]*models.Product, error) {
	query := `
		SELECT id, sku, name, description, image_url, price, stock_quantity, is_active, is_available, created_at, updated_at, version
		FROM products
		WHERE id = ANY($1)`

	rows, err := db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("batch get products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		product := &models.Product{}
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.ImageURL,
			&product.Price,
			&product.StockQuantity,
			&product.IsActive,
			&product.IsAvailable,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// DecrementStockFloored reduces tracked stock by quantity, never below zero.
// Untracked products (NULL stock) are left untouched.
func DecrementStockFloored(ctx context.Context, db *sql.DB, productID int64, quantity int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = GREATEST(stock_quantity - $1, 0),
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity IS NOT NULL`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	return nil
}

// DecrementStockChecked refuses to oversell: the update only applies while
// enough stock remains, and a zero-row result reports insufficient stock.
func DecrementStockChecked(ctx context.Context, db *sql.DB, productID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}
