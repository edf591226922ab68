package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/models"
)

type PendingOrderItem struct {
	ProductID       int64
	Quantity        int
	UnitPriceMinor  int64
	TotalPriceMinor int64
	ProductName     string
	ProductDesc     string
	ProductImage    string
}

type CreatePendingOrderRequest struct {
	UserID          sql.NullInt64
	AmountMinor     int64
	Currency        string
	ShippingAddress json.RawMessage
	BillingAddress  json.RawMessage
	Metadata        models.OrderMetadata
	Items           []PendingOrderItem
}

// CreatePendingOrder inserts the order and its items atomically. Unit prices
// come from the reconciled catalog read, never from client input.
func CreatePendingOrder(ctx context.Context, db *sql.DB, req CreatePendingOrderRequest) (*models.Order, error) {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	var order *models.Order

	err = database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order = &models.Order{
			UserID:          req.UserID,
			AmountMinor:     req.AmountMinor,
			Currency:        req.Currency,
			Status:          models.OrderStatusPending,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			Metadata:        req.Metadata,
		}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, amount_minor, currency, status, shipping_address, billing_address, metadata, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
			 RETURNING id, created_at, updated_at, version`,
			req.UserID, req.AmountMinor, req.Currency, models.OrderStatusPending,
			req.ShippingAddress, req.BillingAddress, metadata).Scan(
			&order.ID,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
		)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range req.Items {
			var created models.OrderItem
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price_minor, total_price_minor, product_name, product_description, product_image, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
				 RETURNING id, created_at`,
				order.ID, item.ProductID, item.Quantity, item.UnitPriceMinor, item.TotalPriceMinor,
				item.ProductName, item.ProductDesc, item.ProductImage).Scan(&created.ID, &created.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			created.OrderID = order.ID
			created.ProductID = item.ProductID
			created.Quantity = item.Quantity
			created.UnitPriceMinor = item.UnitPriceMinor
			created.TotalPriceMinor = item.TotalPriceMinor
			created.ProductName = item.ProductName
			created.ProductDesc = item.ProductDesc
			created.ProductImage = item.ProductImage
			order.Items = append(order.Items, created)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func SetGatewaySession(ctx context.Context, db *sql.DB, orderID int64, sessionID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET gateway_session_id = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		sessionID, orderID)
	if err != nil {
		return fmt.Errorf("set gateway session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	var metadata []byte

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.AmountMinor,
		&order.Currency,
		&order.Status,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.GatewaySessionID,
		&metadata,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &order.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return order, nil
}

const orderColumns = `id, user_id, amount_minor, currency, status, shipping_address, billing_address, gateway_session_id, metadata, created_at, updated_at, version`

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// GetOrderByGatewaySession resolves an order from the gateway's confirmation
// payload. The session id is unique per order.
func GetOrderByGatewaySession(ctx context.Context, db *sql.DB, sessionID string) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_session_id = $1`, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by gateway session: %w", err)
	}

	items, err := getOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price_minor, total_price_minor, product_name, product_description, product_image, created_at
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPriceMinor,
			&item.TotalPriceMinor,
			&item.ProductName,
			&item.ProductDesc,
			&item.ProductImage,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// MarkOrderPaid performs the single conditional pending->paid transition.
// The WHERE status = 'pending' clause is the sole mutual exclusion between
// concurrent finalization attempts; a zero-row update means another caller
// already won and ErrOrderNotPending is returned.
func MarkOrderPaid(ctx context.Context, db *sql.DB, orderID int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2
		   AND status = $3
		 RETURNING `+orderColumns,
		models.OrderStatusPaid, orderID, models.OrderStatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotPending
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	return order, nil
}

func InsertPaymentRecord(ctx context.Context, db *sql.DB, record *models.PaymentRecord) (*models.PaymentRecord, error) {
	err := db.QueryRowContext(ctx,
		`INSERT INTO payment_records (order_id, gateway_session_id, gateway_payment_intent, amount_minor, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		record.OrderID, record.GatewaySessionID, record.GatewayPaymentIntent,
		record.AmountMinor, record.Currency, record.Status).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment record: %w", err)
	}

	return record, nil
}

func CountPaymentRecords(ctx context.Context, db *sql.DB, orderID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_records WHERE order_id = $1`,
		orderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payment records: %w", err)
	}

	return count, nil
}

func AppendStatusHistory(ctx context.Context, db *sql.DB, orderID int64, fromStatus, toStatus, note string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, from_status, to_status, note, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		orderID, fromStatus, toStatus, note)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	return nil
}
