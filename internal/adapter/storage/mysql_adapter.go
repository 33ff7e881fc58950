package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/port"
)

var (
	ErrOptimisticLock = port.ErrOptimisticLock
	ErrOrderNotFound  = port.ErrOrderNotFound
	ErrDuplicateOrder = port.ErrDuplicateOrder
)

const mysqlDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// RunMigrations applies every pending migration found under dir.
func RunMigrations(db *sql.DB, dir string) error {
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "mysql", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// CreateOrder writes the order header and its items in one transaction.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	customer, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshal customer info: %w", err)
	}
	financials, err := nullableJSON(order.Financials)
	if err != nil {
		return fmt.Errorf("marshal financials: %w", err)
	}
	proof, err := nullableJSON(order.PaymentProof)
	if err != nil {
		return fmt.Errorf("marshal payment proof: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, request_id, customer_info, payment_method, financials, payment_proof, status, status_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.RequestID, customer, order.PaymentMethod,
		financials, proof, order.Status, order.StatusNote, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		equipment, err := json.Marshal(item.Equipment)
		if err != nil {
			return fmt.Errorf("marshal equipment: %w", err)
		}
		custom, err := json.Marshal(item.Customization)
		if err != nil {
			return fmt.Errorf("marshal customization: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, equipment_id, equipment, quantity, price_at_purchase, customization)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			order.ID, i, item.Equipment.ID, equipment, item.Quantity, item.PriceAtPurchase, custom,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderColumns = `id, user_id, request_id, customer_info, payment_method, financials, payment_proof, status, status_note, created_at, updated_at`

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.loadItems(ctx, `WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	items, err := m.loadItems(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, status_note = ?, updated_at = NOW(6)
		WHERE id = ?`,
		status, note, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// MySQL reports 0 affected rows when nothing changed, so check existence
		var exists int
		err := m.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, orderID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("query order: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetEquipment(ctx context.Context, equipmentID string) (*domain.EquipmentItem, error) {
	item, err := scanEquipment(m.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, availability_status, image_urls, version, updated_at
		FROM equipment WHERE id = ?`, equipmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) ListEquipment(ctx context.Context) ([]domain.EquipmentItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, category, price, availability_status, image_urls, version, updated_at
		FROM equipment ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	items := []domain.EquipmentItem{}
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertEquipment inserts or fully replaces a catalog item. Used for seeding.
func (m *MySQLAdapter) UpsertEquipment(ctx context.Context, item domain.EquipmentItem) error {
	images, err := json.Marshal(item.ImageURLs)
	if err != nil {
		return fmt.Errorf("marshal image urls: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO equipment (id, name, category, price, availability_status, image_urls, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW(6))
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), category = VALUES(category), price = VALUES(price),
			availability_status = VALUES(availability_status), image_urls = VALUES(image_urls),
			version = version + 1, updated_at = NOW(6)`,
		item.ID, item.Name, item.Category, item.Price, item.AvailabilityStatus, images,
	)
	if err != nil {
		return fmt.Errorf("upsert equipment: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateEquipmentPrice(ctx context.Context, item domain.EquipmentItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE equipment
		SET price = ?, version = version + 1, updated_at = NOW(6)
		WHERE id = ? AND version = ?`,
		item.Price, item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var customer, financials, proof []byte
	err := row.Scan(&order.ID, &order.UserID, &order.RequestID, &customer, &order.PaymentMethod,
		&financials, &proof, &order.Status, &order.StatusNote, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	if err := json.Unmarshal(customer, &order.CustomerInfo); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal customer info: %w", err)
	}
	if len(financials) > 0 {
		order.Financials = &domain.OrderFinancials{}
		if err := json.Unmarshal(financials, order.Financials); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal financials: %w", err)
		}
	}
	if len(proof) > 0 {
		order.PaymentProof = &domain.PaymentProof{}
		if err := json.Unmarshal(proof, order.PaymentProof); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal payment proof: %w", err)
		}
	}
	return order, nil
}

// loadItems returns items keyed by order ID, in insertion order.
func (m *MySQLAdapter) loadItems(ctx context.Context, where string, args ...any) (map[string][]domain.OrderItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, equipment, quantity, price_at_purchase, customization
		FROM order_items `+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var (
			orderID           string
			equipment, custom []byte
			item              domain.OrderItem
		)
		if err := rows.Scan(&orderID, &equipment, &item.Quantity, &item.PriceAtPurchase, &custom); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if err := json.Unmarshal(equipment, &item.Equipment); err != nil {
			return nil, fmt.Errorf("unmarshal equipment: %w", err)
		}
		if err := json.Unmarshal(custom, &item.Customization); err != nil {
			return nil, fmt.Errorf("unmarshal customization: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func scanEquipment(row rowScanner) (domain.EquipmentItem, error) {
	var (
		item   domain.EquipmentItem
		images []byte
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.AvailabilityStatus,
		&images, &item.Version, &item.UpdatedAt)
	if err != nil {
		return domain.EquipmentItem{}, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &item.ImageURLs); err != nil {
			return domain.EquipmentItem{}, fmt.Errorf("unmarshal image urls: %w", err)
		}
	}
	return item, nil
}

func nullableJSON(v any) ([]byte, error) {
	switch p := v.(type) {
	case *domain.OrderFinancials:
		if p == nil {
			return nil, nil
		}
	case *domain.PaymentProof:
		if p == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
