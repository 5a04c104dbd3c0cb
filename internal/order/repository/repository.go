package repository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/order/domain"
	"github.com/smallbiznis/fastbillsync/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindOrder(ctx context.Context, conn *gorm.DB, id int64) (*domain.OrderRecord, error) {
	var record domain.OrderRecord
	err := conn.WithContext(ctx).Raw(
		`SELECT id, status, gateway, currency, discount_code, buyer, created_at, updated_at
		 FROM orders WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListItems(ctx context.Context, conn *gorm.DB, orderID int64) ([]domain.OrderItemRecord, error) {
	var items []domain.OrderItemRecord
	err := conn.WithContext(ctx).Raw(
		`SELECT id, order_id, position, product_id, price_id, name, quantity, subtotal, discount, is_renewal
		 FROM order_items WHERE order_id = ? ORDER BY position ASC, id ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertOrder(ctx context.Context, conn *gorm.DB, order *domain.OrderRecord, items []domain.OrderItemRecord) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			items[i].Position = i
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *repo) GetMeta(ctx context.Context, conn *gorm.DB, orderID int64, key string) (*domain.OrderMeta, error) {
	var meta domain.OrderMeta
	err := conn.WithContext(ctx).Raw(
		`SELECT order_id, meta_key, meta_value, updated_at
		 FROM order_meta WHERE order_id = ? AND meta_key = ?`,
		orderID,
		key,
	).Scan(&meta).Error
	if err != nil {
		return nil, err
	}
	if meta.OrderID == 0 {
		return nil, nil
	}
	return &meta, nil
}

// UpsertMeta updates the key in place and inserts it when missing.
func (r *repo) UpsertMeta(ctx context.Context, conn *gorm.DB, meta *domain.OrderMeta) error {
	update := func() *gorm.DB {
		return conn.WithContext(ctx).Exec(
			`UPDATE order_meta SET meta_value = ?, updated_at = ? WHERE order_id = ? AND meta_key = ?`,
			meta.MetaValue,
			meta.UpdatedAt,
			meta.OrderID,
			meta.MetaKey,
		)
	}

	res := update()
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	err := conn.WithContext(ctx).Exec(
		`INSERT INTO order_meta (order_id, meta_key, meta_value, updated_at) VALUES (?, ?, ?, ?)`,
		meta.OrderID,
		meta.MetaKey,
		meta.MetaValue,
		meta.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return update().Error
	}
	return err
}

func (r *repo) DeleteMeta(ctx context.Context, conn *gorm.DB, orderID int64, key string) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM order_meta WHERE order_id = ? AND meta_key = ?`,
		orderID,
		key,
	).Error
}

func (r *repo) InsertNote(ctx context.Context, conn *gorm.DB, note *domain.OrderNote) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO order_notes (id, order_id, note, created_at) VALUES (?, ?, ?, ?)`,
		note.ID,
		note.OrderID,
		note.Note,
		note.CreatedAt,
	).Error
}

func (r *repo) ListNotes(ctx context.Context, conn *gorm.DB, orderID int64) ([]domain.OrderNote, error) {
	var notes []domain.OrderNote
	err := conn.WithContext(ctx).Raw(
		`SELECT id, order_id, note, created_at FROM order_notes WHERE order_id = ? ORDER BY id ASC`,
		orderID,
	).Scan(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repo) FindProduct(ctx context.Context, conn *gorm.DB, id int64) (*domain.Product, error) {
	var product domain.Product
	err := conn.WithContext(ctx).Raw(
		`SELECT id, title FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindPriceOption(ctx context.Context, conn *gorm.DB, productID, priceID int64) (*domain.ProductPriceOption, error) {
	var option domain.ProductPriceOption
	err := conn.WithContext(ctx).Raw(
		`SELECT product_id, price_id, name FROM product_price_options WHERE product_id = ? AND price_id = ?`,
		productID,
		priceID,
	).Scan(&option).Error
	if err != nil {
		return nil, err
	}
	if option.ProductID == 0 {
		return nil, nil
	}
	return &option, nil
}

// FindTaxRate prefers a state specific rate over the country wide one.
func (r *repo) FindTaxRate(ctx context.Context, conn *gorm.DB, country, state string) (decimal.Decimal, bool, error) {
	var rows []domain.TaxRate
	err := conn.WithContext(ctx).Raw(
		`SELECT country, state, rate FROM tax_rates
		 WHERE country = ? AND (state = ? OR state = '')
		 ORDER BY state DESC`,
		strings.ToUpper(strings.TrimSpace(country)),
		strings.TrimSpace(state),
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(rows) == 0 {
		return decimal.Zero, false, nil
	}
	return rows[0].Rate, true, nil
}
