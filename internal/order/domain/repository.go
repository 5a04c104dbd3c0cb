package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	FindOrder(ctx context.Context, db *gorm.DB, id int64) (*OrderRecord, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID int64) ([]OrderItemRecord, error)
	InsertOrder(ctx context.Context, db *gorm.DB, order *OrderRecord, items []OrderItemRecord) error

	GetMeta(ctx context.Context, db *gorm.DB, orderID int64, key string) (*OrderMeta, error)
	UpsertMeta(ctx context.Context, db *gorm.DB, meta *OrderMeta) error
	DeleteMeta(ctx context.Context, db *gorm.DB, orderID int64, key string) error

	InsertNote(ctx context.Context, db *gorm.DB, note *OrderNote) error
	ListNotes(ctx context.Context, db *gorm.DB, orderID int64) ([]OrderNote, error)

	FindProduct(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindPriceOption(ctx context.Context, db *gorm.DB, productID, priceID int64) (*ProductPriceOption, error)
	FindTaxRate(ctx context.Context, db *gorm.DB, country, state string) (decimal.Decimal, bool, error)
}
