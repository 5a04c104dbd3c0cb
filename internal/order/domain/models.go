package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderRecord is the host store row behind an Order.
type OrderRecord struct {
	ID           int64                     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Status       string                    `gorm:"type:varchar(32);not null;index" json:"status"`
	Gateway      string                    `gorm:"type:varchar(64)" json:"gateway"`
	Currency     string                    `gorm:"type:varchar(3)" json:"currency"`
	DiscountCode string                    `gorm:"type:varchar(128)" json:"discount_code"`
	Buyer        datatypes.JSONType[Buyer] `gorm:"type:json" json:"buyer"`
	CreatedAt    time.Time                 `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                 `gorm:"not null" json:"updated_at"`
}

func (OrderRecord) TableName() string { return "orders" }

type OrderItemRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"order_id"`
	Position  int             `gorm:"not null" json:"position"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	PriceID   *int64          `json:"price_id,omitempty"`
	Name      string          `gorm:"type:varchar(255)" json:"name"`
	Quantity  int64           `gorm:"not null;default:1" json:"quantity"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"subtotal"`
	Discount  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"discount"`
	IsRenewal bool            `gorm:"not null;default:false" json:"is_renewal"`
}

func (OrderItemRecord) TableName() string { return "order_items" }

type OrderMeta struct {
	OrderID   int64     `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	MetaKey   string    `gorm:"primaryKey;type:varchar(191)" json:"meta_key"`
	MetaValue string    `gorm:"type:text" json:"meta_value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (OrderMeta) TableName() string { return "order_meta" }

type OrderNote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	Note      string    `gorm:"type:text;not null" json:"note"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (OrderNote) TableName() string { return "order_notes" }

type Product struct {
	ID    int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title string `gorm:"type:varchar(255);not null" json:"title"`
}

func (Product) TableName() string { return "products" }

type ProductPriceOption struct {
	ProductID int64  `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	PriceID   int64  `gorm:"primaryKey;autoIncrement:false" json:"price_id"`
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
}

func (ProductPriceOption) TableName() string { return "product_price_options" }

// TaxRate rows with an empty State apply to the whole country.
type TaxRate struct {
	Country string          `gorm:"primaryKey;type:varchar(2)" json:"country"`
	State   string          `gorm:"primaryKey;type:varchar(64);default:''" json:"state"`
	Rate    decimal.Decimal `gorm:"type:numeric(8,6);not null" json:"rate"`
}

func (TaxRate) TableName() string { return "tax_rates" }

// Models lists the host tables for AutoMigrate on non-postgres dialects and
// in tests.
func Models() []any {
	return []any{
		&OrderRecord{},
		&OrderItemRecord{},
		&OrderMeta{},
		&OrderNote{},
		&Product{},
		&ProductPriceOption{},
		&TaxRate{},
	}
}

func (r OrderRecord) ToOrder(items []OrderItemRecord) *Order {
	order := &Order{
		ID:           r.ID,
		Buyer:        r.Buyer.Data(),
		DiscountCode: r.DiscountCode,
		Currency:     r.Currency,
		CreatedAt:    r.CreatedAt,
		Gateway:      r.Gateway,
		Status:       ParseStatus(r.Status),
		Items:        make([]LineItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, LineItem{
			ProductID: item.ProductID,
			PriceID:   item.PriceID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
			Discount:  item.Discount,
			IsRenewal: item.IsRenewal,
		})
	}
	return order
}
