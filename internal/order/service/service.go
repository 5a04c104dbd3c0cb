package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	"github.com/smallbiznis/fastbillsync/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

// Service adapts the host tables to the order Store and Catalog contracts.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

var (
	_ domain.Store   = (*Service)(nil)
	_ domain.Catalog = (*Service)(nil)
)

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidOrderID
	}
	record, err := s.repo.FindOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return record.ToOrder(items), nil
}

// CreateOrder stores an order with its items. The host normally owns these
// rows; this is used by seeding tools and tests.
func (s *Service) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID <= 0 {
		return domain.ErrInvalidOrderID
	}
	now := s.clock.Now()
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	record := &domain.OrderRecord{
		ID:           order.ID,
		Status:       string(order.Status),
		Gateway:      order.Gateway,
		Currency:     order.Currency,
		DiscountCode: order.DiscountCode,
		Buyer:        datatypes.NewJSONType(order.Buyer),
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
	items := make([]domain.OrderItemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.OrderItemRecord{
			ProductID: item.ProductID,
			PriceID:   item.PriceID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
			Discount:  item.Discount,
			IsRenewal: item.IsRenewal,
		})
	}
	return s.repo.InsertOrder(ctx, s.db, record, items)
}

func (s *Service) GetMeta(ctx context.Context, orderID int64, key string) (string, error) {
	meta, err := s.repo.GetMeta(ctx, s.db, orderID, key)
	if err != nil {
		return "", err
	}
	if meta == nil {
		return "", nil
	}
	return meta.MetaValue, nil
}

func (s *Service) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	if orderID <= 0 {
		return domain.ErrInvalidOrderID
	}
	return s.repo.UpsertMeta(ctx, s.db, &domain.OrderMeta{
		OrderID:   orderID,
		MetaKey:   key,
		MetaValue: value,
		UpdatedAt: s.clock.Now(),
	})
}

func (s *Service) DeleteMeta(ctx context.Context, orderID int64, key string) error {
	return s.repo.DeleteMeta(ctx, s.db, orderID, key)
}

func (s *Service) AddNote(ctx context.Context, orderID int64, note string) error {
	if orderID <= 0 {
		return domain.ErrInvalidOrderID
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return s.repo.InsertNote(ctx, s.db, &domain.OrderNote{
		ID:        s.genID.Generate().Int64(),
		OrderID:   orderID,
		Note:      note,
		CreatedAt: s.clock.Now(),
	})
}

func (s *Service) ListNotes(ctx context.Context, orderID int64) ([]string, error) {
	notes, err := s.repo.ListNotes(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(notes))
	for _, note := range notes {
		out = append(out, note.Note)
	}
	return out, nil
}

func (s *Service) ProductTitle(ctx context.Context, productID int64) (string, error) {
	product, err := s.repo.FindProduct(ctx, s.db, productID)
	if err != nil {
		return "", fmt.Errorf("find product %d: %w", productID, err)
	}
	if product == nil {
		return "", nil
	}
	return product.Title, nil
}

func (s *Service) PriceOptionName(ctx context.Context, productID, priceID int64) (string, error) {
	option, err := s.repo.FindPriceOption(ctx, s.db, productID, priceID)
	if err != nil {
		return "", fmt.Errorf("find price option %d/%d: %w", productID, priceID, err)
	}
	if option == nil {
		return "", nil
	}
	return option.Name, nil
}

// TaxRate returns zero for countries without a configured rate.
func (s *Service) TaxRate(ctx context.Context, country, state string) (decimal.Decimal, error) {
	rate, ok, err := s.repo.FindTaxRate(ctx, s.db, country, state)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		s.log.Debug("no tax rate configured", zap.String("country", country), zap.String("state", state))
		return decimal.Zero, nil
	}
	return rate, nil
}
