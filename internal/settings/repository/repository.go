package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/smallbiznis/fastbillsync/pkg/db"
	"gorm.io/gorm"
)

// OptionStore reads and writes the host options table. It is both the
// settings source and the default debug log store.
type OptionStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOptionStore(conn *gorm.DB) *OptionStore {
	return &OptionStore{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

var _ domain.Source = (*OptionStore)(nil)

func (s *OptionStore) Load(ctx context.Context) (map[string]string, error) {
	var rows []domain.Option
	err := s.db.WithContext(ctx).Raw(`SELECT name, value, updated_at FROM options`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}
	return values, nil
}

func (s *OptionStore) GetOption(ctx context.Context, name string) (string, error) {
	return getOption(ctx, s.db, name)
}

func (s *OptionStore) SetOption(ctx context.Context, name, value string) error {
	return setOption(ctx, s.db, name, value, s.now())
}

// AppendOption concatenates value onto the stored text inside one
// transaction.
func (s *OptionStore) AppendOption(ctx context.Context, name, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getOption(ctx, tx, name)
		if err != nil {
			return err
		}
		return setOption(ctx, tx, name, current+value, s.now())
	})
}

func (s *OptionStore) DeleteOption(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Exec(`DELETE FROM options WHERE name = ?`, name).Error
}

func getOption(ctx context.Context, conn *gorm.DB, name string) (string, error) {
	var row domain.Option
	err := conn.WithContext(ctx).Raw(
		`SELECT name, value, updated_at FROM options WHERE name = ?`,
		name,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func setOption(ctx context.Context, conn *gorm.DB, name, value string, at time.Time) error {
	update := func() *gorm.DB {
		return conn.WithContext(ctx).Exec(
			`UPDATE options SET value = ?, updated_at = ? WHERE name = ?`,
			value,
			at,
			name,
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
		`INSERT INTO options (name, value, updated_at) VALUES (?, ?, ?)`,
		name,
		value,
		at,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return update().Error
	}
	return err
}
