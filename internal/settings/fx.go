package settings

import (
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/smallbiznis/fastbillsync/internal/settings/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("settings",
	fx.Provide(repository.NewOptionStore),
	fx.Provide(NewSource),
)

// Watcher notifies about settings changes. Only the file source can change
// underneath a running process.
type Watcher interface {
	OnChange(fn func(map[string]string))
}

type SourceResult struct {
	fx.Out

	Source  domain.Source
	Watcher Watcher
}

func NewSource(cfg config.Config, store *repository.OptionStore, log *zap.Logger) (SourceResult, error) {
	if cfg.SettingsSource != config.SettingsSourceFile {
		return SourceResult{Source: store, Watcher: staticWatcher{}}, nil
	}

	holder, err := config.NewSettingsFileHolder(cfg.SettingsFile, log)
	if err != nil {
		return SourceResult{}, err
	}
	return SourceResult{Source: holder, Watcher: holder}, nil
}

type staticWatcher struct{}

func (staticWatcher) OnChange(func(map[string]string)) {}
