package config

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const settingsKey = "settings"

// SettingsFileHolder serves the flat integration option map from a yml file
// and reloads it when the file changes.
type SettingsFileHolder struct {
	v       *viper.Viper
	current atomic.Value // holds map[string]string
	log     *zap.Logger

	mu        sync.Mutex
	listeners []func(map[string]string)
}

func NewSettingsFileHolder(path string, log *zap.Logger) (*SettingsFileHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fastbill")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/fastbillsync")
		v.AddConfigPath(".")
	}

	// FASTBILL_SETTINGS_<KEY> overrides a file value.
	v.SetEnvPrefix("FASTBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &SettingsFileHolder{v: v, log: log.Named("config.settings")}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.log.Warn("settings file not found, starting with empty settings")
		holder.current.Store(map[string]string{})
		return holder, nil
	}

	holder.current.Store(holder.snapshot())

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		values := holder.snapshot()
		holder.current.Store(values)
		holder.log.Info("settings reloaded", zap.String("file", e.Name), zap.Int("keys", len(values)))
		holder.notify(values)
	})

	return holder, nil
}

// Load returns a copy of the current option map.
func (h *SettingsFileHolder) Load(_ context.Context) (map[string]string, error) {
	return copyValues(h.current.Load().(map[string]string)), nil
}

// OnChange registers fn to run after every successful reload.
func (h *SettingsFileHolder) OnChange(fn func(map[string]string)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *SettingsFileHolder) notify(values map[string]string) {
	h.mu.Lock()
	listeners := append([]func(map[string]string){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(copyValues(values))
	}
}

func (h *SettingsFileHolder) snapshot() map[string]string {
	raw := h.v.GetStringMapString(settingsKey)
	values := make(map[string]string, len(raw))
	for key := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		values[key] = h.v.GetString(settingsKey + "." + key)
	}
	return values
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
