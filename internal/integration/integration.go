package integration

import (
	"context"
	"errors"
	"strings"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	"github.com/smallbiznis/fastbillsync/internal/config"
	customerservice "github.com/smallbiznis/fastbillsync/internal/customer/service"
	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/fastbillsync/internal/invoice/service"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	"github.com/smallbiznis/fastbillsync/internal/settings"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/smallbiznis/fastbillsync/internal/settings/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("integration_not_configured")

const redisKeyPrefix = "fastbillsync:"

// Components is one fully wired integration built from a settings snapshot.
type Components struct {
	Settings settingsdomain.Settings
	Debug    *debuglog.Logger
	Client   *fastbill.Client
	Resolver *customerservice.Service
	Manager  *invoiceservice.Service
	Binder   *events.Binder
}

type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle `optional:"true"`
	Config     config.Config
	Source     settingsdomain.Source
	Watcher    settings.Watcher `optional:"true"`
	Options    *repository.OptionStore
	Factory    *fastbill.Factory
	Orders     orderdomain.Store
	Catalog    orderdomain.Catalog
	Emails     orderdomain.EmailValidator
	Dispatcher *events.Dispatcher
	Clock      clock.Clock `optional:"true"`
	Log        *zap.Logger
}

// Integration owns the current Components. A failed build leaves the
// dispatcher without bindings so host events become no-ops.
type Integration struct {
	cfg        config.Config
	source     settingsdomain.Source
	factory    *fastbill.Factory
	orders     orderdomain.Store
	catalog    orderdomain.Catalog
	emails     orderdomain.EmailValidator
	dispatcher *events.Dispatcher
	clock      clock.Clock
	log        *zap.Logger

	debugStore debuglog.Store
	redis      *redis.Client

	mu      sync.RWMutex
	current *Components
}

func New(p Params) *Integration {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	i := &Integration{
		cfg:        p.Config,
		source:     p.Source,
		factory:    p.Factory,
		orders:     p.Orders,
		catalog:    p.Catalog,
		emails:     p.Emails,
		dispatcher: p.Dispatcher,
		clock:      clk,
		log:        p.Log.Named("integration"),
	}
	i.debugStore = i.newDebugStore(p.Options)

	if p.Watcher != nil {
		p.Watcher.OnChange(func(values map[string]string) {
			_ = i.ApplyValues(context.Background(), values)
		})
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// A misconfigured integration must not stop the host.
				_ = i.Apply(ctx)
				return nil
			},
			OnStop: func(context.Context) error {
				if i.redis != nil {
					return i.redis.Close()
				}
				return nil
			},
		})
	}
	return i
}

func (i *Integration) newDebugStore(options *repository.OptionStore) debuglog.Store {
	if i.cfg.LogStore != config.LogStoreRedis {
		return options
	}
	addr := strings.TrimSpace(i.cfg.RedisAddr)
	if addr == "" {
		i.log.Warn("redis debug log store requested without REDIS_ADDR, using options table")
		return options
	}
	i.redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(i.cfg.RedisPassword),
		DB:       i.cfg.RedisDB,
	})
	return debuglog.NewRedisStore(i.redis, redisKeyPrefix)
}

// Apply loads the settings source and rebuilds the integration.
func (i *Integration) Apply(ctx context.Context) error {
	values, err := i.source.Load(ctx)
	if err != nil {
		i.log.Error("load settings failed", zap.Error(err))
		i.disable()
		return err
	}
	return i.ApplyValues(ctx, values)
}

func (i *Integration) ApplyValues(_ context.Context, values map[string]string) error {
	components, err := i.Build(settingsdomain.Parse(values))
	if err != nil {
		i.log.Error("fastbill integration not configured, no event bindings registered", zap.Error(err))
		i.disable()
		return err
	}

	i.mu.Lock()
	i.current = components
	i.mu.Unlock()
	i.dispatcher.Replace(components.Binder.Bindings())
	i.log.Info("fastbill integration configured",
		zap.Bool("auto_invoice", components.Settings.AutoInvoice),
		zap.String("invoice_status", string(components.Settings.InvoiceStatus)),
	)
	return nil
}

func (i *Integration) disable() {
	i.dispatcher.Reset()
	i.mu.Lock()
	i.current = nil
	i.mu.Unlock()
}

// Build wires every component for s. Missing credentials fail the build.
func (i *Integration) Build(s settingsdomain.Settings) (*Components, error) {
	debug := debuglog.New(i.debugStore, s.DebugLog, i.log, debuglog.WithClock(i.clock))

	client, err := i.factory.NewClient(fastbill.Credentials{Email: s.AccountEmail, APIKey: s.APIKey}, debug)
	if err != nil {
		return nil, err
	}

	resolver := customerservice.New(customerservice.Params{
		Client:   client,
		Debug:    debug,
		Log:      i.log,
		Settings: s,
	})
	manager := invoiceservice.New(invoiceservice.Params{
		Client:           client,
		Resolver:         resolver,
		Store:            i.orders,
		Catalog:          i.catalog,
		Emails:           i.emails,
		Debug:            debug,
		Log:              i.log,
		Clock:            i.clock,
		Settings:         s,
		TemplateCacheTTL: i.cfg.FastBill.TemplateCacheTTL,
	})
	binder := events.NewBinder(events.BinderParams{
		Manager:  manager,
		Orders:   i.orders,
		Settings: s,
		Log:      i.log,
	})

	return &Components{
		Settings: s,
		Debug:    debug,
		Client:   client,
		Resolver: resolver,
		Manager:  manager,
		Binder:   binder,
	}, nil
}

func (i *Integration) Current() (*Components, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.current, i.current != nil
}

func (i *Integration) Manager() (invoicedomain.Manager, error) {
	components, ok := i.Current()
	if !ok {
		return nil, ErrNotConfigured
	}
	return components.Manager, nil
}

// DebugLog returns the debug log even when the integration is not
// configured, so it can still be read and cleared.
func (i *Integration) DebugLog() *debuglog.Logger {
	if components, ok := i.Current(); ok {
		return components.Debug
	}
	return debuglog.New(i.debugStore, false, i.log)
}

func (i *Integration) Dispatcher() *events.Dispatcher {
	return i.dispatcher
}

func (i *Integration) Orders() orderdomain.Store {
	return i.orders
}
