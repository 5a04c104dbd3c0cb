package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/integration"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	"github.com/smallbiznis/fastbillsync/internal/observability"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	"github.com/smallbiznis/fastbillsync/internal/order"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	"github.com/smallbiznis/fastbillsync/internal/settings"
	"github.com/smallbiznis/fastbillsync/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fastbillctl",
		Short: "Operate the FastBill order sync",
		Long: `fastbillctl runs the admin actions of the FastBill integration against
the host store configured in the environment (see .env).

Settings are read from the same source the service uses, so commands
behave exactly like the admin API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTemplatesCmd(),
		newInvoiceCmd(),
		newLogCmd(),
		newMigrateCmd(),
		newEventCmd(),
	)
	return root
}

// runtime is the wired integration a command works with.
type runtime struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	orders      orderdomain.Store
	dispatcher  *events.Dispatcher
	integration *integration.Integration
}

type runtimeParams struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Orders      orderdomain.Store
	Dispatcher  *events.Dispatcher
	Integration *integration.Integration
}

// withRuntime starts the integration without the HTTP server or the NATS
// subscriber, runs fn and stops it again.
func withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) error {
	var rt *runtime
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		// Command output owns stdout.
		fx.Decorate(func(c obslogger.Config) obslogger.Config {
			c.OutputPaths = []string{"stderr"}
			return c
		}),
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.NodeID)
		}),
		db.Module,
		clock.Module,
		order.Module,
		settings.Module,
		fastbill.Module,
		fx.Provide(events.NewDispatcher),
		integration.Module,
		fx.Invoke(func(p runtimeParams) {
			rt = &runtime{
				cfg:         p.Config,
				db:          p.DB,
				log:         p.Log,
				orders:      p.Orders,
				dispatcher:  p.Dispatcher,
				integration: p.Integration,
			}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()
	return fn(ctx, rt)
}

func (rt *runtime) manager() (invoicedomain.Manager, error) {
	manager, err := rt.integration.Manager()
	if err != nil {
		return nil, fmt.Errorf("%w: set fastbill_email and fastbill_api_key", err)
	}
	return manager, nil
}

func (rt *runtime) order(ctx context.Context, raw string) (*orderdomain.Order, error) {
	id, err := parseOrderID(raw)
	if err != nil {
		return nil, err
	}
	return rt.orders.GetOrder(ctx, id)
}

func parseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
