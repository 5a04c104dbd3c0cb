package fastbill

import (
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("fastbill",
	fx.Provide(NewFactory),
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Factory builds clients for a credential pair. Credentials live in the
// integration settings, so clients are built per settings snapshot.
type Factory struct {
	cfg     config.FastBillConfig
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewFactory(p Params) *Factory {
	return &Factory{cfg: p.Config.FastBill, log: p.Log, metrics: p.Metrics}
}

// NewClient returns ErrMissingCredentials when either credential is blank.
func (f *Factory) NewClient(creds Credentials, debug *debuglog.Logger) (*Client, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}
	transport := NewHTTPTransport(TransportConfig{
		Endpoint:    f.cfg.Endpoint,
		Timeout:     f.cfg.Timeout,
		Credentials: creds,
	}, debug)
	return NewClient(transport, f.log, f.metrics), nil
}
