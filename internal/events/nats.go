package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/fastbillsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Subscriber feeds host events published on NATS into the dispatcher. The
// subject of each event is <prefix>.<event name>.
type Subscriber struct {
	conn       *nats.Conn
	prefix     string
	dispatcher *Dispatcher
	log        *zap.Logger
	subs       []*nats.Subscription
}

func NewSubscriber(conn *nats.Conn, prefix string, dispatcher *Dispatcher, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{
		conn:       conn,
		prefix:     strings.Trim(strings.TrimSpace(prefix), "."),
		dispatcher: dispatcher,
		log:        log.Named("events.nats"),
	}
}

func (s *Subscriber) Subject(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "." + name
}

func (s *Subscriber) Start() error {
	for _, name := range Names() {
		name := name
		sub, err := s.conn.Subscribe(s.Subject(name), func(msg *nats.Msg) {
			s.handle(name, msg)
		})
		if err != nil {
			s.Stop()
			return err
		}
		s.subs = append(s.subs, sub)
		s.log.Info("subscribed", zap.String("subject", sub.Subject))
	}
	return nil
}

func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Warn("unsubscribe failed", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	s.subs = nil
}

func (s *Subscriber) handle(name string, msg *nats.Msg) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		s.log.Warn("invalid event payload", zap.String("subject", msg.Subject), zap.Error(err))
		s.respond(msg, err)
		return
	}
	ev.Name = name

	err := s.dispatcher.Dispatch(context.Background(), ev)
	if err != nil {
		s.log.Warn("event rejected", zap.String("subject", msg.Subject), zap.Error(err))
	}
	s.respond(msg, err)
}

func (s *Subscriber) respond(msg *nats.Msg, err error) {
	if msg.Reply == "" {
		return
	}
	out := reply{OK: err == nil}
	if err != nil {
		out.Error = err.Error()
	}
	body, _ := json.Marshal(out)
	if err := msg.Respond(body); err != nil {
		s.log.Warn("reply failed", zap.Error(err))
	}
}

type natsParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Config
	Dispatcher *Dispatcher
	Log        *zap.Logger
}

// registerNATS connects on start when NATS_URL is set.
func registerNATS(p natsParams) {
	url := strings.TrimSpace(p.Config.NATSURL)
	if url == "" {
		p.Log.Info("nats disabled, NATS_URL not set")
		return
	}

	var (
		conn *nats.Conn
		sub  *Subscriber
	)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			conn, err = nats.Connect(url, nats.Name(p.Config.AppName))
			if err != nil {
				return err
			}
			sub = NewSubscriber(conn, p.Config.NATSSubjectPrefix, p.Dispatcher, p.Log)
			return sub.Start()
		},
		OnStop: func(context.Context) error {
			if sub != nil {
				sub.Stop()
			}
			if conn != nil {
				return conn.Drain()
			}
			return nil
		},
	})
}
