package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsConfig NATS 发布配置
type NatsConfig struct {
	Servers       []string      `mapstructure:"servers"`
	Name          string        `mapstructure:"name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Subject       string        `mapstructure:"subject"` // 实际 subject 为 <Subject>.<kind>
	JetStream     bool          `mapstructure:"jetstream"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Nats core 发布；开启 JetStream 时带 Nats-Msg-Id 去重头并等待 ack
type Nats struct {
	cfg NatsConfig
	nc  *nats.Conn
	js  nats.JetStreamContext
}

// NewNats 连接 NATS
func NewNats(cfg NatsConfig) (*Nats, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.Subject == "" {
		cfg.Subject = "pbot.events"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	p := &Nats{cfg: cfg, nc: nc}
	if cfg.JetStream {
		if p.js, err = nc.JetStream(); err != nil {
			nc.Close()
			return nil, fmt.Errorf("init jetstream: %w", err)
		}
	}
	return p, nil
}

// buildMsg subject 带上事件类型，方便订阅方用通配符过滤
func buildMsg(prefix string, e Event) (*nats.Msg, error) {
	data, err := e.Encode()
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(prefix + "." + string(e.Kind))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	return msg, nil
}

func (p *Nats) Publish(ctx context.Context, e Event) error {
	msg, err := buildMsg(p.cfg.Subject, e)
	if err != nil {
		return err
	}
	if p.js != nil {
		if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Close 优雅关闭
func (p *Nats) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}
