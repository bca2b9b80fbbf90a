package servicediscover

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"studiodesk/pkg/config"

	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("servicediscover",
	fx.Provide(NewClient, NewRegistry),
	fx.Invoke(register),
)

// Options registers with Consul only when CONSUL_HTTP_ADDR is set.
func Options() fx.Option {
	if _, ok := os.LookupEnv("CONSUL_HTTP_ADDR"); !ok {
		return fx.Options()
	}
	return Module
}

type ServiceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
}

// Agent is the subset of the consul agent API the registry uses.
type Agent interface {
	ServiceRegister(*api.AgentServiceRegistration) error
	ServiceDeregister(string) error
}

func NewClient() (*api.Client, error) {
	// DefaultConfig honours CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN.
	return api.NewClient(api.DefaultConfig())
}

type ConsulRegistry struct {
	agent   Agent
	service *api.AgentServiceRegistration
}

func NewRegistry(cfg *config.Config, client *api.Client) (ServiceRegistry, error) {
	return newConsulRegistry(cfg, client.Agent())
}

func newConsulRegistry(cfg *config.Config, agent Agent) (*ConsulRegistry, error) {
	port, err := strconv.Atoi(cfg.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("http port %q: %w", cfg.Server.Addr, err)
	}

	host := cfg.Consul.ServiceHost
	if host == "" {
		if host, err = os.Hostname(); err != nil {
			return nil, err
		}
	}

	scheme := "http"
	if cfg.TLS.Enable {
		scheme = "https"
	}

	return &ConsulRegistry{
		agent: agent,
		service: &api.AgentServiceRegistration{
			ID:      fmt.Sprintf("%s-%s-%d", cfg.AppName, host, port),
			Name:    cfg.AppName,
			Address: host,
			Port:    port,
			Tags:    []string{cfg.AppEnv, cfg.AppVersion},
			Check: &api.AgentServiceCheck{
				HTTP:                           fmt.Sprintf("%s://%s:%d/readyz", scheme, host, port),
				TLSSkipVerify:                  cfg.TLS.Enable,
				Interval:                       "10s",
				Timeout:                        "5s",
				DeregisterCriticalServiceAfter: "1m",
			},
		},
	}, nil
}

func (r *ConsulRegistry) Register(context.Context) error {
	return r.agent.ServiceRegister(r.service)
}

func (r *ConsulRegistry) Deregister(context.Context) error {
	return r.agent.ServiceDeregister(r.service.ID)
}

func register(lc fx.Lifecycle, reg ServiceRegistry) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := reg.Register(ctx); err != nil {
				zap.L().Error("consul registration failed", zap.Error(err))
				return err
			}
			zap.L().Info("registered with consul")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return reg.Deregister(ctx)
		},
	})
}
