package servicediscover

import (
	"context"
	"testing"

	"studiodesk/pkg/config"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	registered   *api.AgentServiceRegistration
	deregistered string
}

func (f *fakeAgent) ServiceRegister(s *api.AgentServiceRegistration) error {
	f.registered = s
	return nil
}

func (f *fakeAgent) ServiceDeregister(id string) error {
	f.deregistered = id
	return nil
}

func TestConsulRegistry(t *testing.T) {
	cfg := config.Default()
	cfg.Consul.ServiceHost = "10.0.0.7"
	agent := &fakeAgent{}

	reg, err := newConsulRegistry(cfg, agent)
	require.NoError(t, err)

	require.NoError(t, reg.Register(context.Background()))
	require.Equal(t, "studiodesk-10.0.0.7-8080", agent.registered.ID)
	require.Equal(t, "http://10.0.0.7:8080/readyz", agent.registered.Check.HTTP)

	require.NoError(t, reg.Deregister(context.Background()))
	require.Equal(t, "studiodesk-10.0.0.7-8080", agent.deregistered)
}

func TestConsulRegistryRejectsBadPort(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "localhost:8080"

	_, err := newConsulRegistry(cfg, &fakeAgent{})
	require.Error(t, err)
}
