package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/config"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	startErr  error
	order     *[]string
}

func (f *fakeDependency) GetName() string { return f.name }
func (f *fakeDependency) DependsOn() []string { return f.dependsOn }

func (f *fakeDependency) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.order = append(*f.order, "start:"+f.name)
	return nil
}

func (f *fakeDependency) Stop(ctx context.Context) error {
	*f.order = append(*f.order, "stop:"+f.name)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartupOrdersByDependency(t *testing.T) {
	order := []string{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&fakeDependency{name: "consumers", dependsOn: []string{"database", "redis"}, order: &order})
	s.AddDependency(&fakeDependency{name: "database", order: &order})
	s.AddDependency(&fakeDependency{name: "redis", order: &order})

	err := s.Start(context.Background())
	require.NoError(t, err)

	idx := func(name string) int {
		for i, entry := range order {
			if entry == "start:"+name {
				return i
			}
		}
		return -1
	}

	assert.Len(t, order, 3)
	assert.Less(t, idx("database"), idx("consumers"))
	assert.Less(t, idx("redis"), idx("consumers"))
}

func TestStartupRetriesThenFails(t *testing.T) {
	order := []string{}
	s := NewStartup(testLogger(), 2)
	s.AddDependency(&fakeDependency{name: "database", startErr: errors.New("connection refused"), order: &order})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestStartupUnknownUpstream(t *testing.T) {
	order := []string{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&fakeDependency{name: "consumers", dependsOn: []string{"database"}, order: &order})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dependency")
}

func TestStopHaltsDependentsBeforeUpstreams(t *testing.T) {
	order := []string{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&fakeDependency{name: "database", order: &order})
	s.AddDependency(&fakeDependency{name: "consumers", dependsOn: []string{"database"}, order: &order})

	require.NoError(t, s.Start(context.Background()))

	order = order[:0]
	require.NoError(t, s.Stop(context.Background()))

	require.Len(t, order, 2)
	assert.Equal(t, "stop:consumers", order[0])
	assert.Equal(t, "stop:database", order[1])
}

func TestBuildAssemblesGraph(t *testing.T) {
	cfg := config.Config{
		StartupMaxAttempts:   1,
		RedisEnabled:         true,
		KafkaConsumerEnabled: true,
	}

	s := Build(cfg, testLogger())

	names := make([]string, 0, len(s.dependencies))
	for name := range s.dependencies {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"database", "redis", "consumers", "server"}, names)

	consumers := s.dependencies["consumers"]
	assert.ElementsMatch(t, []string{"database", "redis"}, consumers.DependsOn())

	// The server checks both backends, so it must come up after them
	server := s.dependencies["server"]
	assert.ElementsMatch(t, []string{"database", "redis"}, server.DependsOn())
}
