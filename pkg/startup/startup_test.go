package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	failures  int // Start fails this many times before succeeding
	stopErr   error
	log       *[]string
}

func (d *fakeDependency) GetName() string     { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(context.Context) error {
	if d.failures > 0 {
		d.failures--
		return errors.New("not reachable")
	}
	*d.log = append(*d.log, "start "+d.name)
	return nil
}

func (d *fakeDependency) Stop(context.Context) error {
	*d.log = append(*d.log, "stop "+d.name)
	return d.stopErr
}

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), maxAttempts)
	s.SetBackoffUnit(time.Millisecond)
	return s
}

func TestStartup_DependencyOrder(t *testing.T) {
	var log []string
	s := newTestStartup(1)
	s.AddDependency(&fakeDependency{name: "http", dependsOn: []string{"consumer"}, log: &log})
	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"producer"}, log: &log})
	s.AddDependency(&fakeDependency{name: "producer", log: &log})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start producer", "start consumer", "start http"}, log)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	log = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop http", "stop consumer", "stop producer"}, log)
	assert.Equal(t, StartupStatusStopped, s.Status("producer"))
}

func TestStartup_Retry(t *testing.T) {
	var log []string
	s := newTestStartup(3)
	s.AddDependency(&fakeDependency{name: "producer", log: &log})
	s.AddDependency(&fakeDependency{name: "consumer", failures: 2, log: &log})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start producer", "start consumer"}, log)
}

func TestStartup_Failures(t *testing.T) {
	t.Run("gives up after max attempts", func(t *testing.T) {
		var log []string
		s := newTestStartup(2)
		s.AddDependency(&fakeDependency{name: "consumer", failures: 5, log: &log})

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Equal(t, StartupStatusFailed, s.Status("consumer"))
	})

	t.Run("unknown dependency", func(t *testing.T) {
		var log []string
		s := newTestStartup(1)
		s.AddDependency(&fakeDependency{name: "http", dependsOn: []string{"db"}, log: &log})
		assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'db'")
	})

	t.Run("cycle", func(t *testing.T) {
		var log []string
		s := newTestStartup(1)
		s.AddDependency(&fakeDependency{name: "a", dependsOn: []string{"b"}, log: &log})
		s.AddDependency(&fakeDependency{name: "b", dependsOn: []string{"a"}, log: &log})
		assert.ErrorContains(t, s.Start(context.Background()), "cycle")
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		var log []string
		s := newTestStartup(3)
		s.SetBackoffUnit(time.Hour)
		s.AddDependency(&fakeDependency{name: "consumer", failures: 5, log: &log})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
	})

	t.Run("stop continues past errors", func(t *testing.T) {
		var log []string
		s := newTestStartup(1)
		s.AddDependency(&fakeDependency{name: "producer", log: &log})
		s.AddDependency(&fakeDependency{name: "consumer", stopErr: errors.New("stuck"), log: &log})
		require.NoError(t, s.Start(context.Background()))

		log = nil
		err := s.Stop(context.Background())
		assert.ErrorContains(t, err, "stuck")
		assert.Equal(t, []string{"stop consumer", "stop producer"}, log)
	})
}
