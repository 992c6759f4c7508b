package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	registry, err := NewRegistry(namedJob("a"), namedJob("b"))
	require.NoError(t, err)
	require.NoError(t, registry.Register(namedJob("c")))

	jobs := registry.Jobs()
	require.Equal(t, []Job{namedJob("a"), namedJob("b"), namedJob("c")}, jobs)

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndBlanks(t *testing.T) {
	_, err := NewRegistry(namedJob("a"), namedJob("a"))
	require.ErrorContains(t, err, `"a" already registered`)

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(namedJob("")))
}
