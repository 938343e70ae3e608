package qorus

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPoolNewSessionIsIndependentPerCall(t *testing.T) {
	h := testHeader()
	path := writeSyntheticModel(t, h)
	mf, err := LoadModel(path)
	require.NoError(t, err)
	defer func() { _ = mf.Close() }()

	pool := NewSessionPool(mf, 2)

	s1, err := pool.NewSession(1)
	require.NoError(t, err)
	s2, err := pool.NewSession(1)
	require.NoError(t, err)

	assert.Same(t, mf, s1.File, "sessions share the pool's read-only ModelFile")
	assert.NotSame(t, s1.Arena, s2.Arena, "each session gets its own arena")
	assert.Equal(t, StateLoaded, s1.State())
}

func TestSessionPoolRunAllRunsEverySessionToCompletion(t *testing.T) {
	h := testHeader()
	path := writeSyntheticModel(t, h)
	mf, err := LoadModel(path)
	require.NoError(t, err)
	defer func() { _ = mf.Close() }()

	pool := NewSessionPool(mf, 2)

	var ran int32
	err = pool.RunAll(context.Background(), 5, 1, func(ctx context.Context, session *Model) error {
		assert.Equal(t, StateReady, session.State())
		atomic.AddInt32(&ran, 1)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, ran)
}

func TestSessionPoolRunAllPropagatesFirstError(t *testing.T) {
	h := testHeader()
	path := writeSyntheticModel(t, h)
	mf, err := LoadModel(path)
	require.NoError(t, err)
	defer func() { _ = mf.Close() }()

	pool := NewSessionPool(mf, 3)

	sentinel := wrapf(ErrInvalidArg, "boom")
	err = pool.RunAll(context.Background(), 4, 1, func(ctx context.Context, session *Model) error {
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArg)
}
