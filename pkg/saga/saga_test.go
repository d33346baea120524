package saga_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/pkg/saga"
)

func recorder(log *[]string, name string) func(context.Context) error {
	return func(context.Context) error {
		*log = append(*log, name)
		return nil
	}
}

func TestSaga_TodoExitoso(t *testing.T) {
	var log []string
	s := saga.New().
		AddStep("a", recorder(&log, "a"), recorder(&log, "undo-a")).
		AddStep("b", recorder(&log, "b"), recorder(&log, "undo-b"))

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, []string{"a", "b"}, s.Executed())
}

func TestSaga_CompensaEnOrdenInverso(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	var compensated []string
	s := saga.New().
		AddStep("a", recorder(&log, "a"), recorder(&log, "undo-a")).
		AddStep("b", recorder(&log, "b"), nil).
		AddStep("c", recorder(&log, "c"), recorder(&log, "undo-c")).
		AddStep("d", func(context.Context) error { return boom }, recorder(&log, "undo-d"))
	s.OnCompensate = func(step string, err error) { compensated = append(compensated, step) }

	err := s.Execute(context.Background())
	assert.Same(t, boom, err, "devuelve el error del paso sin envolver")
	assert.Equal(t, []string{"a", "b", "c", "undo-c", "undo-a"}, log)
	assert.Equal(t, []string{"c", "b", "a"}, compensated)
	assert.Empty(t, s.Executed())
}

func TestSaga_CancelacionCompensa(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	s := saga.New().
		AddStep("a", func(context.Context) error { log = append(log, "a"); cancel(); return nil }, recorder(&log, "undo-a")).
		AddStep("b", recorder(&log, "b"), nil)

	err := s.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "undo-a"}, log)
}
