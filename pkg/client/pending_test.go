package client

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-worker/internal/models"
)

func TestPendingMap(t *testing.T) {
	p := newPendingMap()

	ch1, err := p.register(1, models.ActionPing)
	require.NoError(t, err)
	ch2, err := p.register(2, models.ActionGenerate)
	require.NoError(t, err)
	assert.Equal(t, 2, p.len())

	assert.False(t, p.resolve(models.NewPongResponse(7)))
	require.True(t, p.resolve(models.NewPongResponse(1)))
	res := <-ch1
	require.NoError(t, res.err)
	assert.Equal(t, models.StatusPong, res.resp.Status)

	_, err = p.register(3, models.ActionShutdown)
	require.NoError(t, err)
	p.unregister(3)
	assert.Equal(t, 1, p.len())

	boom := stderrors.New("stream closed")
	failed := p.failAll(boom)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].ID)
	assert.Equal(t, models.ActionGenerate, failed[0].Action)
	res = <-ch2
	assert.ErrorIs(t, res.err, boom)
	assert.Equal(t, 0, p.len())
}

func TestPendingMap_RegisterAfterFailAll(t *testing.T) {
	p := newPendingMap()
	boom := stderrors.New("stream closed")
	assert.Empty(t, p.failAll(boom))

	ch, err := p.register(1, models.ActionPing)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, ch)
	assert.Equal(t, 0, p.len())

	// Later failures do not replace the first cause.
	p.failAll(stderrors.New("second"))
	_, err = p.register(2, models.ActionPing)
	assert.ErrorIs(t, err, boom)
}

func TestPendingMap_FailAllOldestFirst(t *testing.T) {
	p := newPendingMap()
	_, err := p.register(1, models.ActionGenerate)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = p.register(2, models.ActionPing)
	require.NoError(t, err)

	failed := p.failAll(ErrClosed)
	require.Len(t, failed, 2)
	assert.Equal(t, 1, failed[0].ID)
	assert.Equal(t, 2, failed[1].ID)
	assert.GreaterOrEqual(t, failed[0].Age, failed[1].Age)
}
