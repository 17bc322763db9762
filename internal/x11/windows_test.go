package x11

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersect(t *testing.T) {
	got, ok := intersect(Geometry{X: 0, Y: 0, Width: 100, Height: 100}, Geometry{X: 50, Y: 25, Width: 100, Height: 100})
	require.True(t, ok)
	assert.Equal(t, Geometry{X: 50, Y: 25, Width: 50, Height: 75}, got)

	_, ok = intersect(Geometry{Width: 10, Height: 10}, Geometry{X: 10, Width: 10, Height: 10})
	assert.False(t, ok, "touching edges do not intersect")
}

func TestCreateWindow(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("DISPLAY not set")
	}
	c, err := NewConnection()
	if err != nil {
		t.Skipf("no X server: %v", err)
	}
	defer c.Close()

	w, err := c.CreateWindow("winhost test", Geometry{X: 10, Y: 10, Width: 320, Height: 200}, WindowCallbacks{})
	require.NoError(t, err)
	assert.NotZero(t, w.ID())

	require.NoError(t, w.Destroy())
	assert.ErrorIs(t, w.Destroy(), ErrDestroyed)
}
