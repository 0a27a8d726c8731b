package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelPath(t *testing.T) {
	t.Run("accepts simple relative paths", func(t *testing.T) {
		p, err := NewRelPath("src/main.py")
		require.NoError(t, err)
		assert.Equal(t, "src/main.py", p.String())
		assert.Equal(t, "main.py", p.Name())
		assert.Equal(t, "src", p.Dir())
	})

	t.Run("normalizes backslashes and dot segments", func(t *testing.T) {
		p, err := NewRelPath(`src\lib\..\main.py`)
		require.NoError(t, err)
		assert.Equal(t, "src/main.py", p.String())
	})

	t.Run("rejects empty paths", func(t *testing.T) {
		_, err := NewRelPath("   ")
		assert.Error(t, err)
	})

	t.Run("rejects absolute paths", func(t *testing.T) {
		_, err := NewRelPath("/etc/passwd")
		assert.Error(t, err)
	})

	t.Run("rejects root escapes", func(t *testing.T) {
		for _, p := range []string{"..", "../sibling.py", "src/../../escape.py"} {
			_, err := NewRelPath(p)
			assert.Error(t, err, "path %q must be rejected", p)
		}
	})
}

func TestRelPathWithName(t *testing.T) {
	p, err := NewRelPath("src/main.py")
	require.NoError(t, err)

	t.Run("replaces only the final segment", func(t *testing.T) {
		renamed, err := p.WithName("app.py")
		require.NoError(t, err)
		assert.Equal(t, "src/app.py", renamed.String())
	})

	t.Run("works for root-level files", func(t *testing.T) {
		root, err := NewRelPath("README.md")
		require.NoError(t, err)
		renamed, err := root.WithName("NOTES.md")
		require.NoError(t, err)
		assert.Equal(t, "NOTES.md", renamed.String())
	})

	t.Run("rejects names with separators", func(t *testing.T) {
		_, err := p.WithName("lib/app.py")
		assert.Error(t, err)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := p.WithName("")
		assert.Error(t, err)
	})
}

func TestNodeIDRoundTrip(t *testing.T) {
	id := NewNodeID()
	assert.False(t, id.IsZero())

	parsed, err := NewNodeIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewNodeIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestNewPosition(t *testing.T) {
	p, err := NewPosition(10, -20.5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, -20.5, p.Y)

	_, err = NewPosition(math.NaN(), 0)
	assert.Error(t, err)
	_, err = NewPosition(0, math.Inf(1))
	assert.Error(t, err)
}

func TestNewCanvasTransform(t *testing.T) {
	t.Run("clamps scale into range", func(t *testing.T) {
		assert.Equal(t, MinCanvasScale, NewCanvasTransform(Position{}, 0.01).Scale)
		assert.Equal(t, MaxCanvasScale, NewCanvasTransform(Position{}, 99).Scale)
		assert.Equal(t, 1.25, NewCanvasTransform(Position{}, 1.25).Scale)
	})

	t.Run("non-finite scale collapses to identity", func(t *testing.T) {
		assert.Equal(t, 1.0, NewCanvasTransform(Position{}, math.NaN()).Scale)
		assert.Equal(t, 1.0, NewCanvasTransform(Position{}, math.Inf(-1)).Scale)
	})
}
