package viz

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/inkboard/pkg/board"
	"github.com/astromechza/inkboard/pkg/shape"
)

func sampleDoc(t *testing.T) *board.Document {
	t.Helper()
	d, err := board.New()
	require.NoError(t, err)
	require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 10, 10)))
	require.NoError(t, d.AddShape(shape.NewEllipse(nil, shape.Pt(5, 5), 3, 3)))
	return d
}

func TestWriteDot(t *testing.T) {
	d := sampleDoc(t)
	var buff bytes.Buffer
	require.NoError(t, WriteDot(d, &buff))
	out := buff.String()

	history, err := d.History()
	require.NoError(t, err)
	for _, c := range history {
		assert.Contains(t, out, c.Hash[:8])
		for _, dep := range c.Dependencies {
			assert.Contains(t, out, `"`+dep+`" -> "`+c.Hash+`"`)
		}
	}
	assert.Contains(t, out, "(2 shapes)")
	assert.Contains(t, out, "(0 shapes)")
	assert.True(t, strings.HasPrefix(out, "digraph"))
}

func TestRenderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.svg")
	require.NoError(t, RenderToFile(sampleDoc(t), path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<svg")
}
