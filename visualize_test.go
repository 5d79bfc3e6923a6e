package dcgan_go

import (
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestGridRender(t *testing.T) {
	data := make([]float32, 4*3*3)
	// second tile is white
	for i := 9; i < 18; i++ {
		data[i] = 1
	}
	batch := tensor.New(tensor.WithShape(4, 1, 3, 3), tensor.WithBacking(data))
	grid := Grid{Rows: 2, Cols: 2, Scale: 2, Padding: 1}

	img, err := grid.Render(batch, "")
	require.NoError(t, err)
	// 2 tiles of 6 pixels and 3 gaps
	assert.Equal(t, 15, img.Bounds().Dx())
	assert.Equal(t, 15, img.Bounds().Dy())
	assert.Equal(t, uint8(0), img.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), img.GrayAt(8, 1).Y)
	assert.Equal(t, uint8(255), img.GrayAt(13, 6).Y)
	// padding is white
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(1, 8).Y)

	captioned, err := grid.Render(batch, "Epoch 1, Iteration 100")
	require.NoError(t, err)
	assert.Greater(t, captioned.Bounds().Dy(), img.Bounds().Dy())
	assert.GreaterOrEqual(t, captioned.Bounds().Dx(), img.Bounds().Dx())

	_, err = Grid{Rows: 3, Cols: 2}.Render(batch, "")
	assert.Error(t, err)
	_, err = Grid{Rows: 0, Cols: 2}.Render(batch, "")
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	dir, err := ioutil.TempDir("", "visualize")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	fname := filepath.Join(dir, "image.png")
	require.NoError(t, SavePNG(fname, ToImage([]float32{0, 1, 1, 0}, 2, 2)))
	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Bounds().Dx())
}

func TestASCII(t *testing.T) {
	text := ASCII([]float32{0, 1, 0.5, 0}, 2, 2)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, " @", lines[0])
	assert.Equal(t, "= ", lines[1])
}
