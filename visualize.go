package dcgan_go

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
	"gorgonia.org/tensor"
)

var regular *truetype.Font

const (
	dpi        = 72.0
	fontsize   = 12.0
	lineheight = 1.2
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// Grid Lays images out as rows x cols tiles with caption above them
//
// Scale - every pixel becomes Scale x Scale block
// Padding - gap between tiles (and around them)
//
type Grid struct {
	Rows    int
	Cols    int
	Scale   int
	Padding int
}

// Render Draws batch of shape (Rows*Cols, 1, H, W) with values in [0;1]
func (grid Grid) Render(batch *tensor.Dense, caption string) (*image.Gray, error) {
	if grid.Rows < 1 || grid.Cols < 1 {
		return nil, fmt.Errorf("Grid must have one tile atleast, but got %dx%d", grid.Rows, grid.Cols)
	}
	shp := batch.Shape()
	if len(shp) != 4 || shp[1] != 1 {
		return nil, fmt.Errorf("Batch must have shape (N, 1, H, W), but got %v", shp)
	}
	if shp[0] != grid.Rows*grid.Cols {
		return nil, fmt.Errorf("Grid %dx%d needs %d images, but got %d", grid.Rows, grid.Cols, grid.Rows*grid.Cols, shp[0])
	}
	scale := grid.Scale
	if scale < 1 {
		scale = 1
	}
	h, w := shp[2], shp[3]
	data, ok := batch.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("Batch has type %T, but []float32 is expected", batch.Data())
	}

	face := truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	defer face.Close()
	dy := 0
	if caption != "" {
		dy = int(math.Ceil(fontsize*lineheight*dpi/72)) + grid.Padding
	}
	tileH, tileW := h*scale, w*scale
	width := grid.Cols*(tileW+grid.Padding) + grid.Padding
	height := dy + grid.Rows*(tileH+grid.Padding) + grid.Padding
	if capW := font.MeasureString(face, caption).Ceil() + 2*grid.Padding; capW > width {
		width = capW
	}

	im := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	if caption != "" {
		drawer := font.Drawer{
			Dst:  im,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.P(grid.Padding, dy-grid.Padding-face.Metrics().Descent.Ceil()),
		}
		drawer.DrawString(caption)
	}
	size := h * w
	for i := 0; i < shp[0]; i++ {
		row, col := i/grid.Cols, i%grid.Cols
		x0 := grid.Padding + col*(tileW+grid.Padding)
		y0 := dy + grid.Padding + row*(tileH+grid.Padding)
		sample := data[i*size : (i+1)*size]
		for y := 0; y < tileH; y++ {
			for x := 0; x < tileW; x++ {
				im.SetGray(x0+x, y0+y, color.Gray{Y: toIntensity(sample[(y/scale)*w+x/scale])})
			}
		}
	}
	return im, nil
}

// SavePNG Writes image into PNG file
func SavePNG(fname string, img image.Image) error {
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create image file")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrap(err, "Can't encode PNG")
	}
	return f.Close()
}

// ASCII Renders single image (H*W values in [0;1]) as text: the brighter pixel, the denser symbol
func ASCII(data []float32, height, width int) string {
	const ramp = " .:-=+*#%@"
	buf := make([]byte, 0, height*(width+1))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := int(toIntensity(data[y*width+x])) * (len(ramp) - 1) / 255
			buf = append(buf, ramp[idx])
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
