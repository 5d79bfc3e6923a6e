package dcgan_go

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"gorgonia.org/tensor"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TrainSet Grayscale images normalized to [0;1]
//
// TrainData - tensor of shape (DataLength, 1, Height, Width)
//
type TrainSet struct {
	TrainData  *tensor.Dense
	DataLength int
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// NewTrainSet Creates dataset from flat images of height*width values each
func NewTrainSet(images [][]float32, height, width int) (*TrainSet, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("Dataset must have one image atleast")
	}
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("Resolution must be positive, but got %dx%d", height, width)
	}
	size := height * width
	data := make([]float32, 0, len(images)*size)
	for i := range images {
		if len(images[i]) != size {
			return nil, fmt.Errorf("Image #%d has %d values, but %d expected", i, len(images[i]), size)
		}
		data = append(data, images[i]...)
	}
	return &TrainSet{
		TrainData:  tensor.New(tensor.WithShape(len(images), 1, height, width), tensor.WithBacking(data)),
		DataLength: len(images),
	}, nil
}

// LoadImages Reads every image in directory, converts it to grayscale and resizes to height x width.
//
// cmd/dcgan passes Generator's output resolution here (28x28 for bottom_width = 3), so
// source images of any size (e.g. 32x32) are rescaled to what Generator produces.
//
func LoadImages(dir string, height, width int) (*TrainSet, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't read dataset directory '%s'", dir))
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("There are no images in '%s'", dir)
	}
	images := make([]image.Image, 0, len(files))
	for _, fname := range files {
		img, err := decodeImage(fname)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return NewTrainSetFromImages(images, height, width)
}

// NewTrainSetFromImages Converts images to grayscale and resizes them to height x width
func NewTrainSetFromImages(images []image.Image, height, width int) (*TrainSet, error) {
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("Resolution must be positive, but got %dx%d", height, width)
	}
	data := make([][]float32, 0, len(images))
	for _, img := range images {
		data = append(data, grayscale(img, height, width))
	}
	return NewTrainSet(data, height, width)
}

func decodeImage(fname string) (image.Image, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't open image '%s'", fname))
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't decode image '%s'", fname))
	}
	return img, nil
}

// grayscale Resizes image (bilinear) and returns its intensities in [0;1]
func grayscale(img image.Image, height, width int) []float32 {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)
	data := make([]float32, height*width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32(gray.GrayAt(x, y).Y) / 255
		}
	}
	return data
}

// Height Returns height of images
func (ts *TrainSet) Height() int {
	return ts.TrainData.Shape()[2]
}

// Width Returns width of images
func (ts *TrainSet) Width() int {
	return ts.TrainData.Shape()[3]
}

// Sample Returns view on i-th image of shape (1, Height, Width)
func (ts *TrainSet) Sample(i int) (tensor.View, error) {
	if i < 0 || i >= ts.DataLength {
		return nil, fmt.Errorf("Index %d is out of range [0;%d)", i, ts.DataLength)
	}
	view, err := ts.TrainData.Slice(SlicerOneStep{StartIdx: i, EndIdx: i + 1})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't slice image #%d", i))
	}
	return view, nil
}

// Batch Gathers images with provided indices into a new tensor of shape (len(indices), 1, Height, Width)
func (ts *TrainSet) Batch(indices []int) (*tensor.Dense, error) {
	size := ts.Height() * ts.Width()
	src := ts.TrainData.Data().([]float32)
	data := make([]float32, len(indices)*size)
	for b, idx := range indices {
		if idx < 0 || idx >= ts.DataLength {
			return nil, fmt.Errorf("Index %d is out of range [0;%d)", idx, ts.DataLength)
		}
		copy(data[b*size:(b+1)*size], src[idx*size:(idx+1)*size])
	}
	return tensor.New(tensor.WithShape(len(indices), 1, ts.Height(), ts.Width()), tensor.WithBacking(data)), nil
}

// ToImage Converts (1, H, W) or (H, W) values in [0;1] to grayscale image. Values out of range are clipped.
func ToImage(data []float32, height, width int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: toIntensity(data[y*width+x])})
		}
	}
	return img
}

func toIntensity(v float32) uint8 {
	if !isFinite(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
