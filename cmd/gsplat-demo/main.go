// Command gsplat-demo rasterizes a synthetic scene of 2D Gaussians and
// writes the result to a PNG, alongside a downsampled thumbnail.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"math/rand"
	"os"

	gsplat "github.com/pooncs/taichi-splatting"
	"github.com/pooncs/taichi-splatting/conic"
	"github.com/pooncs/taichi-splatting/internal/parallel"
	"github.com/pooncs/taichi-splatting/raster"
	"github.com/pooncs/taichi-splatting/tiling"
	"golang.org/x/image/draw"
)

const featureDim = 3 // RGB

func main() {
	var (
		width       = flag.Int("width", 256, "image width")
		height      = flag.Int("height", 256, "image height")
		numGaussian = flag.Int("gaussians", 200, "number of synthetic gaussians")
		tileSize    = flag.Int("tile-size", 16, "raster tile size")
		seed        = flag.Int64("seed", 1, "RNG seed for the synthetic scene")
		output      = flag.String("output", "demo.png", "full-resolution output PNG")
		thumbnail   = flag.String("thumbnail", "demo_thumb.png", "downsampled preview PNG")
		thumbWidth  = flag.Int("thumb-width", 64, "thumbnail width")
		workers     = flag.Int("workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	)
	flag.Parse()

	paddedW, paddedH := tiling.PadToTile(*width, *height, *tileSize)
	points, features, depths := synthesizeScene(*numGaussian, paddedW, paddedH, rand.New(rand.NewSource(*seed)))

	overlapToPoint, tileRanges, err := tiling.MapToTiles(points, depths, paddedW, paddedH, *tileSize)
	if err != nil {
		log.Fatalf("MapToTiles: %v", err)
	}

	pool := parallel.NewWorkerPool(*workers)
	defer pool.Close()

	cfg := raster.DefaultConfig()
	cfg.TileSize = int32(*tileSize)

	imgFeature, imgAlpha, _, err := raster.Forward(pool, points, features, featureDim, tileRanges, overlapToPoint, paddedW, paddedH, cfg)
	if err != nil {
		log.Fatalf("Forward: %v", err)
	}

	img := featureImageToRGBA(imgFeature, imgAlpha, paddedW, paddedH, *width, *height)
	if err := savePNG(*output, img); err != nil {
		log.Fatalf("failed to save %s: %v", *output, err)
	}
	log.Printf("wrote %s (%dx%d, %d gaussians)", *output, *width, *height, *numGaussian)

	thumbHeight := *thumbWidth * *height / *width
	thumb := image.NewRGBA(image.Rect(0, 0, *thumbWidth, thumbHeight))
	draw.BiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Over, nil)
	if err := savePNG(*thumbnail, thumb); err != nil {
		log.Fatalf("failed to save %s: %v", *thumbnail, err)
	}
	log.Printf("wrote %s (%dx%d)", *thumbnail, *thumbWidth, thumbHeight)
}

// synthesizeScene places n Gaussians uniformly at random, with random
// isotropic conics and uniformly random RGB colors, and assigns each an
// independent random non-negative depth so the scene exercises real
// front-to-back overlap rather than a single flat layer.
func synthesizeScene(n, w, h int, rng *rand.Rand) (points []float32, features []float32, depths []float32) {
	points = make([]float32, n*gsplat.PointStride)
	features = make([]float32, n*featureDim)
	depths = make([]float32, n)

	for i := 0; i < n; i++ {
		sigma := 2.0 + rng.Float64()*6.0
		g := gsplat.Gaussian2D{
			UV:    [2]float32{float32(rng.Float64() * float64(w)), float32(rng.Float64() * float64(h))},
			Conic: conic.Conic{A: float32(1 / (sigma * sigma)), B: 0, C: float32(1 / (sigma * sigma))},
			Alpha: float32(0.3 + rng.Float64()*0.6),
		}
		g.Pack(points[i*gsplat.PointStride : (i+1)*gsplat.PointStride])

		features[i*featureDim+0] = float32(rng.Float64())
		features[i*featureDim+1] = float32(rng.Float64())
		features[i*featureDim+2] = float32(rng.Float64())

		depths[i] = float32(rng.Float64() * 100)
	}
	return points, features, depths
}

// featureImageToRGBA converts the rasterizer's planar float feature
// image (padded to paddedW x paddedH) into an *image.RGBA cropped back
// to the caller's requested width x height. The RGB feature channels,
// already weighted by alpha during compositing, become the premultiplied
// color and the rasterizer's own alpha channel becomes A.
func featureImageToRGBA(feature []float32, alpha []float32, paddedW, paddedH, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*paddedW + x
			r := clampTo255(feature[idx*featureDim+0])
			g := clampTo255(feature[idx*featureDim+1])
			b := clampTo255(feature[idx*featureDim+2])
			a := clampTo255(alpha[idx])
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: a})
		}
	}
	return img
}

func clampTo255(v float32) uint8 {
	v = float32(math.Max(0, math.Min(1, float64(v)))) * 255
	return uint8(v + 0.5)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
