package classifier

import (
	"context"
	"image"
	_ "image/jpeg" // Decoders for the formats cameras and galleries produce.
	_ "image/png"
	"os"
	"strings"

	tflite "github.com/tphakala/go-tflite"
	"golang.org/x/image/draw"

	"github.com/saathiconnect/saathi-go/internal/report"
)

// Classify runs the model on the image at path and suggests a category.
// The second return value reports whether a suggestion was produced. Every
// failure path is soft: an unready engine, an unreadable image or an
// interpreter fault all yield (CategoryUnknown, false) and never an error,
// the user simply picks the category by hand.
func (e *Engine) Classify(ctx context.Context, path string) (report.Category, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateReady {
		logger.Debug("Classification skipped, engine not ready", "state", e.state.String())
		return report.CategoryUnknown, false
	}
	if err := ctx.Err(); err != nil {
		logger.Debug("Classification skipped, context done", "error", err)
		return report.CategoryUnknown, false
	}

	img, err := decodeImage(path)
	if err != nil {
		logger.Warn("Failed to decode image for classification", "path", path, "error", err)
		return report.CategoryUnknown, false
	}

	input := e.interpreter.GetInputTensor(0)
	if input == nil {
		logger.Error("Model has no input tensor")
		return report.CategoryUnknown, false
	}
	fillInputTensor(input.Float32s(), img, e.settings.InputSize)

	if status := e.interpreter.Invoke(); status != tflite.OK {
		logger.Error("Interpreter invoke failed", "status", status)
		return report.CategoryUnknown, false
	}

	output := e.interpreter.GetOutputTensor(0)
	if output == nil {
		logger.Error("Model has no output tensor")
		return report.CategoryUnknown, false
	}
	scores := output.Float32s()
	classCount := output.Dim(output.NumDims() - 1)
	if classCount > len(scores) {
		classCount = len(scores)
	}
	if classCount == 0 {
		return report.CategoryUnknown, false
	}

	best := 0
	for i := 1; i < classCount; i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	if best >= len(e.labels) {
		logger.Error("Model output index outside label range", "index", best, "labels", len(e.labels))
		return report.CategoryUnknown, false
	}

	label := e.labels[best]
	category := MapLabel(label)
	logger.Debug("Classification complete",
		"label", label, "score", scores[best], "category", category.String())
	return category, true
}

// MapLabel maps a raw model label to a report category by substring,
// case-insensitively. Labels that match nothing fall through to Other.
func MapLabel(label string) report.Category {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "pothole"):
		return report.CategoryPothole
	case strings.Contains(l, "garbage"):
		return report.CategoryGarbage
	case strings.Contains(l, "streetlight"), strings.Contains(l, "street light"):
		return report.CategoryStreetlight
	default:
		return report.CategoryOther
	}
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	img, _, err := image.Decode(f)
	return img, err
}

// fillInputTensor resizes the image to size x size with bilinear sampling
// and writes RGB values normalized to [0, 1] into the tensor buffer.
func fillInputTensor(dst []float32, img image.Image, size int) {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	idx := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if idx+2 >= len(dst) {
				return
			}
			offset := resized.PixOffset(x, y)
			dst[idx] = float32(resized.Pix[offset]) / 255.0
			dst[idx+1] = float32(resized.Pix[offset+1]) / 255.0
			dst[idx+2] = float32(resized.Pix[offset+2]) / 255.0
			idx += 3
		}
	}
}
