// Package classifier loads the pre-trained disease model and runs it over an
// encoded symptom vector.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skufu/aidoctor/internal/features"
)

// Predictor maps one feature vector to a disease label.
type Predictor interface {
	Predict(ctx context.Context, v features.Vector) (string, error)
}

// Options locate the model artifacts.
type Options struct {
	ModelPath  string
	LabelsPath string // class index -> label, ONNX only
	LibPath    string // onnxruntime shared library, ONNX only
	Features   int    // width of the schema the model must accept
}

// Model is a loaded Predictor that may hold native resources.
type Model interface {
	Predictor
	Close() error
}

// Load picks the model implementation from the file extension: ".json" for an
// exported tree ensemble, ".onnx" for an ONNX Runtime session.
func Load(opts Options) (Model, error) {
	switch strings.ToLower(filepath.Ext(opts.ModelPath)) {
	case ".json":
		f, err := LoadForest(opts.ModelPath)
		if err != nil {
			return nil, err
		}
		if f.NFeatures != opts.Features {
			return nil, fmt.Errorf("model expects %d features, schema has %d", f.NFeatures, opts.Features)
		}
		return f, nil
	case ".onnx":
		labels, err := loadLabels(opts.LabelsPath)
		if err != nil {
			return nil, err
		}
		return newONNX(opts.ModelPath, opts.LibPath, labels, opts.Features)
	default:
		return nil, fmt.Errorf("unsupported model format %q", opts.ModelPath)
	}
}

func loadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("decode labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels %s: empty", path)
	}
	return labels, nil
}
