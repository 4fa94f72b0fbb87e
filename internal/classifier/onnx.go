package classifier

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Skufu/aidoctor/internal/features"
)

// ortEnv is the process-wide ONNX Runtime environment.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNX runs a classifier exported to ONNX with a float input of shape
// [batch, features] and an int64 class index output.
type ONNX struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	labels     []string
	width      int64
}

func newONNX(modelPath, libPath string, labels []string, width int) (*ONNX, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	dims := inputs[0].Dimensions
	if len(dims) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D input, got %v", dims)
	}
	if dims[1] != -1 && dims[1] != int64(width) {
		return nil, fmt.Errorf("onnx: model expects %d features, schema has %d", dims[1], width)
	}
	outputName, err := labelOutput(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputs[0].Name}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &ONNX{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputName,
		labels:     labels,
		width:      int64(width),
	}, nil
}

// labelOutput prefers the converter's conventional "output_label" tensor.
func labelOutput(outputs []ort.InputOutputInfo) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("onnx: model has no outputs")
	}
	for _, out := range outputs {
		if out.Name == "output_label" {
			return out.Name, nil
		}
	}
	return outputs[0].Name, nil
}

func (m *ONNX) Predict(ctx context.Context, v features.Vector) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if int64(v.Len()) != m.width {
		return "", fmt.Errorf("vector has %d features, model expects %d", v.Len(), m.width)
	}

	in, err := ort.NewTensor(ort.NewShape(1, m.width), v.Values())
	if err != nil {
		return "", fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return "", fmt.Errorf("onnx: create output tensor: %w", err)
	}
	defer out.Destroy()

	m.mu.Lock()
	err = m.session.Run([]ort.Value{in}, []ort.Value{out})
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("onnx: inference failed: %w", err)
	}

	idx := out.GetData()[0]
	if idx < 0 || idx >= int64(len(m.labels)) {
		return "", fmt.Errorf("onnx: class index %d outside %d labels", idx, len(m.labels))
	}
	return m.labels[idx], nil
}

func (m *ONNX) Close() error {
	return m.session.Destroy()
}
