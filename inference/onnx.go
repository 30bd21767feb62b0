// Package inference serves autopilot commands from a local ONNX policy
// network.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/snekpilot/autopilot"
)

// Config describes an ONNX provider.
type Config struct {
	ModelPath string
	// Scale normalises the head-to-food offset. 0 means DefaultScale.
	Scale float32
}

// OnnxClient runs a policy network with one input named "input" of shape
// [1, InputSize] and outputs "policy" [1, 4] and "value" [1, 1].
type OnnxClient struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	cfg     Config
	logger  *slog.Logger
	input   []float32
}

var ortInitOnce sync.Once
var ortInitErr error

func NewOnnxClient(cfg Config, logger *slog.Logger) (*OnnxClient, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx provider needs a model path")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if logger == nil {
		logger = slog.Default()
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else if p := findSharedLibrary(); p != "" {
			ort.SetSharedLibraryPath(p)
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to init ort: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, []string{"input"}, []string{"policy", "value"}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	logger.Info("onnx model loaded", "path", cfg.ModelPath)

	return &OnnxClient{
		session: session,
		cfg:     cfg,
		logger:  logger,
		input:   make([]float32, InputSize),
	}, nil
}

// findSharedLibrary looks for libonnxruntime next to the working directory.
func findSharedLibrary() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
		abs := filepath.Join(cwd, name)
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}
	matches, _ := filepath.Glob(filepath.Join(cwd, "libonnxruntime.so.*"))
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func (c *OnnxClient) Close() error {
	return c.session.Destroy()
}

// Predict returns the raw policy and value for in.
func (c *OnnxClient) Predict(in autopilot.Input) ([]float32, float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	Featurize(in, c.cfg.Scale, c.input)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, InputSize), c.input)
	if err != nil {
		return nil, 0, err
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, PolicySize))
	if err != nil {
		return nil, 0, err
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ValueSize))
	if err != nil {
		return nil, 0, err
	}
	defer valueTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor}); err != nil {
		return nil, 0, fmt.Errorf("run session: %w", err)
	}

	policy := make([]float32, PolicySize)
	copy(policy, policyTensor.GetData())
	return policy, valueTensor.GetData()[0], nil
}

func (c *OnnxClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	if err := ctx.Err(); err != nil {
		return autopilot.Batch{}, err
	}
	policy, value, err := c.Predict(in)
	if err != nil {
		return autopilot.Batch{}, err
	}
	d := Pick(policy, in.SnakeDirection)
	c.logger.Debug("onnx prediction",
		"policy", strings.Trim(fmt.Sprint(policy), "[]"),
		"value", value,
		"pick", d.String(),
	)
	return Run(in, d), nil
}
