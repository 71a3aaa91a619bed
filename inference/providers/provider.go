// Package providers - Execution provider selection and session options.
package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for macOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA for GPU acceleration.
	CUDAProviderBackend ProviderBackend = "cuda"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OptimizationLevel names an ONNX Runtime graph optimization level.
type OptimizationLevel string

const (
	OptimizationDisabled OptimizationLevel = "disabled"
	OptimizationBasic    OptimizationLevel = "basic"
	OptimizationExtended OptimizationLevel = "extended"
	OptimizationAll      OptimizationLevel = "all"
)

func (l OptimizationLevel) native() (ort.GraphOptimizationLevel, error) {
	switch l {
	case OptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case OptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case OptimizationExtended, "":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case OptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	}
	return 0, errors.Errorf("unknown optimization level %q", l)
}

// Config represents the onnxruntime settings shared by every session.
type Config struct {
	// Backend specifies the execution provider, empty means CPU.
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// SharedLibraryPath points at the onnxruntime shared library. See GetSharedLibPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`

	// IntraOpThreads parallelizes a single node, 0 lets onnxruntime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`

	// InterOpThreads parallelizes independent nodes, 0 lets onnxruntime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`

	// Optimization is the graph optimization level.
	Optimization OptimizationLevel `json:"optimization" yaml:"optimization"`

	// DeviceID selects the GPU for CUDA and OpenVINO.
	DeviceID int `json:"device_id" yaml:"device_id"`

	// DeviceType is the OpenVINO device type, e.g. CPU, GPU, NPU.
	DeviceType string `json:"device_type" yaml:"device_type"`
}

// DefaultConfig returns a CPU configuration with extended graph optimizations.
func DefaultConfig() Config {
	return Config{
		Backend:      CPUProviderBackend,
		Optimization: OptimizationExtended,
	}
}

// Validate checks the backend, thread counts and optimization level.
func (c Config) Validate() error {
	switch c.Backend {
	case "", CPUProviderBackend, CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	if _, err := c.Optimization.native(); err != nil {
		return err
	}
	return nil
}

// NewSessionOptions builds session options for c and appends the execution provider.
//
// The caller owns the returned options and must Destroy them.
func NewSessionOptions(c Config) (*ort.SessionOptions, error) {
	level, err := c.Optimization.native()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := options.SetIntraOpNumThreads(c.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(c.InterOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	if err := appendExecutionProvider(options, c); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func appendExecutionProvider(options *ort.SessionOptions, c Config) error {
	switch c.Backend {
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("error enabling CoreML: %w", err)
		}
	case OpenVINOProviderBackend:
		// See:
		// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
		config := map[string]string{
			"device_id": fmt.Sprintf("%d", c.DeviceID),
		}
		if c.DeviceType != "" {
			config["device_type"] = c.DeviceType
		}
		if err := options.AppendExecutionProviderOpenVINO(config); err != nil {
			return fmt.Errorf("error enabling OpenVINO: %w", err)
		}
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("error creating CUDA options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": fmt.Sprintf("%d", c.DeviceID)}); err != nil {
			return fmt.Errorf("error converting CUDA options: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fmt.Errorf("error enabling CUDA: %w", err)
		}
	}
	return nil
}
