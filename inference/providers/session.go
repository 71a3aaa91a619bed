// Package providers - Inference sessions.
package providers

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

var (
	envMu   sync.Mutex
	envRefs int

	destroyEnvironment = ort.DestroyEnvironment
)

// acquireEnvironment initializes the process-wide onnxruntime environment on first use.
func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		// Point ONNX Runtime to the exact shared library path (overrides default search).
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("error initializing ORT environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 {
		return destroyEnvironment()
	}
	return nil
}

// Session represents a model session from the onnxruntime with one float32 input and
// one float32 output bound to preallocated tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// Run executes the model on the current contents of Input.
func (s *Session) Run() error {
	if s.Session == nil {
		return fmt.Errorf("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		session := s.Session
		s.Session = nil
		return closeSession(session.Destroy)
	}
	return nil
}

// closeSession destroys a native session and drops its environment reference even
// when the destroy fails.
func closeSession(destroy func() error) error {
	var err error
	if derr := destroy(); derr != nil {
		err = fmt.Errorf("error destroying ORT session: %w", derr)
	}
	if rerr := releaseEnvironment(); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("error destroying ORT environment: %w", rerr))
	}
	return err
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// Input node name.
	InputName string
	// Output node name.
	OutputName string
	// Input tensor shape, e.g. [1, 3, 299, 299].
	InputShape []int64
	// Output tensor shape, e.g. [1, 1000].
	OutputShape []int64
}

// NewSession creates a new ONNX Runtime session with preallocated input and output
// tensors.
//
// Order of operations:
//  1. Library path check: Ensures native runtime is accessible.
//  2. Environment setup: Shared by every session of the process.
//  3. Tensor allocation: Prepares fixed-shape buffers for input/output data.
//  4. Session options: Threading, optimization level and execution provider.
//  5. Session creation: Loads the model and binds the tensors.
//
// Arguments:
//   - config: The provider configuration.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: Wrapped Session struct that holds the native session and tensors.
//   - error: An error if the session creation fails.
func NewSession(config Config, args NewSessionArgs) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	libPath, err := GetSharedLibPath(config.SharedLibraryPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
	}

	if err := acquireEnvironment(libPath); err != nil {
		return nil, err
	}

	s, err := newSession(config, args)
	if err != nil {
		_ = releaseEnvironment()
		return nil, err
	}
	return s, nil
}

func newSession(config Config, args NewSessionArgs) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(args.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(args.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := NewSessionOptions(config)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{Session: session, Input: input, Output: output}, nil
}
