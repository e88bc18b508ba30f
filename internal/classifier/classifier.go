// Package classifier runs the on-device category suggestion model. The
// engine loads a TensorFlow Lite image classifier once at startup and maps
// its labels onto report categories. Classification is best effort, a
// failed or unready model never blocks the report flow.
package classifier

import (
	"bufio"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/logging"
)

// Package-level logger specific to the classifier service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "classifier.log")
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "classifier", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize classifier file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.NopLogger("classifier")
		closeLogger = func() error { return nil }
	}
}

// State describes where the engine is in its load lifecycle.
type State int

const (
	// StateLoading means model initialization has not finished yet.
	StateLoading State = iota
	// StateReady means the model is loaded and can classify.
	StateReady
	// StateFailed means model initialization failed. The engine stays
	// failed, classification is permanently unavailable this session.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Engine wraps the TensorFlow Lite interpreter behind the load state
// machine. All methods are safe for concurrent use.
type Engine struct {
	settings conf.ClassifierSettings

	mu          sync.Mutex
	state       State
	interpreter *tflite.Interpreter
	model       *tflite.Model
	labels      []string
}

// NewEngine creates an engine in the loading state. Call Load to
// initialize the model.
func NewEngine(settings conf.ClassifierSettings) *Engine {
	return &Engine{settings: settings, state: StateLoading}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ready reports whether the engine can classify.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// Load initializes the interpreter and labels. On any failure the engine
// transitions to failed and stays there. Load is a no-op after the first
// call has completed.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLoading {
		return nil
	}

	if err := e.loadLocked(); err != nil {
		e.state = StateFailed
		logger.Error("Model initialization failed", "model_path", e.settings.ModelPath, "error", err)
		return err
	}
	e.state = StateReady
	logger.Info("Model ready",
		"model_path", e.settings.ModelPath,
		"labels", len(e.labels),
		"input_size", e.settings.InputSize)
	return nil
}

func (e *Engine) loadLocked() error {
	modelData, err := os.ReadFile(e.settings.ModelPath)
	if err != nil {
		return errors.New(err).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Context("model_path", e.settings.ModelPath).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return errors.Newf("cannot load model from %s", e.settings.ModelPath).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Build()
	}

	threads := e.settings.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	if e.settings.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))})
		if delegate != nil {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		} else {
			logger.Warn("Failed to create XNNPACK delegate, falling back to CPU")
			options.SetNumThread(threads)
		}
	} else {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return errors.Newf("cannot create interpreter").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return errors.Newf("tensor allocation failed").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Build()
	}

	labels, err := loadLabels(e.settings.LabelPath)
	if err != nil {
		interpreter.Delete()
		model.Delete()
		return err
	}

	e.model = model
	e.interpreter = interpreter
	e.labels = labels
	return nil
}

// loadLabels reads the label file, one label per line.
func loadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Context("label_path", path).
			Build()
	}
	defer func() {
		_ = file.Close()
	}()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Context("operation", "scan_labels").
			Build()
	}
	if len(labels) == 0 {
		return nil, errors.Newf("label file %s is empty", path).
			Component("classifier").
			Category(errors.CategoryLabelLoad).
			Build()
	}
	return labels, nil
}

// Close releases interpreter resources.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing classifier logger: %v", err)
		}
		closeLogger = nil
	}
}
