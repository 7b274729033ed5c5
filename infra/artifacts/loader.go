// Package artifacts reads artifact bundle files and keeps an artifact.Holder
// current when the file changes.
//
// A bundle file is YAML:
//
//	version: "2025-10"
//	prefix: bus
//	labels: ["1", "2", "3"]
//	backend:
//	  type: linear
//	  conf:
//	    mode: joint
//	    trips: {intercept: 120, month: 2.5}
//	    passengers: {intercept: 4000, month: 80}
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/prediction"
	"github.com/kilianp07/fleetcast/infra/logger"
	_ "github.com/kilianp07/fleetcast/infra/predictor"
)

// ErrBackendBuild marks a bundle whose encoder loaded but whose backend could
// not be built. The bundle returned alongside it serves an unavailable backend.
var ErrBackendBuild = errors.New("backend build failed")

// File is the on-disk bundle description.
type File struct {
	Version string               `yaml:"version"`
	Prefix  *string              `yaml:"prefix"`
	Labels  []string             `yaml:"labels"`
	Backend factory.ModuleConfig `yaml:"backend"`
}

// Defaults apply when the file does not set a value. An empty Prefix keeps
// the encoder default.
type Defaults struct {
	Prefix    string
	Decimals  int
	BatchSize int
}

// Loader builds bundles from a file.
type Loader struct {
	path     string
	defaults Defaults
	recorder metrics.BundleLoadRecorder
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithRecorder reports each load attempt to r.
func WithRecorder(r metrics.BundleLoadRecorder) Option {
	return func(l *Loader) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithLogger replaces the default component logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader returns a loader for path.
func NewLoader(path string, defaults Defaults, opts ...Option) *Loader {
	l := &Loader{
		path:     path,
		defaults: defaults,
		recorder: metrics.NopSink{},
		log:      logger.New("artifacts"),
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Path returns the bundle file path.
func (l *Loader) Path() string { return l.path }

// ReadFile parses a bundle file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Build turns a parsed file into a bundle. When only the backend fails the
// bundle is still returned, wrapping an unavailable backend, together with
// an error matching ErrBackendBuild.
func (f *File) Build(defaults Defaults) (*artifact.Bundle, error) {
	var opts []encoder.Option
	switch {
	case f.Prefix != nil:
		opts = append(opts, encoder.WithPrefix(*f.Prefix))
	case defaults.Prefix != "":
		opts = append(opts, encoder.WithPrefix(defaults.Prefix))
	}
	enc, err := encoder.FromLabels(f.Labels, opts...)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	backend, berr := prediction.NewBackend(f.backendConfig(defaults))
	if berr != nil {
		kind := f.Backend.Type
		if kind == "" {
			kind = "none"
		}
		backend = prediction.Unavailable(kind, berr)
	}
	b, err := artifact.NewBundle(enc, backend, f.Version)
	if err != nil {
		return nil, err
	}
	if berr != nil {
		return b, fmt.Errorf("%w: %w", ErrBackendBuild, berr)
	}
	return b, nil
}

func (f *File) backendConfig(d Defaults) factory.ModuleConfig {
	conf := make(map[string]any, len(f.Backend.Conf)+2)
	for k, v := range f.Backend.Conf {
		conf[k] = v
	}
	if _, ok := conf["decimals"]; !ok {
		conf["decimals"] = d.Decimals
	}
	if _, ok := conf["batch_size"]; !ok {
		conf["batch_size"] = d.BatchSize
	}
	return factory.ModuleConfig{Type: f.Backend.Type, Conf: conf}
}

// Load reads and builds the bundle. See File.Build for the partial result
// returned when only the backend fails.
func (l *Loader) Load() (*artifact.Bundle, error) {
	start := l.now()
	b, err := l.load()
	ev := metrics.BundleLoadEvent{Source: l.path, Err: err, Duration: l.now().Sub(start), Time: start}
	if b != nil {
		ev.Version = b.Version
		ev.Backend = prediction.Kind(b.Backend)
		ev.Entities = b.Encoder.Len()
	}
	if rerr := l.recorder.RecordBundleLoad(ev); rerr != nil {
		l.log.Warnf("record bundle load: %v", rerr)
	}
	if fs, ok := l.recorder.(metrics.FleetSizeRecorder); ok && b != nil {
		if rerr := fs.RecordFleetSize(b.Encoder.Len()); rerr != nil {
			l.log.Warnf("record fleet size: %v", rerr)
		}
	}
	switch {
	case b == nil:
		l.log.Errorf("load bundle %s: %v", l.path, err)
	case err != nil:
		l.log.Warnf("bundle %s loaded without a usable backend: %v", l.path, err)
	default:
		l.log.Debugw("bundle loaded", map[string]any{
			"path":     l.path,
			"version":  b.Version,
			"backend":  ev.Backend,
			"entities": ev.Entities,
		})
	}
	return b, err
}

func (l *Loader) load() (*artifact.Bundle, error) {
	f, err := ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	b, err := f.Build(l.defaults)
	if b != nil {
		b.Source = l.path
		if b.Version == "" {
			if st, serr := os.Stat(l.path); serr == nil {
				b.Version = st.ModTime().UTC().Format("20060102T150405Z")
			}
		}
	}
	return b, err
}

// LoadInto loads the bundle and installs it in h. A bundle with an
// unavailable backend is installed only when h is empty, so a healthy bundle
// is never replaced by a broken one.
func (l *Loader) LoadInto(h *artifact.Holder) error {
	b, err := l.Load()
	if b == nil {
		return err
	}
	if err != nil && h.Current() != nil {
		return err
	}
	if prev := h.Swap(b); prev != nil {
		l.log.Infof("bundle %s replaced by %s", prev.Version, b.Version)
	} else {
		l.log.Infof("bundle %s installed (%d entities, backend %s)", b.Version, b.Encoder.Len(), prediction.Kind(b.Backend))
	}
	return err
}
