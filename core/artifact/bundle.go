// Package artifact holds the trained state the forecast pipeline serves from:
// the fitted entity encoder and the prediction backend. A Bundle is built
// once, never mutated, and replaced as a whole on reload.
package artifact

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/prediction"
)

// ErrNoBundle is returned when a holder has not been loaded yet.
var ErrNoBundle = errors.New("no artifact bundle loaded")

var generations atomic.Uint64

// Bundle pairs an encoder with the backend trained against it.
type Bundle struct {
	Encoder  *encoder.Encoder
	Backend  prediction.Backend
	Version  string
	Source   string
	LoadedAt time.Time
	// Generation is unique per NewBundle call. Version comes from the file
	// and may repeat across reloads; Generation does not.
	Generation uint64
}

// NewBundle validates and returns a bundle. The encoder must be fitted; a
// nil backend is replaced by an unavailable one so that forecasts fail fast.
func NewBundle(enc *encoder.Encoder, backend prediction.Backend, version string) (*Bundle, error) {
	if enc == nil || !enc.Fitted() {
		return nil, encoder.ErrNotFitted
	}
	if backend == nil {
		backend = prediction.Unavailable("none", prediction.ErrNoBackend)
	}
	return &Bundle{
		Encoder:    enc,
		Backend:    backend,
		Version:    version,
		LoadedAt:   time.Now().UTC(),
		Generation: generations.Add(1),
	}, nil
}

// Current lets a Bundle act as its own static Source.
func (b *Bundle) Current() *Bundle { return b }

// Source yields the bundle a request should use. Callers read it once per
// request and keep the snapshot for the whole call.
type Source interface {
	Current() *Bundle
}

// Holder publishes bundles to concurrent readers. Swap installs a complete
// new bundle in one atomic store.
type Holder struct {
	ptr atomic.Pointer[Bundle]
}

// NewHolder returns a holder initialised with b, which may be nil.
func NewHolder(b *Bundle) *Holder {
	h := &Holder{}
	if b != nil {
		h.ptr.Store(b)
	}
	return h
}

// Current returns the installed bundle or nil.
func (h *Holder) Current() *Bundle { return h.ptr.Load() }

// Swap installs b and returns the previous bundle.
func (h *Holder) Swap(b *Bundle) *Bundle { return h.ptr.Swap(b) }
