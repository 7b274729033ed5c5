package encoder

import (
	"slices"
	"strings"
	"unicode"
)

// DefaultPrefix is the decoration stripped from raw labels ("Bus 3" -> "3").
const DefaultPrefix = "bus"

// Encoder maps normalized entity labels to stable integer codes. It is fit
// once and read-only afterwards, so concurrent lookups need no locking.
type Encoder struct {
	prefix string
	labels []string
	codes  map[string]int
	fitted bool
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithPrefix sets the prefix token stripped during normalization. An empty
// token disables prefix stripping.
func WithPrefix(token string) Option {
	return func(e *Encoder) { e.prefix = strings.ToLower(strings.TrimSpace(token)) }
}

// New returns an unfitted encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{prefix: DefaultPrefix}
	for _, o := range opts {
		o(e)
	}
	return e
}

// FromLabels builds an encoder and fits it with labels.
func FromLabels(labels []string, opts ...Option) (*Encoder, error) {
	e := New(opts...)
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e, nil
}

// Normalize applies the encoder's prefix token.
func (e *Encoder) Normalize(raw string) string { return NormalizeWith(raw, e.prefix) }

// Normalize uses DefaultPrefix.
func Normalize(raw string) string { return NormalizeWith(raw, DefaultPrefix) }

// NormalizeWith trims raw and strips every leading occurrence of prefix
// followed by whitespace, case-insensitively. Stripping repeats so that the
// function is idempotent ("Bus bus 3" -> "3").
func NormalizeWith(raw, prefix string) string {
	s := strings.TrimSpace(raw)
	if prefix == "" {
		return s
	}
	for len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		rest := s[len(prefix):]
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		if len(trimmed) == len(rest) || trimmed == "" {
			break
		}
		s = trimmed
	}
	return s
}

// Fit establishes the label set. Codes follow byte-wise lexicographic order of
// the distinct normalized labels, matching the training-time label encoder.
func (e *Encoder) Fit(labels []string) error {
	if e.fitted {
		return &DuplicateFitError{Labels: len(e.labels)}
	}
	if len(labels) == 0 {
		return ErrNoLabels
	}
	seen := make(map[string]struct{}, len(labels))
	uniq := make([]string, 0, len(labels))
	for _, l := range labels {
		n := e.Normalize(l)
		if n == "" {
			return ErrEmptyLabel
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	slices.Sort(uniq)
	codes := make(map[string]int, len(uniq))
	for i, l := range uniq {
		codes[l] = i
	}
	e.labels = uniq
	e.codes = codes
	e.fitted = true
	return nil
}

// Fitted reports whether Fit succeeded.
func (e *Encoder) Fitted() bool { return e.fitted }

// Encode normalizes label and returns its code.
func (e *Encoder) Encode(label string) (int, error) {
	if !e.fitted {
		return 0, ErrNotFitted
	}
	n := e.Normalize(label)
	code, ok := e.codes[n]
	if !ok {
		return 0, &UnknownCategoryError{Label: n, Known: e.Labels()}
	}
	return code, nil
}

// Resolve normalizes label and returns both the canonical label and its code.
func (e *Encoder) Resolve(label string) (string, int, error) {
	code, err := e.Encode(label)
	if err != nil {
		return "", 0, err
	}
	return e.labels[code], code, nil
}

// Decode returns the canonical label for code.
func (e *Encoder) Decode(code int) (string, error) {
	if !e.fitted {
		return "", ErrNotFitted
	}
	if code < 0 || code >= len(e.labels) {
		return "", &InvalidCodeError{Code: code, Size: len(e.labels)}
	}
	return e.labels[code], nil
}

// Labels returns a copy of the canonical labels in code order.
func (e *Encoder) Labels() []string { return slices.Clone(e.labels) }

// Len returns the number of known labels.
func (e *Encoder) Len() int { return len(e.labels) }

// Display decorates a canonical label for presentation ("3" -> "Bus 3").
func (e *Encoder) Display(label string) string {
	if e.prefix == "" {
		return label
	}
	return strings.ToUpper(e.prefix[:1]) + e.prefix[1:] + " " + label
}
