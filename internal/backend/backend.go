// Package backend selects the gomlx backend every graph is compiled for.
package backend

import (
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/backends/simplego"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// New returns the backend configured by $GOMLX_BACKEND. Without it, XLA is used
// when its PJRT plugin loads and the pure Go backend otherwise.
func New() (backends.Backend, error) {
	b, err := newWithConfig("")
	if err == nil {
		return b, nil
	}
	if config, set := os.LookupEnv(backends.ConfigEnvVar); set {
		return nil, errors.WithMessagef(err, "backend: %s=%q", backends.ConfigEnvVar, config)
	}
	klog.V(1).Infof("backend: default unavailable, using %s: %v", simplego.BackendName, err)
	return newWithConfig(simplego.BackendName)
}

// newWithConfig turns the panics of the backend registry into errors. An empty
// config selects the registry default.
func newWithConfig(config string) (b backends.Backend, err error) {
	caught := exceptions.TryCatch[error](func() {
		if config == "" {
			b, err = backends.NewOrErr()
			return
		}
		b, err = backends.NewWithConfig(config)
	})
	if caught != nil {
		return nil, errors.Wrap(caught, "backend")
	}
	if err != nil {
		return nil, errors.Wrap(err, "backend")
	}
	return b, nil
}

// Supports reports whether b implements every op in ops.
func Supports(b backends.Backend, ops ...backends.OpType) bool {
	caps := b.Capabilities()
	for _, op := range ops {
		if !caps.Operations[op] {
			return false
		}
	}
	return true
}
