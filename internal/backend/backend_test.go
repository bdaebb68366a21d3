package backend

import (
	"os"
	"testing"

	"github.com/gomlx/gomlx/backends"
)

func TestNewWithoutConfig(t *testing.T) {
	t.Setenv(backends.ConfigEnvVar, "")
	os.Unsetenv(backends.ConfigEnvVar)
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b == nil || b.Name() == "" {
		t.Fatalf("unexpected backend %v", b)
	}
	if !Supports(b, backends.OpTypeDotGeneral, backends.OpTypeReduceMax) {
		t.Fatalf("%s does not support the basic ops", b.Name())
	}
}

func TestNewPureGo(t *testing.T) {
	t.Setenv(backends.ConfigEnvVar, "go")
	b, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if Supports(b, backends.OpTypeDotGeneral, backends.OpTypeInvalid) {
		t.Fatal("no backend implements the invalid op")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	t.Setenv(backends.ConfigEnvVar, "nosuch")
	if _, err := New(); err == nil {
		t.Fatal("expected an error for an unregistered backend")
	}
}
