package pointnet

import (
	"sync"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gopjrt/dtypes"
)

// identityVariant selects the constant added to a learned transform.
type identityVariant int

const (
	// identityFull is the k×k identity.
	identityFull identityVariant = iota
	// identityZeroFirst is the k×k identity with entry [0,0] set to 0.
	identityZeroFirst
)

type identityKey struct {
	k       int
	variant identityVariant
}

var (
	identityMu    sync.Mutex
	identityCache = map[identityKey][]float32{}
)

// identityPattern returns the flattened k×k pattern for variant. Patterns are
// built once per (k, variant) and shared; callers must not modify them.
func identityPattern(k int, variant identityVariant) []float32 {
	key := identityKey{k: k, variant: variant}
	identityMu.Lock()
	defer identityMu.Unlock()
	if p, ok := identityCache[key]; ok {
		return p
	}
	p := make([]float32, k*k)
	for i := 0; i < k; i++ {
		p[i*k+i] = 1
	}
	if variant == identityZeroFirst {
		p[0] = 0
	}
	identityCache[key] = p
	return p
}

// identityConst adds the pattern to g with shape [1, k*k], ready to broadcast over the batch.
func identityConst(g *Graph, dtype dtypes.DType, k int, variant identityVariant) *Node {
	c := Reshape(Const(g, identityPattern(k, variant)), 1, k*k)
	return ConvertDType(c, dtype)
}
