// Package id generates identifiers for executions and recordings.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

// NewIDGenerator returns a sequential ID generator. Sequential IDs are
// deterministic, which keeps recordings of identical runs identical.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueIDGenerator returns a generator of globally unique IDs.
func NewUniqueIDGenerator() IDGenerator {
	return xidGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

type xidGenerator struct{}

func (g xidGenerator) Generate() string {
	return xid.New().String()
}

var (
	defaultGenerator     IDGenerator
	defaultGeneratorOnce sync.Once
)

// Generate creates an ID with the process-wide sequential generator.
func Generate() string {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = NewIDGenerator()
	})

	return defaultGenerator.Generate()
}
