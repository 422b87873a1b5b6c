// Package id provides centralized ID generation for the backend.
//
// Persisted records use prefixed ULIDs (proj_*, ver_*, ent_*): ULIDs are
// lexicographically sortable by creation time and the prefixes keep logs
// readable. Preview channel identifiers are deliberately NOT generated here;
// they are opaque one-shot tokens minted by the session (see session.Manager).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ProjectID identifies a persisted project.
type ProjectID string

// VersionID identifies a version snapshot.
type VersionID string

// EntryID identifies a console entry.
type EntryID string

const (
	ProjectPrefix = "proj"
	VersionPrefix = "ver"
	EntryPrefix   = "ent"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewProjectID generates a prefixed project ID string.
func (g *Generator) NewProjectID() string {
	return g.GenerateWithPrefix(ProjectPrefix)
}

// NewVersionID generates a prefixed version snapshot ID string.
func (g *Generator) NewVersionID() string {
	return g.GenerateWithPrefix(VersionPrefix)
}

// NewEntryID generates a prefixed console entry ID string.
func (g *Generator) NewEntryID() string {
	return g.GenerateWithPrefix(EntryPrefix)
}

// NewProjectID generates a new project ID.
func NewProjectID() ProjectID {
	return ProjectID(Default().GenerateWithPrefix(ProjectPrefix))
}

// NewVersionID generates a new version snapshot ID.
func NewVersionID() VersionID {
	return VersionID(Default().GenerateWithPrefix(VersionPrefix))
}

// NewEntryID generates a new console entry ID.
func NewEntryID() EntryID {
	return EntryID(Default().GenerateWithPrefix(EntryPrefix))
}

func (id ProjectID) String() string { return string(id) }
func (id VersionID) String() string { return string(id) }
func (id EntryID) String() string   { return string(id) }

// IsValid checks if an ID string is a valid ULID.
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a raw ULID string.
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
