package storage

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SchemaGuard runs the schema migration at most once per database path.
// Concurrent callers share the in-flight run; a failed run is not remembered,
// so the next caller retries.
type SchemaGuard struct {
	migrate func(dbPath string) error

	group singleflight.Group
	mu    sync.Mutex
	done  map[string]bool
}

func NewSchemaGuard(migrate func(dbPath string) error) *SchemaGuard {
	return &SchemaGuard{
		migrate: migrate,
		done:    make(map[string]bool),
	}
}

// DefaultSchemaGuard is the process-wide guard used by NewSQLiteRepository.
var DefaultSchemaGuard = NewSchemaGuard(RunMigrations)

func (g *SchemaGuard) Ensure(dbPath string) error {
	if g.isDone(dbPath) {
		return nil
	}

	_, err, shared := g.group.Do(dbPath, func() (any, error) {
		if g.isDone(dbPath) {
			return nil, nil
		}
		if err := g.migrate(dbPath); err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.done[dbPath] = true
		g.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		slog.Error("Schema migration failed, will retry on next open", "path", dbPath, "shared", shared, "error", err)
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Reset forgets a completed migration so the next Ensure runs it again.
func (g *SchemaGuard) Reset(dbPath string) {
	g.mu.Lock()
	delete(g.done, dbPath)
	g.mu.Unlock()
}

func (g *SchemaGuard) isDone(dbPath string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done[dbPath]
}
