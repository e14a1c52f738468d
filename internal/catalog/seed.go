// Package catalog loads resource catalog seed files and applies them through
// the resource service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/campus-reservations/internal/application"
)

// SystemPrincipal is the administrator identity used to apply seeds.
var SystemPrincipal = application.Principal{UserID: "system:catalog-seed", IsAdmin: true}

// Seed is the document layout of a catalog seed file.
//
//	resources:
//	  - id: room-101
//	    kind: room
//	    label: Seminar Room 101
//	    location: Main building
//	    capacity: 24
//	  - id: station-1
//	    kind: station
//	    label: Bench 1
//	    active: false
type Seed struct {
	Resources []SeedResource `yaml:"resources"`
}

// SeedResource is one catalog entry in a seed file.
type SeedResource struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Label    string `yaml:"label"`
	Location string `yaml:"location"`
	Capacity int    `yaml:"capacity"`
	Active   *bool  `yaml:"active"`
}

// ResourceWriter creates catalog entries.
type ResourceWriter interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error)
}

// Load decodes a seed document. Unknown fields are rejected.
func Load(r io.Reader) (Seed, error) {
	var seed Seed
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, nil
		}
		return Seed{}, fmt.Errorf("decode catalog seed: %w", err)
	}

	seen := make(map[string]bool, len(seed.Resources))
	for i, entry := range seed.Resources {
		if entry.ID == "" {
			return Seed{}, fmt.Errorf("catalog seed: resource %d has no id", i)
		}
		if seen[entry.ID] {
			return Seed{}, fmt.Errorf("catalog seed: duplicate resource id %q", entry.ID)
		}
		seen[entry.ID] = true
	}
	return seed, nil
}

// LoadFile reads and decodes the seed file at path.
func LoadFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Apply creates every seeded resource that does not exist yet and returns
// how many were created. Existing IDs are left untouched.
func Apply(ctx context.Context, seed Seed, writer ResourceWriter, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog_seed")

	created := 0
	for _, entry := range seed.Resources {
		_, err := writer.CreateResource(ctx, application.CreateResourceParams{
			Principal: SystemPrincipal,
			Input: application.ResourceInput{
				ID:       entry.ID,
				Kind:     application.ResourceKind(entry.Kind),
				Label:    entry.Label,
				Location: entry.Location,
				Capacity: entry.Capacity,
				IsActive: entry.Active,
			},
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, application.ErrAlreadyExists):
			logger.DebugContext(ctx, "seeded resource already present", "resource_id", entry.ID)
		default:
			return created, fmt.Errorf("seed resource %s: %w", entry.ID, err)
		}
	}

	logger.InfoContext(ctx, "catalog seed applied", "created", created, "total", len(seed.Resources))
	return created, nil
}
