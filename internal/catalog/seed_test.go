package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/campus-reservations/internal/application"
)

const sampleSeed = `
resources:
  - id: room-101
    kind: room
    label: Seminar Room 101
    location: Main building
    capacity: 24
  - id: station-1
    kind: station
    label: Bench 1
    active: false
`

type writerStub struct {
	existing map[string]bool
	calls    []application.CreateResourceParams
	failID   string
}

func (w *writerStub) CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error) {
	w.calls = append(w.calls, params)
	if params.Input.ID == w.failID {
		return application.Resource{}, &application.ValidationError{FieldErrors: map[string]string{"label": "label is required"}}
	}
	if w.existing[params.Input.ID] {
		return application.Resource{}, application.ErrAlreadyExists
	}
	return application.Resource{ID: params.Input.ID}, nil
}

func TestLoad(t *testing.T) {
	seed, err := Load(strings.NewReader(sampleSeed))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(seed.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(seed.Resources))
	}
	room := seed.Resources[0]
	if room.ID != "room-101" || room.Kind != "room" || room.Capacity != 24 || room.Active != nil {
		t.Fatalf("unexpected room entry: %+v", room)
	}
	station := seed.Resources[1]
	if station.Active == nil || *station.Active {
		t.Fatalf("expected station inactive, got %+v", station.Active)
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "resources:\n  - id: a\n    colour: red\n"},
		{name: "missing id", doc: "resources:\n  - kind: room\n"},
		{name: "duplicate id", doc: "resources:\n  - id: a\n  - id: a\n"},
		{name: "not yaml", doc: "resources: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	seed, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(seed.Resources) != 0 {
		t.Fatalf("expected empty seed, got %+v", seed)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seed, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(seed.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(seed.Resources))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApply(t *testing.T) {
	seed, err := Load(strings.NewReader(sampleSeed))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Run("creates missing and skips existing", func(t *testing.T) {
		writer := &writerStub{existing: map[string]bool{"room-101": true}}
		created, err := Apply(context.Background(), seed, writer, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if created != 1 {
			t.Fatalf("created = %d, want 1", created)
		}
		if len(writer.calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(writer.calls))
		}
		for _, call := range writer.calls {
			if !call.Principal.IsAdmin {
				t.Fatal("seed must act as administrator")
			}
		}
		if got := writer.calls[1].Input.Kind; got != application.ResourceKindStation {
			t.Fatalf("kind = %q, want station", got)
		}
	})

	t.Run("stops on first failure", func(t *testing.T) {
		writer := &writerStub{failID: "room-101"}
		created, err := Apply(context.Background(), seed, writer, nil)
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if created != 0 || len(writer.calls) != 1 {
			t.Fatalf("expected stop after first entry, created=%d calls=%d", created, len(writer.calls))
		}
	})
}
