package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"contentscout/internal/infrastructure/storage"
)

const catalogYAML = `
sources:
  primary:
    - name: "Wire One"
      url: "https://one.example"
      rss_url: "https://one.example/rss"
      category: "energy"
  secondary:
    - name: "Wire Two"
      url: "https://two.example"
      category: "infrastructure"
    - name: ""
      url: "https://broken.example"
  tertiary:
    - name: "Wire Three"
      url: "https://three.example"
      priority: 1
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadTiersAndDefaults(t *testing.T) {
	t.Parallel()

	loaded, err := Load(writeCatalog(t, catalogYAML), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 sources (malformed skipped), got %d", len(loaded))
	}

	byName := map[string]int{}
	for _, src := range loaded {
		byName[src.Name] = src.Priority
	}
	if byName["Wire One"] != 1 {
		t.Fatalf("primary priority = %d", byName["Wire One"])
	}
	if byName["Wire Two"] != 2 {
		t.Fatalf("secondary priority = %d", byName["Wire Two"])
	}
	// an explicit priority overrides the tier default
	if byName["Wire Three"] != 1 {
		t.Fatalf("explicit priority = %d", byName["Wire Three"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Parallel()

	if _, err := Load(writeCatalog(t, "sources: [not: {valid"), nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	loaded, err := Load(writeCatalog(t, catalogYAML), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ledger := storage.NewMemoryLedger(5)
	ctx := context.Background()

	added, err := Apply(ctx, ledger, loaded)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if added != 3 {
		t.Fatalf("first apply added %d", added)
	}

	added, err = Apply(ctx, ledger, loaded)
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if added != 0 {
		t.Fatalf("second apply added %d", added)
	}

	all, err := ledger.ActiveSources(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("sources after apply = %d, %v", len(all), err)
	}
}
