package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteExampleConfigKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteExampleConfig(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, ExampleConfigYAML) {
		t.Fatalf("written config differs from embedded copy")
	}
	if err := WriteExampleConfig(path); !os.IsExist(err) {
		t.Fatalf("expected exists error, got %v", err)
	}
}
