package assets

import (
	_ "embed"
	"fmt"
	"os"
)

// ExampleConfigYAML is a fully commented configuration with the stock values.
//
//go:embed config.example.yaml
var ExampleConfigYAML []byte

// WriteExampleConfig writes ExampleConfigYAML to path. Existing files are kept.
func WriteExampleConfig(path string) error {
	if len(ExampleConfigYAML) == 0 {
		return fmt.Errorf("embedded config.example.yaml is empty")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(ExampleConfigYAML); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
