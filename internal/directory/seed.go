// ABOUTME: Embedded demo dataset written on first start
// ABOUTME: Parsed once from YAML files compiled into the binary

package directory

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFS embed.FS

func loadSeed[T any](name string) ([]T, error) {
	data, err := seedFS.ReadFile("seed/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading seed %s: %w", name, err)
	}
	var out []T
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", name, err)
	}
	return out, nil
}

func mustLoadSeed[T any](name string) []T {
	out, err := loadSeed[T](name)
	if err != nil {
		panic(err)
	}
	return out
}
