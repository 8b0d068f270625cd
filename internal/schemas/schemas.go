// Package schemas ships the exchange export formats known out of the box.
package schemas

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"exchange-import/internal/schema"
)

//go:embed *.yaml
var declarations embed.FS

// Builtin compiles the embedded declarations in file name order.
func Builtin() ([]*schema.Schema, error) {
	names, err := fs.Glob(declarations, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]*schema.Schema, 0, len(names))
	for _, name := range names {
		data, err := declarations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		s, err := schema.Load(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Registry builds the registry of the builtin schemas plus the declarations found in
// dir, when dir is set. A declaration in dir replaces the builtin schema of the same id.
func Registry(dir string) (*schema.Registry, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("could not load builtin schemas: %w", err)
	}
	if dir == "" {
		return schema.NewRegistry(builtin...)
	}

	extra, err := schema.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not load schemas from %s: %w", dir, err)
	}
	overridden := make(map[string]bool, len(extra))
	for _, s := range extra {
		overridden[s.ID] = true
	}
	all := make([]*schema.Schema, 0, len(builtin)+len(extra))
	for _, s := range builtin {
		if !overridden[s.ID] {
			all = append(all, s)
		}
	}
	return schema.NewRegistry(append(all, extra...)...)
}
