package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// importsOf returns the imports of the non-test Go files in dir, keyed by file name.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}

	fset := token.NewFileSet()
	out := make(map[string][]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("failed to parse %s: %v", name, err)
			continue
		}
		for _, imp := range f.Imports {
			out[name] = append(out[name], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnlyStdlib verifies the Golden Rule: pkg/core imports only stdlib.
func TestCoreImportsOnlyStdlib(t *testing.T) {
	for file, imports := range importsOf(t, ".") {
		for _, imp := range imports {
			if strings.Contains(imp, ".") {
				t.Errorf("%s imports non-stdlib package: %s", file, imp)
			}
		}
	}
}

// TestPublicPackagesDoNotImportInternal keeps pkg/ usable outside this module.
func TestPublicPackagesDoNotImportInternal(t *testing.T) {
	for _, dir := range []string{".", "../schema", "../correlation", "../adapters/duckdb"} {
		t.Run(filepath.Base(dir), func(t *testing.T) {
			for file, imports := range importsOf(t, dir) {
				for _, imp := range imports {
					if strings.Contains(imp, "/internal/") {
						t.Errorf("%s imports internal package: %s", file, imp)
					}
				}
			}
		})
	}
}
