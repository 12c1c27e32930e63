// Package batch loads batch files of prescription and remark submissions and
// runs them against a prescription.Service.
package batch

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/dshills/prescribe/internal/schema"
	"github.com/dshills/prescribe/internal/schema/validate"
)

// File is a loaded, schema-checked batch file.
type File struct {
	Path  string
	Hash  string // "sha256:<hex>" of the raw bytes
	Batch *schema.Batch
}

// Load reads a batch file from disk, hashes it and parses it.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	b, err := validate.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &File{
		Path:  path,
		Hash:  fmt.Sprintf("sha256:%x", sha256.Sum256(data)),
		Batch: b,
	}, nil
}

// LoadAll loads each path in order and stops at the first failure.
func LoadAll(paths []string) ([]*File, error) {
	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, fmt.Errorf("loading batch file %q: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}
