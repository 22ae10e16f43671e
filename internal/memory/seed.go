// file: internal/memory/seed.go
package memory

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by LoadSeed.
type seedFile struct {
	Entries []Entry `yaml:"entries"`
}

// LoadSeed reads entries from a YAML file and puts them into store. It returns the number
// of entries written.
func LoadSeed(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read seed file %s", path)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, errors.Wrapf(err, "failed to parse seed file %s", path)
	}
	for i, e := range f.Entries {
		if _, err := store.Put(ctx, e); err != nil {
			return i, errors.Wrapf(err, "seed entry %d", i)
		}
	}
	return len(f.Entries), nil
}
