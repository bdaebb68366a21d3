package dataset

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
)

var matrixRegexp = regexp.MustCompile(`(?i)^[^.].*\.csv$`)

// DiscoverMatrices returns the paths of expression matrices (*.csv) beneath root, sorted.
func DiscoverMatrices(root string) ([]string, error) {
	entries := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matrixRegexp.MatchString(d.Name()) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover matrices")
	}
	sort.Strings(entries)
	return entries, nil
}
