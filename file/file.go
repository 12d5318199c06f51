package file

import (
	"fmt"
	"path/filepath"

	"github.com/jsphweid/biaxial/model"
)

func CreateFileNumMap(paths []string) model.FileNumToMidiPath {
	res := make(model.FileNumToMidiPath)
	for i, v := range paths {
		res[uint32(i)] = v
	}
	return res
}

// ResultPath is where composition i of a generation run is written.
func ResultPath(outDir string, i int) string {
	return filepath.Join(outDir, fmt.Sprintf("result_%d.mid", i))
}
