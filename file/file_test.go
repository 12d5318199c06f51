package file

import (
	"path/filepath"
	"testing"

	"github.com/jsphweid/biaxial/model"
	"github.com/stretchr/testify/assert"
)

func TestCreateFileNumMap(t *testing.T) {
	res := CreateFileNumMap([]string{"a.mid", "b.mid"})
	assert.Equal(t, model.FileNumToMidiPath{0: "a.mid", 1: "b.mid"}, res)
}

func TestResultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "result_3.mid"), ResultPath("out", 3))
}
