package util

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "could not create %s", dir)
	}
	return nil
}

// GatherAllMidiPaths walks path for .mid/.midi files in lexical order. A
// maxNum of 0 means no limit.
func GatherAllMidiPaths(path string, maxNum int) ([]string, error) {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			lower := strings.ToLower(s)
			if strings.HasSuffix(lower, ".mid") || strings.HasSuffix(lower, ".midi") {
				if maxNum == 0 || len(res) < maxNum {
					res = append(res, s)
				}
			}
		}
		return nil
	}
	if err := filepath.WalkDir(path, walk); err != nil {
		return nil, err
	}
	return res, nil
}

func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}

// CreateBinary gob-encodes data into filename. The file is written next to
// its destination first and renamed into place.
func CreateBinary(filename string, data any) error {
	buf := new(bytes.Buffer)
	encoder := gob.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return errors.Wrap(err, "could not encode binary")
	}

	if err := EnsureDir(filepath.Dir(filename)); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "couldn't open file for %s", filename)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err = f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errors.Wrapf(err, "write failed for file %s", filename)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "close failed for file %s", filename)
	}
	if err = os.Rename(tmp, filename); err != nil {
		return errors.Wrapf(err, "could not move binary into %s", filename)
	}
	return nil
}

func ReadBinary[A any](path string) (A, error) {
	var data A
	f, err := os.Open(path)
	if err != nil {
		return data, errors.Wrap(err, "could not load binary file")
	}
	defer f.Close()

	decoder := gob.NewDecoder(f)
	if err = decoder.Decode(&data); err != nil {
		return data, errors.Wrapf(err, "could not decode binary file %s", path)
	}
	return data, nil
}

func Min[A constraints.Integer](num1 A, num2 A) A {
	if num1 > num2 {
		return num2
	}
	return num1
}

// Assert halts the program when a shape or configuration invariant breaks.
// These are programming errors, not runtime conditions to recover from.
func Assert(assertion bool, format string, args ...interface{}) {
	if !assertion {
		panic(fmt.Sprintf(format, args...))
	}
}
