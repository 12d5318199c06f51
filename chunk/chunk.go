package chunk

import (
	"github.com/jsphweid/biaxial/util"
)

// Stagger prepends a zero step to data and cuts it into overlapping windows of
// timeSteps inputs, each paired with the same window shifted forward by one.
// A sequence of n steps yields n-timeSteps pairs.
func Stagger[A any](data [][]A, timeSteps int) (xs [][][]A, ys [][][]A) {
	if len(data) == 0 {
		return nil, nil
	}

	padded := make([][]A, 0, len(data)+1)
	padded = append(padded, make([]A, len(data[0])))
	padded = append(padded, data...)

	for i := 0; i < len(padded)-timeSteps-1; i++ {
		xs = append(xs, padded[i:i+timeSteps])
		ys = append(ys, padded[i+1:i+timeSteps+1])
	}
	return xs, ys
}

// Unstagger rebuilds the steps covered by staggered windows, dropping the
// leading zero step Stagger added. For windows staggered from n steps it
// returns seq[:n-1]: Stagger stops at n-timeSteps windows, so the last step is
// never a target and cannot be recovered.
func Unstagger[A any](xs, ys [][][]A) [][]A {
	util.Assert(len(xs) == len(ys), "Unstagger: %d inputs for %d targets", len(xs), len(ys))
	if len(xs) == 0 {
		return nil
	}

	var res [][]A
	for i := range xs {
		// each window advances by one step, so take its first target step
		res = append(res, ys[i][0])
	}
	last := ys[len(ys)-1]
	res = append(res, last[1:]...)
	return res
}

// Chunk groups items into full batches of size. A trailing partial batch is
// dropped because the network is built for a fixed batch shape.
func Chunk[A any](items []A, size int) [][]A {
	util.Assert(size > 0, "Chunk: size %d", size)
	var res [][]A
	for i := 0; i+size <= len(items); i += size {
		res = append(res, items[i:i+size])
	}
	return res
}

// Offsets returns the starting step of every window Stagger would produce for
// n steps, used to align per-step features with the windows.
func Offsets(n, timeSteps int) []int {
	var res []int
	for i := 0; i < n-timeSteps; i++ {
		res = append(res, i)
	}
	return res
}
