package common

import (
	"unsafe"
)

// Matrix34 is a row-major 3x4 affine transform as used by tracked device poses.
// The first three columns hold the rotation/scale basis and the last column holds the translation in meters.
type Matrix34 [3][4]float32

// Identity34 returns the identity 3x4 transform.
//
// Returns:
//   - Matrix34: the identity transform
func Identity34() Matrix34 {
	return Matrix34{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Translation34 returns a 3x4 transform that only translates by the given offset.
//
// Parameters:
//   - x, y, z: the translation in meters
//
// Returns:
//   - Matrix34: the translation transform
func Translation34(x, y, z float32) Matrix34 {
	m := Identity34()
	m[0][3] = x
	m[1][3] = y
	m[2][3] = z
	return m
}

// Mul34 composes two affine transforms treating each as a 4x4 matrix with an implicit [0 0 0 1] bottom row.
// Result: a * b, so b is applied first.
//
// Parameters:
//   - a: left-hand transform
//   - b: right-hand transform
//
// Returns:
//   - Matrix34: the composed transform
func Mul34(a, b Matrix34) Matrix34 {
	var out Matrix34
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			sum := a[row][0]*b[0][col] + a[row][1]*b[1][col] + a[row][2]*b[2][col]
			if col == 3 {
				sum += a[row][3]
			}
			out[row][col] = sum
		}
	}
	return out
}

// Translation returns the translation column of the transform.
//
// Returns:
//   - [3]float32: the x, y, z translation in meters
func (m Matrix34) Translation() [3]float32 {
	return [3]float32{m[0][3], m[1][3], m[2][3]}
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
