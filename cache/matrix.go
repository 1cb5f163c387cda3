package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embedding matrix layout: uint32 row count, uint32 dimension, then
// rows*dimension little-endian float32 values.

const matrixHeaderSize = 8

func encodeMatrix(vectors [][]float32) ([]byte, error) {
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	data := make([]byte, matrixHeaderSize+len(vectors)*dimension*4)
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(data[4:8], uint32(dimension))
	offset := matrixHeaderSize
	for i, vector := range vectors {
		if len(vector) != dimension {
			return nil, fmt.Errorf("row %d has dimension %d, want %d", i, len(vector), dimension)
		}
		for _, value := range vector {
			binary.LittleEndian.PutUint32(data[offset:offset+4], math.Float32bits(value))
			offset += 4
		}
	}
	return data, nil
}

func decodeMatrix(data []byte) ([][]float32, error) {
	if len(data) < matrixHeaderSize {
		return nil, fmt.Errorf("matrix blob too short: %d bytes", len(data))
	}
	rows := int(binary.LittleEndian.Uint32(data[0:4]))
	dimension := int(binary.LittleEndian.Uint32(data[4:8]))
	expected := matrixHeaderSize + rows*dimension*4
	if len(data) != expected {
		return nil, fmt.Errorf("matrix blob has %d bytes, want %d for %dx%d", len(data), expected, rows, dimension)
	}
	vectors := make([][]float32, rows)
	offset := matrixHeaderSize
	for i := range vectors {
		vector := make([]float32, dimension)
		for j := range vector {
			vector[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4
		}
		vectors[i] = vector
	}
	return vectors, nil
}
