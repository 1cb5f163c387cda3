package index

import (
	"fmt"

	"github.com/viant/bintly"
)

// Blob layout: one kind byte followed by a bintly-encoded payload. The
// blob is the authoritative persisted structure; the raw embeddings
// matrix is kept separately for rebuild and debugging only.
const (
	kindFlat = byte(1)
	kindIVF  = byte(2)
)

// Marshal serializes a built index into a single opaque blob.
func Marshal(idx Index) ([]byte, error) {
	switch concrete := idx.(type) {
	case *flatIndex:
		data, err := bintly.Marshal(concrete)
		if err != nil {
			return nil, err
		}
		return append([]byte{kindFlat}, data...), nil
	case *ivfIndex:
		data, err := bintly.Marshal(concrete)
		if err != nil {
			return nil, err
		}
		return append([]byte{kindIVF}, data...), nil
	}
	return nil, fmt.Errorf("index: unsupported index type %T", idx)
}

// Unmarshal reconstructs an index from a blob produced by Marshal.
func Unmarshal(blob []byte) (Index, error) {
	if len(blob) < 2 {
		return nil, fmt.Errorf("index: blob too short (%d bytes)", len(blob))
	}
	switch blob[0] {
	case kindFlat:
		idx := &flatIndex{}
		if err := bintly.Unmarshal(blob[1:], idx); err != nil {
			return nil, err
		}
		return idx, nil
	case kindIVF:
		idx := &ivfIndex{}
		if err := bintly.Unmarshal(blob[1:], idx); err != nil {
			return nil, err
		}
		return idx, nil
	}
	return nil, fmt.Errorf("index: unknown blob kind 0x%02x", blob[0])
}

// EncodeBinary encodes the flat index into a binary stream.
func (f *flatIndex) EncodeBinary(stream *bintly.Writer) error {
	stream.Int(f.dim)
	stream.Int(len(f.vectors))
	for _, vector := range f.vectors {
		for _, value := range vector {
			stream.Float32(value)
		}
	}
	return nil
}

// DecodeBinary decodes the flat index from a binary stream.
func (f *flatIndex) DecodeBinary(stream *bintly.Reader) error {
	stream.Int(&f.dim)
	var count int
	stream.Int(&count)
	f.vectors = make([][]float32, count)
	f.magnitudes = make([]float32, count)
	for i := 0; i < count; i++ {
		vector := make([]float32, f.dim)
		for j := 0; j < f.dim; j++ {
			stream.Float32(&vector[j])
		}
		f.vectors[i] = vector
		f.magnitudes[i] = magnitudeOf(vector)
	}
	return nil
}

// EncodeBinary encodes the clustered index into a binary stream.
func (v *ivfIndex) EncodeBinary(stream *bintly.Writer) error {
	stream.Int(v.dim)
	stream.Int(v.nlist)
	stream.Int(v.nprobe)
	for _, centroid := range v.centroids {
		for _, value := range centroid {
			stream.Float32(value)
		}
	}
	stream.Int(len(v.vectors))
	for _, vector := range v.vectors {
		for _, value := range vector {
			stream.Float32(value)
		}
	}
	for _, list := range v.lists {
		stream.Int(len(list))
		for _, position := range list {
			stream.Int(int(position))
		}
	}
	return nil
}

// DecodeBinary decodes the clustered index from a binary stream.
func (v *ivfIndex) DecodeBinary(stream *bintly.Reader) error {
	stream.Int(&v.dim)
	stream.Int(&v.nlist)
	stream.Int(&v.nprobe)
	v.centroids = make([][]float32, v.nlist)
	for i := 0; i < v.nlist; i++ {
		centroid := make([]float32, v.dim)
		for j := 0; j < v.dim; j++ {
			stream.Float32(&centroid[j])
		}
		v.centroids[i] = centroid
	}
	var count int
	stream.Int(&count)
	v.vectors = make([][]float32, count)
	v.magnitudes = make([]float32, count)
	for i := 0; i < count; i++ {
		vector := make([]float32, v.dim)
		for j := 0; j < v.dim; j++ {
			stream.Float32(&vector[j])
		}
		v.vectors[i] = vector
		v.magnitudes[i] = magnitudeOf(vector)
	}
	v.lists = make([][]int32, v.nlist)
	for i := 0; i < v.nlist; i++ {
		var size int
		stream.Int(&size)
		list := make([]int32, size)
		for j := 0; j < size; j++ {
			var position int
			stream.Int(&position)
			list[j] = int32(position)
		}
		v.lists[i] = list
	}
	return nil
}
