// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package compression reads snapshot files that may be zstd compressed.
package compression

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrInvalidMaxSize = errors.New("invalid max size")
	ErrTooLarge       = errors.New("input too large")

	// zstdMagic starts every zstd frame.
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// NewReader returns the content of r, decompressing it first if it is a zstd
// stream. Reading more than maxSize bytes of content fails with ErrTooLarge.
func NewReader(r io.Reader, maxSize int64) (io.ReadCloser, error) {
	// The limit reader reads maxSize+1 bytes to detect overflow.
	if maxSize <= 0 || maxSize == math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxSize, maxSize)
	}

	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var (
		src   io.Reader = buffered
		closeFn         = func() {}
	)
	if bytes.Equal(head, zstdMagic) {
		decoder, err := zstd.NewReader(buffered, zstd.WithDecoderMaxMemory(uint64(maxSize)))
		if err != nil {
			return nil, err
		}
		src = decoder
		closeFn = decoder.Close
	}
	return &limitedReader{
		r:         io.LimitReader(src, maxSize+1),
		remaining: maxSize,
		close:     closeFn,
	}, nil
}

type limitedReader struct {
	r         io.Reader
	remaining int64
	close     func()
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (l *limitedReader) Close() error {
	l.close()
	return nil
}

// Compress returns msg as a single zstd frame.
func Compress(msg []byte, level zstd.EncoderLevel) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(msg, nil), nil
}
