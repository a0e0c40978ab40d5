package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/roach88/cachegc/internal/storepath"
)

var (
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// DecodeError reports input that cannot be turned into records.
type DecodeError struct {
	Source string // source name
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode reads a JSON array of records from r, decompressing it first
// when it starts with a zstd, lz4, gzip or framed snappy header.
func Decode(name string, r io.Reader) ([]storepath.Record, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(snappyMagic))

	var in io.Reader = br
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, &DecodeError{Source: name, Err: fmt.Errorf("zstd reader: %w", err)}
		}
		defer zr.Close()
		in = zr
	case bytes.HasPrefix(head, lz4Magic):
		in = lz4.NewReader(br)
	case bytes.HasPrefix(head, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, &DecodeError{Source: name, Err: fmt.Errorf("gzip reader: %w", err)}
		}
		defer gr.Close()
		in = gr
	case bytes.HasPrefix(head, snappyMagic):
		in = snappy.NewReader(br)
	}

	var records []storepath.Record
	dec := json.NewDecoder(in)
	if err := dec.Decode(&records); err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Source: name, Err: fmt.Errorf("unexpected data after record list")}
	}
	if err := validate(records); err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}
	return records, nil
}

func validate(records []storepath.Record) error {
	for i, rec := range records {
		if rec.Path == "" {
			return fmt.Errorf("record %d: empty path", i)
		}
		if rec.DownloadSize < 0 {
			return fmt.Errorf("record %d (%s): negative downloadSize %d", i, rec.Path, rec.DownloadSize)
		}
	}
	return nil
}
