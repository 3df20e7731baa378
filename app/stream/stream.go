// Package stream reads the item array of a downloaded feed one element
// at a time, so multi-hundred-megabyte exports never sit in memory whole.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/lysyi3m/video-comb/app/feed"
)

const bufferSize = 64 * 1024

var (
	// ErrPointerNotFound means the JSON pointer names nothing in the file.
	ErrPointerNotFound = errors.New("json pointer not found")
	ErrMalformed       = errors.New("malformed feed")
)

// ItemFunc receives one raw array element. The slice is owned by the
// callee. Returning feed.ErrStop ends the parse without an error.
type ItemFunc func(raw []byte) error

type Options struct {
	// Pointer locates the item array; empty means the top-level array.
	Pointer string
	// Silent turns a missing pointer into an empty result.
	Silent bool
	// Truncated accepts a file cut short by a stopped download: the
	// incomplete tail ends the stream instead of failing it.
	Truncated bool
}

type Result struct {
	Items int
	Bytes int64
	// Stopped is set when a callback returned feed.ErrStop or a
	// truncated file ended early.
	Stopped bool
}

// Parse walks the array in the file at path, calling onItem for every
// element and then onProgress with the file size and the bytes consumed
// by items so far.
func Parse(ctx context.Context, path string, opts Options, onItem ItemFunc, onProgress feed.ProgressFunc) (Result, error) {
	tokens, err := splitPointer(opts.Pointer)
	if err != nil {
		return Result{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("failed to stat feed file: %w", err)
	}
	size := info.Size()

	iter := jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, file, bufferSize)

	found, err := seek(iter, tokens)
	if err != nil {
		if opts.Truncated && iter.Error != nil {
			return Result{Stopped: true}, nil
		}
		return Result{}, err
	}
	if !found {
		if opts.Silent {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("%w: %q", ErrPointerNotFound, opts.Pointer)
	}

	switch iter.WhatIsNext() {
	case jsoniter.ArrayValue:
	case jsoniter.NilValue:
		return Result{}, nil
	default:
		if opts.Truncated && iter.Error != nil {
			return Result{Stopped: true}, nil
		}
		return Result{}, fmt.Errorf("%w: value at %q is not an array", ErrMalformed, opts.Pointer)
	}

	var res Result
	for iter.ReadArray() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		raw := iter.SkipAndReturnBytes()
		if iter.Error != nil {
			break
		}

		res.Items++
		res.Bytes += int64(len(raw))

		// Progress covers every item handed to onItem, including the one
		// that asks to stop.
		itemErr := onItem(raw)
		if itemErr != nil && !errors.Is(itemErr, feed.ErrStop) {
			return res, itemErr
		}
		if onProgress != nil {
			if err := onProgress(size, res.Bytes); err != nil {
				if errors.Is(err, feed.ErrStop) {
					res.Stopped = true
					return res, nil
				}
				return res, err
			}
		}
		if itemErr != nil {
			res.Stopped = true
			return res, nil
		}
	}

	if iter.Error != nil {
		if opts.Truncated {
			res.Stopped = true
			return res, nil
		}
		return res, fmt.Errorf("%w: %v", ErrMalformed, iter.Error)
	}
	return res, nil
}

// seek advances iter to the value named by tokens. It reports false when
// some token has no match.
func seek(iter *jsoniter.Iterator, tokens []string) (bool, error) {
	for _, token := range tokens {
		switch iter.WhatIsNext() {
		case jsoniter.ObjectValue:
			matched := false
			for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
				if field == token {
					matched = true
					break
				}
				iter.Skip()
			}
			if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
				return false, fmt.Errorf("%w: %v", ErrMalformed, iter.Error)
			}
			if !matched {
				return false, nil
			}

		case jsoniter.ArrayValue:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 {
				return false, nil
			}
			matched := false
			for i := 0; iter.ReadArray(); i++ {
				if i == index {
					matched = true
					break
				}
				iter.Skip()
			}
			if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
				return false, fmt.Errorf("%w: %v", ErrMalformed, iter.Error)
			}
			if !matched {
				return false, nil
			}

		case jsoniter.InvalidValue:
			return false, fmt.Errorf("%w: %v", ErrMalformed, iter.Error)

		default:
			return false, nil
		}
	}
	return true, nil
}

// splitPointer decodes an RFC 6901 pointer into reference tokens.
func splitPointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid json pointer %q", pointer)
	}

	parts := strings.Split(pointer[1:], "/")
	replacer := strings.NewReplacer("~1", "/", "~0", "~")
	for i, p := range parts {
		parts[i] = replacer.Replace(p)
	}
	return parts, nil
}
