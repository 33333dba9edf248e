// Package checksum digests the volumes of a split stream concurrently.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jgoldverg/splitfile/backend/pool"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/store"
	"github.com/jgoldverg/splitfile/pkg/volume"
)

const (
	SHA256 = "sha256"
	XXHash = "xxhash"
)

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", SHA256:
		return sha256.New(), nil
	case XXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("unknown checksum algorithm %q, must be one of [%s, %s]", algorithm, SHA256, XXHash)
	}
}

// Volumes returns the hex digest of every volume in descs, in the same order.
// At most workers volumes are read at a time.
func Volumes(ctx context.Context, st store.Store, descs []volume.Descriptor, algorithm string, workers int) ([]string, error) {
	if _, err := newHash(algorithm); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	sums := make([]string, len(descs))
	wp := pool.NewWorkerPool[int](workers, len(descs))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer wp.CloseIngress()
		for slot := range descs {
			select {
			case wp.Ingress() <- slot:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		wp.Run(gctx, func(ctx context.Context, slot int) error {
			d := descs[slot]
			sum, err := digest(st, d, algorithm)
			if err != nil {
				return err
			}
			sums[slot] = sum
			internal.Trace("volume digested", internal.Fields{
				internal.FieldVolume: d.Name,
				internal.FieldIndex:  d.Index,
			})
			return nil
		})
		for err := range wp.Errors() {
			if err != nil {
				return err
			}
		}
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func digest(st store.Store, d volume.Descriptor, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	handle, err := st.Open(d.Name, store.FlagRead)
	if err != nil {
		return "", fmt.Errorf("checksum volume %d (%s): %w", d.Index, d.Name, err)
	}
	defer handle.Close()

	size, err := handle.Size()
	if err != nil {
		return "", fmt.Errorf("checksum volume %d (%s): %w", d.Index, d.Name, err)
	}
	if _, err := io.Copy(h, io.NewSectionReader(handle, 0, size)); err != nil {
		return "", fmt.Errorf("checksum volume %d (%s): %w", d.Index, d.Name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
