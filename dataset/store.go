package dataset

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/psmgo/blobstore"
	"github.com/hupe1980/psmgo/table"
)

// CurrentName is the blob that Publish points at the latest result.
const CurrentName = "CURRENT"

// Load reads and decodes the named blob. Compression is detected from the
// content.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...func(o *Options)) (*table.Table, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", name, err)
	}
	defer func() { _ = b.Close() }()

	if b.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, name)
	}

	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	return Decode(r, append([]func(*Options){func(o *Options) { o.Name = name }}, optFns...)...)
}

// LoadPair loads the experiment and control tables concurrently.
func LoadPair(ctx context.Context, store blobstore.BlobStore, experimentName, controlName string) (*table.Table, *table.Table, error) {
	var experiment, control *table.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := Load(gctx, store, experimentName)
		experiment = t
		return err
	})
	g.Go(func() error {
		t, err := Load(gctx, store, controlName)
		control = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return experiment, control, nil
}

// Save encodes t and writes it atomically under name. The compression is
// chosen from the name suffix (".zst", ".lz4") unless optFns set one.
func Save(ctx context.Context, store blobstore.BlobStore, name string, t *table.Table, optFns ...func(o *Options)) error {
	opts := append([]func(*Options){func(o *Options) {
		o.Compression = CompressionFromName(name)
		o.Name = name
	}}, optFns...)

	var buf bytes.Buffer
	if err := Encode(&buf, t, opts...); err != nil {
		return err
	}
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("dataset: put %s: %w", name, err)
	}
	return nil
}

// Publish saves t under name and then points CURRENT at it.
//
// With a store that commits CURRENT conditionally (s3.DDBCommitStore) a
// racing publisher gets that store's conflict error and t stays saved but
// unpublished.
func Publish(ctx context.Context, store blobstore.BlobStore, name string, t *table.Table) error {
	if err := Save(ctx, store, name, t); err != nil {
		return err
	}
	if err := store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return fmt.Errorf("dataset: publish %s: %w", name, err)
	}
	return nil
}

// Current loads the table CURRENT points at.
func Current(ctx context.Context, store blobstore.BlobStore) (string, *table.Table, error) {
	ptr, err := blobstore.ReadAll(ctx, store, CurrentName)
	if err != nil {
		return "", nil, fmt.Errorf("dataset: read %s: %w", CurrentName, err)
	}
	name := string(bytes.TrimSpace(ptr))
	t, err := Load(ctx, store, name)
	if err != nil {
		return "", nil, err
	}
	return name, t, nil
}
