// Package splitfile presents a sequence of bounded size volumes as a single
// readable, writable and seekable file.
//
// Volume k holds bytes [k*VolumeSize, (k+1)*VolumeSize) of the logical
// stream. Every volume but the last is exactly full; volumes are created on
// demand while writing and discovered by probing while opening. Nothing but
// the volumes themselves is persisted.
//
// A File is not safe for concurrent use.
package splitfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/jgoldverg/splitfile/backend/pool"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/naming"
	"github.com/jgoldverg/splitfile/pkg/store"
	"github.com/jgoldverg/splitfile/pkg/volume"
)

// File is an open split stream. It implements io.ReadWriteSeeker,
// io.ReaderAt and io.WriterAt over the volume chain.
type File struct {
	store    store.Store
	opts     Options
	geometry volume.Geometry
	observer Observer

	// sizes[i] is the probed or tracked size of volume i. The chain is
	// always dense: len(sizes) volumes exist and nothing past them does.
	sizes   []int64
	pos     int64
	handles *pool.HandleCache[int, store.Handle]
	closed  bool
	log     *internal.Entry
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.ReaderAt        = (*File)(nil)
	_ io.WriterAt        = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// Open establishes a split file over st according to opts.
//
// Write-truncate creates or empties volume 0 and removes every later volume.
// Write-append creates volume 0 when missing and positions the cursor at the
// end. Read and read-write require volume 0 to exist and never create it.
func Open(st store.Store, opts Options) (*File, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	geometry, err := volume.NewGeometry(opts.VolumeSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.Namer == nil {
		opts.Namer = naming.Suffix{}
	}

	f := &File{
		store:    st,
		opts:     opts,
		geometry: geometry,
		observer: opts.Observer,
	}
	f.log = internal.WithFields(internal.Fields{
		internal.FieldBase: opts.Base,
		internal.FieldMode: opts.Mode.String(),
	})
	if f.observer == nil {
		f.observer = nopObserver{}
	}
	f.handles, err = pool.NewHandleCache[int, store.Handle](opts.HandleCacheLimit, f.onEvict)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch opts.Mode {
	case ModeWriteTruncate:
		err = f.openTruncate()
	case ModeWriteAppend:
		err = f.openAppend()
	default:
		err = f.probe()
	}
	if err != nil {
		_ = f.handles.Close()
		return nil, err
	}

	if opts.Mode == ModeWriteAppend {
		f.pos = f.length()
	}

	f.log.Debug("split file opened", internal.Fields{
		internal.FieldSize:   opts.VolumeSize,
		internal.FieldLength: f.length(),
		internal.FieldLimit:  opts.HandleCacheLimit,
	})
	return f, nil
}

func (f *File) openTruncate() error {
	flag := store.FlagWrite | store.FlagCreate | store.FlagTruncate
	if f.opts.Exclusive {
		flag |= store.FlagExclusive
	}
	h, err := f.store.Open(f.volumeName(0), flag)
	if err != nil {
		return f.volumeErr("create", 0, err)
	}
	if err := f.handles.Put(0, h); err != nil {
		return f.volumeErr("create", 0, err)
	}
	f.sizes = []int64{0}
	f.observer.ObserveVolume(VolumeCreated, 0)
	return f.removeFrom(1)
}

func (f *File) openAppend() error {
	_, err := f.store.Stat(f.volumeName(0))
	switch {
	case errors.Is(err, store.ErrNotExist):
		flag := store.FlagWrite | store.FlagCreate
		if f.opts.Exclusive {
			flag |= store.FlagExclusive
		}
		h, err := f.store.Open(f.volumeName(0), flag)
		if err != nil {
			return f.volumeErr("create", 0, err)
		}
		if err := f.handles.Put(0, h); err != nil {
			return f.volumeErr("create", 0, err)
		}
		f.sizes = []int64{0}
		f.observer.ObserveVolume(VolumeCreated, 0)
		return nil
	case err != nil:
		return f.volumeErr("probe", 0, err)
	case f.opts.Exclusive:
		return f.volumeErr("create", 0, store.ErrExist)
	}
	return f.probe()
}

// probe discovers the volume chain from volume 0 up to the first absent
// volume.
func (f *File) probe() error {
	sizes := make([]int64, 0, 1)
	for i := 0; ; i++ {
		size, err := f.store.Stat(f.volumeName(i))
		if errors.Is(err, store.ErrNotExist) && i > 0 {
			break
		}
		if err != nil {
			return f.volumeErr("probe", i, err)
		}
		sizes = append(sizes, size)
	}
	f.sizes = sizes
	return f.checkDensity()
}

// probeTail re-probes the last volume and anything that may have been added
// after it. Only read-only files do this, since writable files track every
// change themselves.
func (f *File) probeTail() error {
	last := len(f.sizes) - 1
	size, err := f.volumeSize(last)
	if err != nil {
		return err
	}
	f.sizes[last] = size
	for f.sizes[len(f.sizes)-1] == f.geometry.MaxSize() {
		next := len(f.sizes)
		size, err := f.store.Stat(f.volumeName(next))
		if errors.Is(err, store.ErrNotExist) {
			break
		}
		if err != nil {
			return f.volumeErr("probe", next, err)
		}
		f.sizes = append(f.sizes, size)
	}
	return f.checkDensity()
}

func (f *File) volumeSize(index int) (int64, error) {
	if h, ok := f.handles.Get(index); ok {
		size, err := h.Size()
		if err != nil {
			return 0, f.volumeErr("stat", index, err)
		}
		return size, nil
	}
	size, err := f.store.Stat(f.volumeName(index))
	if err != nil {
		return 0, f.volumeErr("probe", index, err)
	}
	return size, nil
}

func (f *File) checkDensity() error {
	if err := f.geometry.CheckDensity(f.descriptors()); err != nil {
		return fmt.Errorf("%w: %w", ErrLogic, err)
	}
	return nil
}

func (f *File) descriptors() []volume.Descriptor {
	descs := make([]volume.Descriptor, len(f.sizes))
	for i, size := range f.sizes {
		descs[i] = volume.Descriptor{
			Index: i,
			Name:  f.volumeName(i),
			Size:  size,
			Known: true,
		}
	}
	return descs
}

func (f *File) length() int64 {
	var total int64
	for _, size := range f.sizes {
		total += size
	}
	return total
}

func (f *File) volumeName(index int) string {
	return f.opts.Namer.Name(f.opts.Base, index)
}

func (f *File) volumeErr(op string, index int, err error) error {
	return &VolumeError{Op: op, Index: index, Name: f.volumeName(index), Err: err}
}

func (f *File) onEvict(index int) {
	f.observer.ObserveVolume(VolumeEvicted, index)
	f.log.Trace("volume handle evicted", internal.Fields{
		internal.FieldVolume: f.volumeName(index),
		internal.FieldIndex:  index,
	})
}

// handle returns the open handle for an existing volume, opening it if it is
// not cached.
func (f *File) handle(index int) (store.Handle, error) {
	if h, ok := f.handles.Get(index); ok {
		return h, nil
	}
	if err := f.handles.MakeRoom(); err != nil {
		return nil, fmt.Errorf("release least recently used volume: %w", err)
	}
	h, err := f.store.Open(f.volumeName(index), f.opts.Mode.openFlag())
	if err != nil {
		return nil, f.volumeErr("open", index, err)
	}
	f.observer.ObserveVolume(VolumeOpened, index)
	if err := f.handles.Put(index, h); err != nil {
		return nil, fmt.Errorf("release least recently used volume: %w", err)
	}
	return h, nil
}

// createVolume adds the volume at the frontier. The previous volume must be
// full, otherwise the chain would stop being dense.
func (f *File) createVolume(index int) (store.Handle, error) {
	if index != len(f.sizes) {
		return nil, fmt.Errorf("%w: cannot create volume %d, frontier is %d", ErrLogic, index, len(f.sizes))
	}
	if prev := f.sizes[index-1]; prev != f.geometry.MaxSize() {
		return nil, fmt.Errorf("%w: cannot create volume %d, volume %d holds %d of %d bytes",
			ErrLogic, index, index-1, prev, f.geometry.MaxSize())
	}

	if err := f.handles.MakeRoom(); err != nil {
		return nil, fmt.Errorf("release least recently used volume: %w", err)
	}
	flag := f.opts.Mode.openFlag() | store.FlagCreate | store.FlagTruncate
	h, err := f.store.Open(f.volumeName(index), flag)
	if err != nil {
		return nil, f.volumeErr("create", index, err)
	}
	f.sizes = append(f.sizes, 0)
	f.observer.ObserveVolume(VolumeCreated, index)
	f.log.Debug("volume created", internal.Fields{
		internal.FieldVolume: f.volumeName(index),
		internal.FieldIndex:  index,
	})
	if err := f.handles.Put(index, h); err != nil {
		return nil, fmt.Errorf("release least recently used volume: %w", err)
	}
	return h, nil
}

func (f *File) volumeForWrite(index int) (store.Handle, error) {
	if index < len(f.sizes) {
		return f.handle(index)
	}
	return f.createVolume(index)
}

// removeFrom deletes volume index and every volume after it until the first
// absent one.
func (f *File) removeFrom(index int) error {
	for i := index; ; i++ {
		if err := f.handles.Release(i); err != nil {
			return f.volumeErr("close", i, err)
		}
		err := f.store.Remove(f.volumeName(i))
		if errors.Is(err, store.ErrNotExist) {
			return nil
		}
		if err != nil {
			return f.volumeErr("remove", i, err)
		}
		f.observer.ObserveVolume(VolumeDeleted, i)
		f.log.Debug("volume removed", internal.Fields{
			internal.FieldVolume: f.volumeName(i),
			internal.FieldIndex:  i,
		})
	}
}

func (f *File) checkOpen() error {
	if f == nil || f.closed {
		return ErrClosed
	}
	return nil
}

// Name returns the base identifier.
func (f *File) Name() string { return f.opts.Base }

// Mode returns the mode the file was opened with.
func (f *File) Mode() Mode { return f.opts.Mode }

// VolumeSize returns the maximum size of every volume in bytes.
func (f *File) VolumeSize() int64 { return f.geometry.MaxSize() }

// Volumes describes the known volume chain in index order.
func (f *File) Volumes() []volume.Descriptor {
	return f.descriptors()
}

// Len returns the logical length of the stream.
func (f *File) Len() (int64, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if f.opts.Mode == ModeRead {
		if err := f.probeTail(); err != nil {
			return 0, err
		}
	}
	return volume.LogicalLength(f.descriptors())
}

func (f *File) Read(p []byte) (int, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if !f.opts.Mode.readable() {
		return 0, errNotReadable
	}
	n, err := f.readAt(p, f.pos)
	f.pos += int64(n)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

// ReadAt reads len(p) bytes at logical offset off. As io.ReaderAt requires,
// a short read returns io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if !f.opts.Mode.readable() {
		return 0, errNotReadable
	}
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	n, err := f.readAt(p, off)
	if err == nil && n < len(p) {
		return n, io.EOF
	}
	return n, err
}

// readAt stops at the first volume that is absent or ends early. A short
// result is not an error.
func (f *File) readAt(p []byte, off int64) (int, error) {
	total := 0
	for _, span := range f.geometry.Plan(off, int64(len(p))) {
		if span.Index >= len(f.sizes) {
			break
		}
		avail := f.sizes[span.Index] - span.Offset
		if avail <= 0 {
			break
		}
		want := span.Length
		if avail < want {
			want = avail
		}

		h, err := f.handle(span.Index)
		if err != nil {
			f.observer.ObserveRead(total)
			return total, err
		}
		n, err := h.ReadAt(p[total:total+int(want)], span.Offset)
		total += n
		if err != nil && !errors.Is(err, io.EOF) {
			f.observer.ObserveRead(total)
			return total, f.volumeErr("read", span.Index, err)
		}
		if int64(n) < span.Length {
			break
		}
	}
	f.observer.ObserveRead(total)
	return total, nil
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if !f.opts.Mode.writable() {
		return 0, errNotWritable
	}
	n, err := f.writeAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// WriteAt writes p at logical offset off without moving the cursor.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if !f.opts.Mode.writable() {
		return 0, errNotWritable
	}
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	return f.writeAt(p, off)
}

// writeAt has no rollback: sub-writes that landed before a failure stay
// recorded.
func (f *File) writeAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.fillTo(off); err != nil {
		return 0, err
	}

	written := 0
	defer func() { f.observer.ObserveWrite(written) }()
	for _, span := range f.geometry.Plan(off, int64(len(p))) {
		h, err := f.volumeForWrite(span.Index)
		if err != nil {
			return written, err
		}
		n, err := h.WriteAt(p[written:written+int(span.Length)], span.Offset)
		if n > 0 {
			f.grow(span.Index, span.Offset+int64(n))
		}
		written += n
		if err != nil {
			return written, f.volumeErr("write", span.Index, err)
		}
		if int64(n) < span.Length {
			return written, f.volumeErr("write", span.Index, io.ErrShortWrite)
		}
	}
	return written, nil
}

func (f *File) grow(index int, end int64) {
	if end > f.geometry.MaxSize() {
		end = f.geometry.MaxSize()
	}
	if end > f.sizes[index] {
		f.sizes[index] = end
	}
}

// fillTo zero-fills the stream up to the start of the volume holding off,
// when off lies beyond the current end. The last volume is extended to full
// size and any volumes in between are created full; the store fills the hole
// inside the target volume itself.
func (f *File) fillTo(off int64) error {
	if off <= f.length() {
		return nil
	}
	target, _ := f.geometry.Locate(off)
	last := len(f.sizes) - 1
	if target == last {
		return nil
	}

	full := f.geometry.MaxSize()
	for i := last; i < target; i++ {
		if i < len(f.sizes) && f.sizes[i] == full {
			continue
		}
		h, err := f.volumeForWrite(i)
		if err != nil {
			return err
		}
		if err := h.Truncate(full); err != nil {
			return f.volumeErr("extend", i, err)
		}
		f.sizes[i] = full
	}
	f.log.Debug("zero filled gap", internal.Fields{
		internal.FieldIndex:  target,
		internal.FieldLength: f.length(),
	})
	return nil
}

// Seek sets the cursor. Seeking past the end is allowed; a later write
// zero-fills the gap.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		length, err := f.Len()
		if err != nil {
			return 0, err
		}
		base = length
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidWhence, whence)
	}

	abs := base + offset
	if abs < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeOffset, abs)
	}
	f.pos = abs
	return abs, nil
}

// Truncate resizes the logical stream. Shrinking removes whole trailing
// volumes and cuts the new last one; growing zero-fills. The cursor is not
// moved.
func (f *File) Truncate(size int64) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if !f.opts.Mode.writable() {
		return errNotWritable
	}
	if size < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeOffset, size)
	}

	length := f.length()
	switch {
	case size == length:
		return nil
	case size > length:
		if err := f.fillTo(size); err != nil {
			return err
		}
	default:
		last, _ := f.geometry.Locate(size)
		if last > 0 && f.geometry.Position(last, 0) == size {
			last--
		}
		// Remove from the top down so a failure leaves the chain dense.
		for i := len(f.sizes) - 1; i > last; i-- {
			if err := f.handles.Release(i); err != nil {
				return f.volumeErr("close", i, err)
			}
			if err := f.store.Remove(f.volumeName(i)); err != nil && !errors.Is(err, store.ErrNotExist) {
				return f.volumeErr("remove", i, err)
			}
			f.sizes = f.sizes[:i]
			f.observer.ObserveVolume(VolumeDeleted, i)
		}
	}

	index, rem := f.geometry.Locate(size)
	if index >= len(f.sizes) && rem == 0 {
		// size falls on the boundary right after the last, now full, volume.
		return nil
	}
	if index < len(f.sizes) && f.sizes[index] == rem {
		return nil
	}
	h, err := f.volumeForWrite(index)
	if err != nil {
		return err
	}
	if err := h.Truncate(rem); err != nil {
		return f.volumeErr("truncate", index, err)
	}
	f.sizes[index] = rem
	return nil
}

// Sync flushes every open volume. Volumes stay open.
func (f *File) Sync() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	return f.handles.Each(func(index int, h store.Handle) error {
		if err := h.Sync(); err != nil {
			return f.volumeErr("sync", index, err)
		}
		return nil
	})
}

// Close flushes and releases every volume. Any later call fails with
// ErrClosed.
func (f *File) Close() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	syncErr := f.Sync()
	closeErr := f.handles.Close()
	f.closed = true
	f.log.Debug("split file closed", internal.Fields{
		internal.FieldLength: f.length(),
	})
	return errors.Join(syncErr, closeErr)
}
