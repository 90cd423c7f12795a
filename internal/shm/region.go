// Package shm implements the PSHM shared-memory transport: POSIX shared
// memory region lifecycle, a single-writer publish path, and a
// multi-reader consume path with epoch-fenced rebind support. Grounded on
// pipit::shm::ShmRegion/ShmWriter/ShmReader (pipit_shm.h).
//
// golang.org/x/sys/unix has no shm_open wrapper, so POSIX shared memory
// semantics are reproduced directly over /dev/shm/<name> files using
// unix.Open/Ftruncate/Mmap/Munmap/Unlink — the same backing mechanism
// glibc's shm_open uses on Linux.
package shm

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Region owns one POSIX shared-memory mapping: an mmap'd /dev/shm file,
// created (writer) or opened (reader/non-owner).
type Region struct {
	fd             int
	data           []byte
	name           string
	owner          bool
	mapped         bool
}

// normalizeName mirrors ShmRegion::normalize_name: POSIX shm names are
// conventionally absolute ("/name"); a bare name gets a leading slash
// added, and an empty name falls back to a fixed default.
func normalizeName(name string) string {
	if name == "" {
		return "/pshm_default"
	}
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// shmPath maps a normalized POSIX shm name to its backing file under
// /dev/shm, matching glibc's shm_open implementation convention.
func shmPath(normalized string) string {
	return "/dev/shm" + normalized
}

// Create creates (or recreates) a shared memory region of totalSize bytes
// and maps it read/write. Any stale object of the same name is unlinked
// first, matching ShmRegion::create.
func Create(name string, totalSize int64) (*Region, error) {
	normalized := normalizeName(name)
	path := shmPath(normalized)

	_ = unix.Unlink(path)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: open create %q: %w", normalized, err)
	}
	if err := unix.Ftruncate(fd, totalSize); err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("shm: ftruncate %q to %d: %w", normalized, totalSize, err)
	}
	data, err := unix.Mmap(fd, 0, int(totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("shm: mmap %q: %w", normalized, err)
	}
	for i := range data {
		data[i] = 0
	}
	return &Region{fd: fd, data: data, name: normalized, owner: true, mapped: true}, nil
}

// Open maps an existing shared memory region of totalSize bytes.
func Open(name string, totalSize int64) (*Region, error) {
	normalized := normalizeName(name)
	path := shmPath(normalized)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open read %q: %w", normalized, err)
	}
	data, err := unix.Mmap(fd, 0, int(totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap read %q: %w", normalized, err)
	}
	return &Region{fd: fd, data: data, name: normalized, owner: false, mapped: true}, nil
}

// Data returns the mapped region's backing bytes.
func (r *Region) Data() []byte { return r.data }

// IsMapped reports whether the region currently holds a live mapping.
func (r *Region) IsMapped() bool { return r.mapped }

// Close unmaps and closes the region. An owner (writer) also unlinks the
// backing shm object, matching ShmRegion::close.
func (r *Region) Close() error {
	var firstErr error
	if r.mapped {
		if err := unix.Munmap(r.data); err != nil && firstErr == nil {
			firstErr = err
		}
		r.data = nil
		r.mapped = false
	}
	if r.fd >= 0 {
		if err := unix.Close(r.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		r.fd = -1
	}
	if r.owner && r.name != "" {
		_ = unix.Unlink(shmPath(r.name))
		r.owner = false
	}
	r.name = ""
	return firstErr
}
