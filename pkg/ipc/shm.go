// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ipc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is an mmap'd file backing a Ring, sized once at creation
// (SchedulerConfig.IPCShmPath names the directory these files live
// under). Opening the same path from the
// scheduler and a multiproc/Docker-placed worker gives both sides a view
// over the same physical pages.
type Region struct {
	file *os.File
	data []byte
}

// CreateRegion creates (or truncates) the file at path to size bytes and
// maps it shared/read-write. The caller owns the returned Region and must
// call Close to unmap and release the fd.
func CreateRegion(path string, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ipc: open region file: %w", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("ipc: truncate region file: %w", err)
	}
	return mapRegion(f, size)
}

// OpenRegion maps an existing region file created by CreateRegion, for the
// worker side of an IPC pair. size must match the size CreateRegion used.
func OpenRegion(path string, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ipc: open region file: %w", err)
	}
	return mapRegion(f, size)
}

func mapRegion(f *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ipc: mmap region: %w", err)
	}
	return &Region{file: f, data: data}, nil
}

// Bytes returns the mapped memory.
func (r *Region) Bytes() []byte { return r.data }

// Close unmaps the region and closes its backing file descriptor.
func (r *Region) Close() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("ipc: munmap: %w", err)
	}
	return r.file.Close()
}
