package filesystem

import (
	"io"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HeaderBackedFile provides byte level access to a file whose contents
// are described by a FileHeader. Writes past the end of the file cause
// it to grow, allocating sectors from a SectorAllocator and writing
// the FileHeader back to its sector on the SectorDevice. If the
// FileHeader cannot be written back, the newly allocated sectors are
// released and the file retains its original size.
//
// HeaderBackedFile is not thread-safe.
type HeaderBackedFile struct {
	sectorDevice    SectorDevice
	sectorAllocator SectorAllocator
	header          *FileHeader
	headerSector    uint32
}

var (
	_ io.ReaderAt = (*HeaderBackedFile)(nil)
	_ io.WriterAt = (*HeaderBackedFile)(nil)
)

// NewHeaderBackedFile creates a HeaderBackedFile for a file whose
// FileHeader is stored in headerSector.
func NewHeaderBackedFile(sectorDevice SectorDevice, sectorAllocator SectorAllocator, header *FileHeader, headerSector uint32) *HeaderBackedFile {
	return &HeaderBackedFile{
		sectorDevice:    sectorDevice,
		sectorAllocator: sectorAllocator,
		header:          header,
		headerSector:    headerSector,
	}
}

// GetHeader returns the FileHeader of the file.
func (f *HeaderBackedFile) GetHeader() *FileHeader {
	return f.header
}

// GetHeaderSector returns the sector in which the FileHeader is stored.
func (f *HeaderBackedFile) GetHeaderSector() uint32 {
	return f.headerSector
}

// Size returns the size of the file in bytes.
func (f *HeaderBackedFile) Size() int64 {
	return f.header.FileLength()
}

func (f *HeaderBackedFile) ReadAt(p []byte, off int64) (int, error) {
	// Short circuit calls that are out of bounds.
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative read offset: %d", off)
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Limit the read operation to the size of the file. Already
	// determine whether this operation will return nil or io.EOF.
	sizeBytes := f.header.FileLength()
	if off >= sizeBytes {
		return 0, io.EOF
	}
	var success error
	if end := off + int64(len(p)); end >= sizeBytes {
		success = io.EOF
		p = p[:sizeBytes-off]
	}

	data := make([]byte, SectorSizeBytes)
	nTotal := 0
	for len(p) > 0 {
		sector, err := f.header.ByteToSector(off)
		if err != nil {
			return nTotal, err
		}
		if err := f.sectorDevice.ReadSector(sector, data); err != nil {
			return nTotal, util.StatusWrapf(err, "Failed to read sector %d", sector)
		}
		n := copy(p, data[off%SectorSizeBytes:])
		nTotal += n
		p = p[n:]
		off += int64(n)
	}
	return nTotal, success
}

func (f *HeaderBackedFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative write offset: %d", off)
	}
	if len(p) == 0 {
		return 0, nil
	}

	// FileHeader cannot describe sparse files, meaning that writes
	// may at most append to the file.
	sizeBytes := f.header.FileLength()
	if off > sizeBytes {
		return 0, status.Errorf(codes.InvalidArgument, "Writing at offset %d would create a hole, as the file is only %d bytes in size", off, sizeBytes)
	}
	oldSectorCount := int64(len(f.header.GetSectors()))
	if end := off + int64(len(p)); end > sizeBytes {
		oldHeader := *f.header
		if err := f.header.Allocate(f.sectorAllocator, sizeBytes, end-sizeBytes); err != nil {
			return 0, util.StatusWrap(err, "Failed to grow file")
		}
		if err := f.header.WriteBack(f.sectorDevice, f.headerSector); err != nil {
			// Keep the in-memory header in sync with the one
			// stored on the device.
			f.sectorAllocator.FreeList(f.header.GetSectors()[oldSectorCount:])
			*f.header = oldHeader
			return 0, err
		}
	}

	data := make([]byte, SectorSizeBytes)
	nTotal := 0
	for len(p) > 0 {
		sector, err := f.header.ByteToSector(off)
		if err != nil {
			return nTotal, err
		}
		offsetWithinSector := int(off % SectorSizeBytes)
		n := min(len(p), SectorSizeBytes-offsetWithinSector)
		if off/SectorSizeBytes >= oldSectorCount {
			// Sectors that were just allocated may contain
			// data of files that were removed.
			clear(data)
		} else if n < SectorSizeBytes {
			// Partial sector write. Preserve the parts of the
			// sector that are not overwritten.
			if err := f.sectorDevice.ReadSector(sector, data); err != nil {
				return nTotal, util.StatusWrapf(err, "Failed to read sector %d", sector)
			}
		}
		copy(data[offsetWithinSector:], p[:n])
		if err := f.sectorDevice.WriteSector(sector, data); err != nil {
			return nTotal, util.StatusWrapf(err, "Failed to write sector %d", sector)
		}
		nTotal += n
		p = p[n:]
		off += int64(n)
	}
	return nTotal, nil
}

// Append data to the end of the file.
func (f *HeaderBackedFile) Append(p []byte) (int, error) {
	return f.WriteAt(p, f.Size())
}
