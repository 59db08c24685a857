package filesystem

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// SectorSizeBytes is the size of a single sector, both for
	// file contents and for the on-disk representation of a
	// FileHeader.
	SectorSizeBytes = 128

	fileHeaderFieldSizeBytes = 4

	// DirectSectorCount is the number of sector numbers that can
	// be stored in a FileHeader. The file size, the number of
	// sectors in use and the sector numbers together fill up
	// exactly one sector.
	DirectSectorCount = (SectorSizeBytes - 2*fileHeaderFieldSizeBytes) / fileHeaderFieldSizeBytes

	// MaximumFileSizeBytes is the size of the largest file that
	// can be described by a FileHeader.
	MaximumFileSizeBytes = DirectSectorCount * SectorSizeBytes
)

// FileHeader describes where the contents of a file are stored on a
// SectorDevice. In UNIX terms it is the file's inode. It holds the size
// of the file and a fixed size table of direct references to the
// sectors holding the file's contents.
//
// The zero value describes an empty file that has no sectors. Files
// can only grow. Sectors are returned to the SectorAllocator all at
// once by calling Deallocate().
//
// FileHeader does not perform any locking. Callers that share a
// SectorAllocator between files need to serialize calls to Allocate()
// and Deallocate().
type FileHeader struct {
	sizeBytes   uint32
	sectorCount uint32
	sectors     [DirectSectorCount]uint32
}

// getSectorCountForSize returns the number of sectors needed to store
// a given number of bytes.
func getSectorCountForSize(sizeBytes int64) int64 {
	return (sizeBytes + SectorSizeBytes - 1) / SectorSizeBytes
}

// Allocate sectors for a file. When called with currentSizeBytes set
// to zero, it initializes a new file of growthSizeBytes. Otherwise it
// extends a file that is currently currentSizeBytes in size by
// growthSizeBytes.
//
// Space that is left at the end of the last sector is used before
// allocating new sectors. Allocate either succeeds entirely, or leaves
// both the FileHeader and the SectorAllocator unmodified. The
// following status codes are returned on failure:
//
//   - DATA_LOSS: the file header references more sectors than it can
//     hold, or currentSizeBytes does not require exactly the number of
//     sectors referenced by the file header.
//   - OUT_OF_RANGE: the file would exceed MaximumFileSizeBytes.
//   - RESOURCE_EXHAUSTED: the SectorAllocator has too few free
//     sectors.
func (h *FileHeader) Allocate(sectorAllocator SectorAllocator, currentSizeBytes, growthSizeBytes int64) error {
	if h.sectorCount > DirectSectorCount {
		return status.Errorf(codes.DataLoss, "File header references %d sectors, while at most %d sectors can be referenced", h.sectorCount, DirectSectorCount)
	}
	if currentSizeBytes < 0 {
		return status.Errorf(codes.InvalidArgument, "Negative file size: %d", currentSizeBytes)
	}
	if growthSizeBytes < 0 {
		return status.Errorf(codes.InvalidArgument, "Negative growth size: %d", growthSizeBytes)
	}
	sectorCount := int64(h.sectorCount)
	if currentSectorCount := getSectorCountForSize(currentSizeBytes); currentSectorCount != sectorCount {
		return status.Errorf(codes.DataLoss, "File size of %d bytes requires %d sectors, while the file header references %d sectors", currentSizeBytes, currentSectorCount, sectorCount)
	}
	if growthSizeBytes > MaximumFileSizeBytes-currentSizeBytes {
		return status.Errorf(codes.OutOfRange, "Growing a file of %d bytes by %d bytes would exceed the maximum file size of %d bytes", currentSizeBytes, growthSizeBytes, MaximumFileSizeBytes)
	}

	// Only allocate sectors for the data that does not fit in the
	// sectors that are already referenced.
	newSizeBytes := currentSizeBytes + growthSizeBytes
	if moreSectors := getSectorCountForSize(newSizeBytes) - sectorCount; moreSectors > 0 {
		if freeSectors := sectorAllocator.GetFreeSectorCount(); int64(freeSectors) < moreSectors {
			return status.Errorf(codes.ResourceExhausted, "Growing the file requires %d more sectors, while only %d sectors are free", moreSectors, freeSectors)
		}
		newSectors := h.sectors[sectorCount : sectorCount+moreSectors]
		for i := range newSectors {
			sector, err := sectorAllocator.AllocateSector()
			if err != nil {
				sectorAllocator.FreeList(newSectors[:i])
				clear(newSectors[:i])
				return util.StatusWrapf(err, "Failed to allocate sector %d of the file", sectorCount+int64(i))
			}
			newSectors[i] = sector
		}
		h.sectorCount += uint32(moreSectors)
	}
	h.sizeBytes = uint32(newSizeBytes)
	return nil
}

// Deallocate returns all sectors of the file to the SectorAllocator,
// and resets the FileHeader to describe an empty file.
func (h *FileHeader) Deallocate(sectorAllocator SectorAllocator) {
	sectorAllocator.FreeList(h.sectors[:min(h.sectorCount, DirectSectorCount)])
	*h = FileHeader{}
}

// MarshalBinary converts the FileHeader to its on-disk representation,
// which is exactly one sector in size. All fields are stored as 32-bit
// little endian integers, in the following order: the file size, the
// number of sectors in use, followed by all DirectSectorCount entries
// of the sector table.
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	data := make([]byte, SectorSizeBytes)
	binary.LittleEndian.PutUint32(data[0:], h.sizeBytes)
	binary.LittleEndian.PutUint32(data[fileHeaderFieldSizeBytes:], h.sectorCount)
	for i, sector := range h.sectors {
		binary.LittleEndian.PutUint32(data[(2+i)*fileHeaderFieldSizeBytes:], sector)
	}
	return data, nil
}

// UnmarshalBinary loads the FileHeader from its on-disk
// representation. Representations that violate the invariants of
// FileHeader are rejected, leaving the FileHeader unmodified.
func (h *FileHeader) UnmarshalBinary(data []byte) error {
	if len(data) != SectorSizeBytes {
		return status.Errorf(codes.InvalidArgument, "File header is %d bytes in size, while %d bytes were expected", len(data), SectorSizeBytes)
	}
	var newHeader FileHeader
	newHeader.sizeBytes = binary.LittleEndian.Uint32(data[0:])
	newHeader.sectorCount = binary.LittleEndian.Uint32(data[fileHeaderFieldSizeBytes:])
	for i := range newHeader.sectors {
		newHeader.sectors[i] = binary.LittleEndian.Uint32(data[(2+i)*fileHeaderFieldSizeBytes:])
	}

	if newHeader.sectorCount > DirectSectorCount {
		return status.Errorf(codes.DataLoss, "File header references %d sectors, while at most %d sectors can be referenced", newHeader.sectorCount, DirectSectorCount)
	}
	if sizeBytes := int64(newHeader.sizeBytes); getSectorCountForSize(sizeBytes) != int64(newHeader.sectorCount) {
		return status.Errorf(codes.DataLoss, "File size of %d bytes requires %d sectors, while the file header references %d sectors", sizeBytes, getSectorCountForSize(sizeBytes), newHeader.sectorCount)
	}
	for i, sector := range newHeader.sectors[:newHeader.sectorCount] {
		if sector == 0 {
			return status.Errorf(codes.DataLoss, "Sector %d of the file is sector 0, which is reserved", i)
		}
	}
	*h = newHeader
	return nil
}

// FetchFrom loads the FileHeader from a sector on a SectorDevice.
func (h *FileHeader) FetchFrom(sectorDevice SectorDevice, sector uint32) error {
	data := make([]byte, SectorSizeBytes)
	if err := sectorDevice.ReadSector(sector, data); err != nil {
		return util.StatusWrapf(err, "Failed to read file header from sector %d", sector)
	}
	if err := h.UnmarshalBinary(data); err != nil {
		return util.StatusWrapf(err, "Invalid file header in sector %d", sector)
	}
	return nil
}

// WriteBack stores the FileHeader in a sector on a SectorDevice.
func (h *FileHeader) WriteBack(sectorDevice SectorDevice, sector uint32) error {
	data, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	if err := sectorDevice.WriteSector(sector, data); err != nil {
		return util.StatusWrapf(err, "Failed to write file header to sector %d", sector)
	}
	return nil
}

// ByteToSector returns the number of the sector that stores the byte
// at a given offset within the file.
func (h *FileHeader) ByteToSector(offset int64) (uint32, error) {
	if offset < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative offset: %d", offset)
	}
	if offset >= int64(h.sizeBytes) {
		return 0, status.Errorf(codes.OutOfRange, "Offset %d lies beyond the end of the file, which is %d bytes in size", offset, h.sizeBytes)
	}
	return h.sectors[offset/SectorSizeBytes], nil
}

// FileLength returns the size of the file in bytes.
func (h *FileHeader) FileLength() int64 {
	return int64(h.sizeBytes)
}

// GetSectors returns the numbers of the sectors storing the file's
// contents, in file order.
func (h *FileHeader) GetSectors() []uint32 {
	return slices.Clone(h.sectors[:min(h.sectorCount, DirectSectorCount)])
}

// Print writes a human readable description of the FileHeader to a
// writer. If a SectorDevice is provided, the contents of the file are
// printed as well. Printable ASCII characters are written as is, while
// all other bytes are escaped.
func (h *FileHeader) Print(w io.Writer, sectorDevice SectorDevice) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File header: %d bytes, %d sectors\n", h.sizeBytes, h.sectorCount)
	sb.WriteString("Sectors:")
	sectors := h.GetSectors()
	for _, sector := range sectors {
		fmt.Fprintf(&sb, " %d", sector)
	}
	sb.WriteByte('\n')

	if sectorDevice != nil {
		sb.WriteString("Contents:\n")
		data := make([]byte, SectorSizeBytes)
		remaining := int64(h.sizeBytes)
		for _, sector := range sectors {
			if remaining <= 0 {
				break
			}
			if err := sectorDevice.ReadSector(sector, data); err != nil {
				return util.StatusWrapf(err, "Failed to read sector %d", sector)
			}
			for _, c := range data[:min(remaining, SectorSizeBytes)] {
				if c >= 0x20 && c <= 0x7e {
					sb.WriteByte(c)
				} else {
					fmt.Fprintf(&sb, "\\x%02x", c)
				}
			}
			sb.WriteByte('\n')
			remaining -= SectorSizeBytes
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
