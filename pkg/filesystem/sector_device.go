package filesystem

import (
	"io"

	"github.com/buildbarn/bb-storage/pkg/blockdevice"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SectorDevice provides access to a storage device in units of
// SectorSizeBytes. Buffers passed to ReadSector() and WriteSector()
// must be exactly one sector in size.
type SectorDevice interface {
	ReadSector(sector uint32, p []byte) error
	WriteSector(sector uint32, p []byte) error
	GetSectorCount() uint32
	Sync() error
}

func checkSectorAccess(sector, sectorCount uint32, p []byte) error {
	if sector >= sectorCount {
		return status.Errorf(codes.InvalidArgument, "Sector %d lies beyond the end of the device, which has %d sectors", sector, sectorCount)
	}
	if len(p) != SectorSizeBytes {
		return status.Errorf(codes.InvalidArgument, "Buffer is %d bytes in size, while sectors are %d bytes in size", len(p), SectorSizeBytes)
	}
	return nil
}

type blockDeviceBackedSectorDevice struct {
	blockDevice blockdevice.BlockDevice
	sectorCount uint32
}

// NewBlockDeviceBackedSectorDevice creates a SectorDevice that stores
// its sectors on a block device. Sector n is stored at byte offset
// n*SectorSizeBytes. The block device's own sector size only needs to
// be large enough to hold sectorCount sectors of SectorSizeBytes.
func NewBlockDeviceBackedSectorDevice(blockDevice blockdevice.BlockDevice, sectorCount uint32) SectorDevice {
	return &blockDeviceBackedSectorDevice{
		blockDevice: blockDevice,
		sectorCount: sectorCount,
	}
}

// toDeviceOffset converts a sector number to a byte offset on the
// block device.
func (sd *blockDeviceBackedSectorDevice) toDeviceOffset(sector uint32) int64 {
	return int64(sector) * SectorSizeBytes
}

func (sd *blockDeviceBackedSectorDevice) ReadSector(sector uint32, p []byte) error {
	if err := checkSectorAccess(sector, sd.sectorCount, p); err != nil {
		return err
	}
	n, err := sd.blockDevice.ReadAt(p, sd.toDeviceOffset(sector))
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(p) {
		return status.Errorf(codes.Internal, "Read against block device returned %d bytes, while %d bytes were expected", n, len(p))
	}
	return nil
}

func (sd *blockDeviceBackedSectorDevice) WriteSector(sector uint32, p []byte) error {
	if err := checkSectorAccess(sector, sd.sectorCount, p); err != nil {
		return err
	}
	n, err := sd.blockDevice.WriteAt(p, sd.toDeviceOffset(sector))
	if err != nil {
		return err
	}
	if n != len(p) {
		return status.Errorf(codes.Internal, "Write against block device returned %d bytes, while %d bytes were expected", n, len(p))
	}
	return nil
}

func (sd *blockDeviceBackedSectorDevice) GetSectorCount() uint32 {
	return sd.sectorCount
}

func (sd *blockDeviceBackedSectorDevice) Sync() error {
	return sd.blockDevice.Sync()
}
