package filesystem

import (
	"io"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// FreeMapHeaderSector is the sector holding the FileHeader of
	// the file in which the free map of a volume is stored.
	FreeMapHeaderSector = 0

	// MaximumVolumeSectorCount is the largest number of sectors a
	// volume may have. It is bounded by the free map having to fit
	// in a single file.
	MaximumVolumeSectorCount = MaximumFileSizeBytes * 8
)

// VolumeConfiguration contains options that may be provided when
// formatting or opening a Volume.
type VolumeConfiguration struct {
	// If nonzero, the maximum number of sectors that may be in use
	// on the volume, including the sectors used by the free map.
	MaximumUsedSectors int64
	// Expose Prometheus metrics on sector allocation.
	EnableMetrics bool
}

// Volume is a SectorDevice on which files are stored. Which sectors are
// in use is tracked by a BitmapSectorAllocator, whose bitmap is stored
// in a file whose FileHeader resides in FreeMapHeaderSector.
//
// Files are identified by the sector holding their FileHeader. Changes
// to the free map are only persisted when Flush() is called. Volume is
// not thread-safe.
type Volume struct {
	sectorDevice    SectorDevice
	freeMap         *BitmapSectorAllocator
	freeMapFile     *HeaderBackedFile
	sectorAllocator SectorAllocator
}

func checkVolumeSectorCount(sectorCount uint32) error {
	if sectorCount == 0 {
		return status.Error(codes.InvalidArgument, "Device has no sectors")
	}
	if sectorCount > MaximumVolumeSectorCount {
		return status.Errorf(codes.InvalidArgument, "Device has %d sectors, while the free map can describe at most %d sectors", sectorCount, MaximumVolumeSectorCount)
	}
	return nil
}

func newVolume(sectorDevice SectorDevice, freeMap *BitmapSectorAllocator, freeMapHeader *FileHeader, configuration VolumeConfiguration) *Volume {
	var sectorAllocator SectorAllocator = freeMap
	if configuration.MaximumUsedSectors > 0 {
		usedSectors := int64(sectorDevice.GetSectorCount()) - int64(freeMap.GetFreeSectorCount())
		sectorAllocator = NewQuotaEnforcingSectorAllocator(sectorAllocator, configuration.MaximumUsedSectors-usedSectors)
	}
	if configuration.EnableMetrics {
		sectorAllocator = NewMetricsSectorAllocator(sectorAllocator)
	}
	return &Volume{
		sectorDevice: sectorDevice,
		freeMap:      freeMap,
		// The free map never changes in size, meaning its file
		// never allocates sectors after formatting.
		freeMapFile:     NewHeaderBackedFile(sectorDevice, freeMap, freeMapHeader, FreeMapHeaderSector),
		sectorAllocator: sectorAllocator,
	}
}

// FormatVolume creates a new, empty Volume on a SectorDevice.
func FormatVolume(sectorDevice SectorDevice, configuration VolumeConfiguration) (*Volume, error) {
	sectorCount := sectorDevice.GetSectorCount()
	if err := checkVolumeSectorCount(sectorCount); err != nil {
		return nil, err
	}

	freeMap := NewBitmapSectorAllocator(sectorCount)
	var freeMapHeader FileHeader
	if err := freeMapHeader.Allocate(freeMap, 0, int64(getBitmapSizeBytes(sectorCount))); err != nil {
		return nil, util.StatusWrap(err, "Failed to allocate sectors for the free map")
	}
	v := newVolume(sectorDevice, freeMap, &freeMapHeader, configuration)
	if err := v.Flush(); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenVolume opens a Volume that was previously created by calling
// FormatVolume() on the same SectorDevice.
func OpenVolume(sectorDevice SectorDevice, configuration VolumeConfiguration) (*Volume, error) {
	sectorCount := sectorDevice.GetSectorCount()
	if err := checkVolumeSectorCount(sectorCount); err != nil {
		return nil, err
	}

	var freeMapHeader FileHeader
	if err := freeMapHeader.FetchFrom(sectorDevice, FreeMapHeaderSector); err != nil {
		return nil, util.StatusWrap(err, "Failed to load free map header")
	}
	bitmapSizeBytes := getBitmapSizeBytes(sectorCount)
	if sizeBytes := freeMapHeader.FileLength(); sizeBytes != int64(bitmapSizeBytes) {
		return nil, status.Errorf(codes.DataLoss, "Free map is %d bytes in size, while a device with %d sectors requires a free map of %d bytes", sizeBytes, sectorCount, bitmapSizeBytes)
	}

	freeMap := NewBitmapSectorAllocator(sectorCount)
	data := make([]byte, bitmapSizeBytes)
	freeMapFile := NewHeaderBackedFile(sectorDevice, freeMap, &freeMapHeader, FreeMapHeaderSector)
	if _, err := freeMapFile.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, util.StatusWrap(err, "Failed to read free map")
	}
	if err := freeMap.UnmarshalBinary(data); err != nil {
		return nil, util.StatusWrap(err, "Failed to load free map")
	}
	return newVolume(sectorDevice, freeMap, &freeMapHeader, configuration), nil
}

// GetSectorDevice returns the SectorDevice on which the Volume is
// stored.
func (v *Volume) GetSectorDevice() SectorDevice {
	return v.sectorDevice
}

// GetSectorAllocator returns the SectorAllocator from which sectors of
// files on the volume are allocated.
func (v *Volume) GetSectorAllocator() SectorAllocator {
	return v.sectorAllocator
}

// GetFreeSectorCount returns the number of sectors that may still be
// allocated, taking the quota into account.
func (v *Volume) GetFreeSectorCount() int {
	return v.sectorAllocator.GetFreeSectorCount()
}

// CreateFile creates a new file of a given size. The file's contents
// are zero initialized. The sector holding the FileHeader of the new
// file is returned.
func (v *Volume) CreateFile(sizeBytes int64) (uint32, error) {
	headerSector, err := v.sectorAllocator.AllocateSector()
	if err != nil {
		return 0, util.StatusWrap(err, "Failed to allocate file header sector")
	}
	var header FileHeader
	if err := header.Allocate(v.sectorAllocator, 0, sizeBytes); err != nil {
		v.sectorAllocator.FreeList([]uint32{headerSector})
		return 0, err
	}

	zeroSector := make([]byte, SectorSizeBytes)
	for _, sector := range header.GetSectors() {
		if err := v.sectorDevice.WriteSector(sector, zeroSector); err != nil {
			v.releaseFile(&header, headerSector)
			return 0, util.StatusWrapf(err, "Failed to zero sector %d", sector)
		}
	}
	if err := header.WriteBack(v.sectorDevice, headerSector); err != nil {
		v.releaseFile(&header, headerSector)
		return 0, err
	}
	return headerSector, nil
}

func (v *Volume) releaseFile(header *FileHeader, headerSector uint32) {
	header.Deallocate(v.sectorAllocator)
	v.sectorAllocator.FreeList([]uint32{headerSector})
}

// OpenFile opens a file whose FileHeader is stored in a given sector.
//
// The Volume does not record which sectors hold file headers. Any
// sector that is in use and contains a valid FileHeader is accepted,
// including sectors holding the contents of another file or of the
// free map. Callers are responsible for only passing in sectors
// returned by CreateFile().
func (v *Volume) OpenFile(headerSector uint32) (*HeaderBackedFile, error) {
	if headerSector == FreeMapHeaderSector {
		return nil, status.Errorf(codes.InvalidArgument, "Sector %d holds the header of the free map", headerSector)
	}
	if sectorCount := v.sectorDevice.GetSectorCount(); headerSector >= sectorCount {
		return nil, status.Errorf(codes.InvalidArgument, "Sector %d lies beyond the end of the device, which has %d sectors", headerSector, sectorCount)
	}
	if !v.freeMap.IsAllocated(headerSector) {
		return nil, status.Errorf(codes.NotFound, "Sector %d is not in use", headerSector)
	}
	var header FileHeader
	if err := header.FetchFrom(v.sectorDevice, headerSector); err != nil {
		return nil, err
	}
	return NewHeaderBackedFile(v.sectorDevice, v.sectorAllocator, &header, headerSector), nil
}

// RemoveFile removes a file, freeing both the sectors holding its
// contents and the sector holding its FileHeader.
//
// Like OpenFile(), it cannot tell header sectors apart from data
// sectors. Passing in a data sector whose contents happen to parse as
// a FileHeader frees sectors that are still in use by other files.
func (v *Volume) RemoveFile(headerSector uint32) error {
	f, err := v.OpenFile(headerSector)
	if err != nil {
		return err
	}
	v.releaseFile(f.GetHeader(), headerSector)
	return nil
}

// Flush writes the free map back to the SectorDevice, followed by
// synchronizing the SectorDevice.
func (v *Volume) Flush() error {
	data, err := v.freeMap.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := v.freeMapFile.WriteAt(data, 0); err != nil {
		return util.StatusWrap(err, "Failed to write free map")
	}
	if err := v.freeMapFile.GetHeader().WriteBack(v.sectorDevice, FreeMapHeaderSector); err != nil {
		return err
	}
	if err := v.sectorDevice.Sync(); err != nil {
		return util.StatusWrap(err, "Failed to synchronize device")
	}
	return nil
}
