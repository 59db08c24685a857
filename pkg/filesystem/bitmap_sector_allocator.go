package filesystem

import (
	"fmt"
	"math/bits"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BitmapSectorAllocator is a SectorAllocator that stores information
// on which sectors are allocated in a bitmap. Sectors are allocated by
// sequentially scanning the bitmap, continuing where previous calls
// left off.
//
// The bitmap can be converted to and from its on-disk representation
// by calling MarshalBinary() and UnmarshalBinary(), so that it can be
// stored inside a file on the volume it describes.
type BitmapSectorAllocator struct {
	lock        sync.Mutex
	sectorCount uint32
	freeBitmap  []uint64 // One bits indicate sectors that are free.
	freeCount   int
	nextSector  uint32
}

var _ SectorAllocator = (*BitmapSectorAllocator)(nil)

const (
	allBits = ^uint64(0)
)

// NewBitmapSectorAllocator creates a BitmapSectorAllocator for a
// device consisting of sectorCount sectors. All sectors are free,
// except for sector zero.
func NewBitmapSectorAllocator(sectorCount uint32) *BitmapSectorAllocator {
	// Construct a bitmap. Make the bitmap a bit too big, so that
	// it's always terminated with one or more sectors that are
	// permanently in use. This prevents the need for explicit
	// bounds checking inside our algorithms.
	sa := &BitmapSectorAllocator{
		sectorCount: sectorCount,
		freeBitmap:  make([]uint64, sectorCount/64+1),
	}

	// Mark the exact number of sectors as being free.
	for i := uint32(0); i < sectorCount/64; i++ {
		sa.freeBitmap[i] = allBits
	}
	sa.freeBitmap[sectorCount/64] = ^(allBits << (sectorCount % 64))

	// Sector zero stores the header of the free map.
	sa.freeBitmap[0] &^= 1
	sa.freeCount = sa.countFreeBits()
	return sa
}

func (sa *BitmapSectorAllocator) countFreeBits() int {
	count := 0
	for _, w := range sa.freeBitmap {
		count += bits.OnesCount64(w)
	}
	return count
}

// AllocateSector marks the first free sector at or after the position
// where the previous allocation left off as being in use.
func (sa *BitmapSectorAllocator) AllocateSector() (uint32, error) {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	// Allocate a sector from the current bitmap word.
	split := sa.nextSector / 64
	if m := sa.freeBitmap[split] & (allBits << (sa.nextSector % 64)); m != 0 {
		return sa.allocateAt(split, m), nil
	}

	// Allocate a sector from the current location to the end.
	for i := split + 1; i < uint32(len(sa.freeBitmap)); i++ {
		if m := sa.freeBitmap[i]; m != 0 {
			return sa.allocateAt(i, m), nil
		}
	}

	// Allocate a sector from the beginning to the current location.
	for i := uint32(0); i <= split; i++ {
		if m := sa.freeBitmap[i]; m != 0 {
			return sa.allocateAt(i, m), nil
		}
	}
	return 0, status.Error(codes.ResourceExhausted, "No free sectors available")
}

func (sa *BitmapSectorAllocator) allocateAt(index uint32, mask uint64) uint32 {
	shift := bits.TrailingZeros64(mask)
	sa.freeBitmap[index] &^= uint64(1) << shift
	sa.freeCount--

	sector := index*64 + uint32(shift)
	sa.nextSector = sector + 1
	return sector
}

// GetFreeSectorCount returns the number of sectors that are not in
// use.
func (sa *BitmapSectorAllocator) GetFreeSectorCount() int {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	return sa.freeCount
}

// FreeList marks a list of sectors as being free. Attempting to free
// sectors that are not in use is a programming error.
func (sa *BitmapSectorAllocator) FreeList(sectors []uint32) {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	for _, sector := range sectors {
		if sector != 0 {
			if sector >= sa.sectorCount {
				panic(fmt.Sprintf("Attempted to free sector %d, even though the device only has %d sectors", sector, sa.sectorCount))
			}
			i := sector / 64
			b := sector % 64
			if sa.freeBitmap[i]&(1<<b) != 0 {
				panic(fmt.Sprintf("Attempted to free sector %d, even though it's not allocated", sector))
			}
			sa.freeBitmap[i] |= 1 << b
			sa.freeCount++
		}
	}
}

// IsAllocated returns whether a sector is in use. Sectors beyond the
// end of the device are reported as being in use.
func (sa *BitmapSectorAllocator) IsAllocated(sector uint32) bool {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	return sector >= sa.sectorCount || sa.freeBitmap[sector/64]&(1<<(sector%64)) == 0
}

func getBitmapSizeBytes(sectorCount uint32) int {
	return int((uint64(sectorCount) + 7) / 8)
}

// MarshalBinary converts the bitmap to its on-disk representation. Bit
// i%8 of byte i/8 is set if sector i is in use.
func (sa *BitmapSectorAllocator) MarshalBinary() ([]byte, error) {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	data := make([]byte, getBitmapSizeBytes(sa.sectorCount))
	for sector := uint32(0); sector < sa.sectorCount; sector++ {
		if sa.freeBitmap[sector/64]&(1<<(sector%64)) == 0 {
			data[sector/8] |= 1 << (sector % 8)
		}
	}
	return data, nil
}

// UnmarshalBinary replaces the state of the bitmap with the contents
// of an on-disk representation created by MarshalBinary().
func (sa *BitmapSectorAllocator) UnmarshalBinary(data []byte) error {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	if expected := getBitmapSizeBytes(sa.sectorCount); len(data) != expected {
		return status.Errorf(codes.InvalidArgument, "Free map is %d bytes in size, while %d bytes were expected", len(data), expected)
	}
	if len(data) > 0 && data[0]&1 == 0 {
		return status.Error(codes.DataLoss, "Free map does not mark sector 0 as being in use")
	}

	freeBitmap := make([]uint64, len(sa.freeBitmap))
	for sector := uint32(0); sector < sa.sectorCount; sector++ {
		if data[sector/8]&(1<<(sector%8)) == 0 {
			freeBitmap[sector/64] |= 1 << (sector % 64)
		}
	}
	sa.freeBitmap = freeBitmap
	sa.freeCount = sa.countFreeBits()
	sa.nextSector = 0
	return nil
}
