package filesystem

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type quotaEnforcingSectorAllocator struct {
	base             SectorAllocator
	sectorsRemaining quotaMetric
}

// NewQuotaEnforcingSectorAllocator creates a SectorAllocator that
// enforces disk quotas. It limits how many sectors may be allocated
// from an underlying SectorAllocator.
//
// The free sector count reported by the resulting SectorAllocator is
// capped by the remaining quota. This allows FileHeader to reject
// growth that exceeds the quota before any sector is allocated.
func NewQuotaEnforcingSectorAllocator(base SectorAllocator, maximumSectors int64) SectorAllocator {
	sa := &quotaEnforcingSectorAllocator{
		base: base,
	}
	sa.sectorsRemaining.init(max(maximumSectors, 0))
	return sa
}

func (sa *quotaEnforcingSectorAllocator) AllocateSector() (uint32, error) {
	if !sa.sectorsRemaining.allocate(1) {
		return 0, status.Error(codes.ResourceExhausted, "Sector count quota reached")
	}
	sector, err := sa.base.AllocateSector()
	if err != nil {
		sa.sectorsRemaining.release(1)
		return 0, err
	}
	return sector, nil
}

func (sa *quotaEnforcingSectorAllocator) GetFreeSectorCount() int {
	free := sa.base.GetFreeSectorCount()
	if remaining := sa.sectorsRemaining.load(); remaining < int64(free) {
		return int(remaining)
	}
	return free
}

func (sa *quotaEnforcingSectorAllocator) FreeList(sectors []uint32) {
	count := int64(0)
	for i := range sectors {
		if sectors[i] != 0 {
			count++
		}
	}
	sa.sectorsRemaining.release(count)
	sa.base.FreeList(sectors)
}
