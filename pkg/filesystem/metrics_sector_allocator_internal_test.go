package filesystem

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsSectorAllocatorCounters(t *testing.T) {
	// Counters are shared by all instances, so only compare the
	// changes caused by this test.
	allocator := NewMetricsSectorAllocator(NewBitmapSectorAllocator(4))
	allocatedBefore := testutil.ToFloat64(sectorAllocatorSectorsAllocated)
	failuresBefore := testutil.ToFloat64(sectorAllocatorAllocationFailures)
	freedBefore := testutil.ToFloat64(sectorAllocatorSectorsFreed)

	// Three sectors can be allocated, as sector zero is reserved.
	for i := uint32(1); i <= 3; i++ {
		sector, err := allocator.AllocateSector()
		require.NoError(t, err)
		require.Equal(t, i, sector)
	}
	_, err := allocator.AllocateSector()
	require.Error(t, err)
	require.Equal(t, 3.0, testutil.ToFloat64(sectorAllocatorSectorsAllocated)-allocatedBefore)
	require.Equal(t, 1.0, testutil.ToFloat64(sectorAllocatorAllocationFailures)-failuresBefore)

	require.Equal(t, 0, allocator.GetFreeSectorCount())
	require.Equal(t, 0.0, testutil.ToFloat64(sectorAllocatorFreeSectors))

	// Zero entries are not counted as freed sectors.
	allocator.FreeList([]uint32{2, 0, 3})
	require.Equal(t, 2.0, testutil.ToFloat64(sectorAllocatorSectorsFreed)-freedBefore)

	require.Equal(t, 2, allocator.GetFreeSectorCount())
	require.Equal(t, 2.0, testutil.ToFloat64(sectorAllocatorFreeSectors))
}
