package filesystem

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sectorAllocatorPrometheusMetrics sync.Once

	sectorAllocatorSectorsAllocated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "sector_allocator_sectors_allocated_total",
			Help:      "Number of sectors that were allocated.",
		})
	sectorAllocatorAllocationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "sector_allocator_allocation_failures_total",
			Help:      "Number of times a sector could not be allocated.",
		})
	sectorAllocatorSectorsFreed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "sector_allocator_sectors_freed_total",
			Help:      "Number of sectors that were freed.",
		})
	sectorAllocatorFreeSectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buildbarn",
			Subsystem: "filesystem",
			Name:      "sector_allocator_free_sectors",
			Help:      "Number of free sectors, as last observed by the sector allocator.",
		})
)

type metricsSectorAllocator struct {
	base SectorAllocator
}

// NewMetricsSectorAllocator creates a decorator for SectorAllocator
// that exposes Prometheus metrics on how many sectors are allocated
// and freed.
func NewMetricsSectorAllocator(base SectorAllocator) SectorAllocator {
	sectorAllocatorPrometheusMetrics.Do(func() {
		prometheus.MustRegister(sectorAllocatorSectorsAllocated)
		prometheus.MustRegister(sectorAllocatorAllocationFailures)
		prometheus.MustRegister(sectorAllocatorSectorsFreed)
		prometheus.MustRegister(sectorAllocatorFreeSectors)
	})

	return &metricsSectorAllocator{
		base: base,
	}
}

func (sa *metricsSectorAllocator) AllocateSector() (uint32, error) {
	sector, err := sa.base.AllocateSector()
	if err != nil {
		sectorAllocatorAllocationFailures.Inc()
		return 0, err
	}
	sectorAllocatorSectorsAllocated.Inc()
	return sector, nil
}

func (sa *metricsSectorAllocator) GetFreeSectorCount() int {
	free := sa.base.GetFreeSectorCount()
	sectorAllocatorFreeSectors.Set(float64(free))
	return free
}

func (sa *metricsSectorAllocator) FreeList(sectors []uint32) {
	count := 0
	for _, sector := range sectors {
		if sector != 0 {
			count++
		}
	}
	sa.base.FreeList(sectors)
	sectorAllocatorSectorsFreed.Add(float64(count))
}
