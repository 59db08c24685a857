package filesystem

// SectorAllocator keeps track of which sectors of a SectorDevice are
// in use. FileHeader calls into it to obtain sectors when a file
// grows, and to return them when the file is removed.
//
// Sector zero is never handed out. It is reserved for the file header
// of the free map, which also allows users of this interface to use
// zero as a value for "no sector".
//
// Implementations do not need to make sequences of calls atomic.
// Callers that share a SectorAllocator between multiple files must
// serialize operations that allocate or free sectors.
type SectorAllocator interface {
	// Allocate a single sector, marking it as being in use.
	AllocateSector() (uint32, error)
	// Return the number of sectors that may still be allocated.
	GetFreeSectorCount() int
	// Free a list of sectors. Elements with value zero are ignored.
	FreeList(sectors []uint32)
}
