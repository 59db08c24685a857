package mock

//go:generate mockgen -destination=filesystem.go -package=mock github.com/buildbarn/bb-sector-fs/pkg/filesystem SectorAllocator,SectorDevice
//go:generate mockgen -destination=blockdevice.go -package=mock github.com/buildbarn/bb-storage/pkg/blockdevice BlockDevice
