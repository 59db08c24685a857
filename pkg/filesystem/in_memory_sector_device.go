package filesystem

type inMemorySectorDevice struct {
	data []byte
}

// NewInMemorySectorDevice creates a SectorDevice that stores all
// sectors in memory. Sectors are initially filled with zero bytes.
func NewInMemorySectorDevice(sectorCount uint32) SectorDevice {
	return &inMemorySectorDevice{
		data: make([]byte, int(sectorCount)*SectorSizeBytes),
	}
}

func (sd *inMemorySectorDevice) ReadSector(sector uint32, p []byte) error {
	if err := checkSectorAccess(sector, sd.GetSectorCount(), p); err != nil {
		return err
	}
	copy(p, sd.data[int(sector)*SectorSizeBytes:])
	return nil
}

func (sd *inMemorySectorDevice) WriteSector(sector uint32, p []byte) error {
	if err := checkSectorAccess(sector, sd.GetSectorCount(), p); err != nil {
		return err
	}
	copy(sd.data[int(sector)*SectorSizeBytes:], p)
	return nil
}

func (sd *inMemorySectorDevice) GetSectorCount() uint32 {
	return uint32(len(sd.data) / SectorSizeBytes)
}

func (sd *inMemorySectorDevice) Sync() error {
	return nil
}
