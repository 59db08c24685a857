package filesystem_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/buildbarn/bb-sector-fs/internal/mock"
	"github.com/buildbarn/bb-sector-fs/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestHeaderBackedFile(t *testing.T) {
	sectorDevice := filesystem.NewInMemorySectorDevice(64)
	sectorAllocator := filesystem.NewBitmapSectorAllocator(64)
	headerSector, err := sectorAllocator.AllocateSector()
	require.NoError(t, err)
	var header filesystem.FileHeader
	f := filesystem.NewHeaderBackedFile(sectorDevice, sectorAllocator, &header, headerSector)

	t.Run("EmptyFile", func(t *testing.T) {
		var p [10]byte
		n, err := f.ReadAt(p[:], 0)
		require.Equal(t, 0, n)
		require.Equal(t, io.EOF, err)

		n, err = f.ReadAt(p[:], -1)
		require.Equal(t, 0, n)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative read offset: -1"), err)

		// Zero-sized writes should not cause the file to grow.
		n, err = f.WriteAt(nil, 0)
		require.Equal(t, 0, n)
		require.NoError(t, err)
		require.Equal(t, int64(0), f.Size())
	})

	t.Run("Append", func(t *testing.T) {
		n, err := f.Append([]byte("Hello, world"))
		require.Equal(t, 12, n)
		require.NoError(t, err)
		require.Equal(t, int64(12), f.Size())
		require.Equal(t, []uint32{2}, header.GetSectors())

		var p [20]byte
		n, err = f.ReadAt(p[:], 7)
		require.Equal(t, 5, n)
		require.Equal(t, io.EOF, err)
		require.Equal(t, []byte("world"), p[:5])

		// The header should have been written back.
		var storedHeader filesystem.FileHeader
		require.NoError(t, storedHeader.FetchFrom(sectorDevice, headerSector))
		require.Equal(t, header, storedHeader)
	})

	t.Run("AppendAcrossSectors", func(t *testing.T) {
		data := bytes.Repeat([]byte("0123456789"), 30)
		n, err := f.Append(data)
		require.Equal(t, 300, n)
		require.NoError(t, err)
		require.Equal(t, int64(312), f.Size())
		require.Equal(t, []uint32{2, 3, 4}, header.GetSectors())

		p := make([]byte, 312)
		n, err = f.ReadAt(p, 0)
		require.Equal(t, 312, n)
		require.Equal(t, io.EOF, err)
		require.Equal(t, append([]byte("Hello, world"), data...), p)

		// Reads in the middle of the file should not return
		// io.EOF.
		n, err = f.ReadAt(p[:10], 130)
		require.Equal(t, 10, n)
		require.NoError(t, err)
		require.Equal(t, []byte("8901234567"), p[:10])
	})

	t.Run("Overwrite", func(t *testing.T) {
		// Overwriting data in the middle of the file should not
		// affect its size, nor the data surrounding it.
		n, err := f.WriteAt([]byte("WORLD"), 7)
		require.Equal(t, 5, n)
		require.NoError(t, err)
		require.Equal(t, int64(312), f.Size())

		var p [14]byte
		n, err = f.ReadAt(p[:], 0)
		require.Equal(t, 14, n)
		require.NoError(t, err)
		require.Equal(t, []byte("Hello, WORLD01"), p[:])
	})

	t.Run("OverwriteAndExtend", func(t *testing.T) {
		n, err := f.WriteAt(bytes.Repeat([]byte("x"), 200), 212)
		require.Equal(t, 200, n)
		require.NoError(t, err)
		require.Equal(t, int64(412), f.Size())
		require.Len(t, header.GetSectors(), 4)

		var p [4]byte
		n, err = f.ReadAt(p[:], 210)
		require.Equal(t, 4, n)
		require.NoError(t, err)
		require.Equal(t, []byte("89xx"), p[:])
	})

	t.Run("Hole", func(t *testing.T) {
		n, err := f.WriteAt([]byte("Hello"), 413)
		require.Equal(t, 0, n)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Writing at offset 413 would create a hole, as the file is only 412 bytes in size"), err)

		n, err = f.WriteAt([]byte("Hello"), -1)
		require.Equal(t, 0, n)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Negative write offset: -1"), err)
	})

	t.Run("MaximumFileSize", func(t *testing.T) {
		n, err := f.Append(make([]byte, filesystem.MaximumFileSizeBytes-412))
		require.Equal(t, filesystem.MaximumFileSizeBytes-412, n)
		require.NoError(t, err)

		n, err = f.Append([]byte("!"))
		require.Equal(t, 0, n)
		testutil.RequireEqualStatus(t, status.Error(codes.OutOfRange, "Failed to grow file: Growing a file of 3840 bytes by 1 bytes would exceed the maximum file size of 3840 bytes"), err)
		require.Equal(t, int64(filesystem.MaximumFileSizeBytes), f.Size())
	})
}

func TestHeaderBackedFileNewSectorsZeroed(t *testing.T) {
	// Sectors obtained while growing the file may still contain
	// data of a file that was removed. The space past the end of
	// the file must not retain such data.
	sectorDevice := filesystem.NewInMemorySectorDevice(8)
	garbage := bytes.Repeat([]byte{0xaa}, filesystem.SectorSizeBytes)
	for sector := uint32(2); sector < 8; sector++ {
		require.NoError(t, sectorDevice.WriteSector(sector, garbage))
	}

	sectorAllocator := filesystem.NewBitmapSectorAllocator(8)
	headerSector, err := sectorAllocator.AllocateSector()
	require.NoError(t, err)
	var header filesystem.FileHeader
	f := filesystem.NewHeaderBackedFile(sectorDevice, sectorAllocator, &header, headerSector)

	n, err := f.Append([]byte("Hello"))
	require.Equal(t, 5, n)
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, header.GetSectors())

	expected := make([]byte, filesystem.SectorSizeBytes)
	copy(expected, "Hello")
	p := make([]byte, filesystem.SectorSizeBytes)
	require.NoError(t, sectorDevice.ReadSector(2, p))
	require.Equal(t, expected, p)

	// Appending to the partially filled sector should preserve
	// its existing contents.
	n, err = f.Append([]byte(", world"))
	require.Equal(t, 7, n)
	require.NoError(t, err)
	copy(expected[5:], ", world")
	require.NoError(t, sectorDevice.ReadSector(2, p))
	require.Equal(t, expected, p)
}

func TestHeaderBackedFileWriteBackFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	// If the grown file header cannot be stored, the sectors that
	// were allocated for the write should be released, and the
	// file should keep its original size.
	sectorDevice := mock.NewMockSectorDevice(ctrl)
	sectorAllocator := filesystem.NewBitmapSectorAllocator(64)
	headerSector, err := sectorAllocator.AllocateSector()
	require.NoError(t, err)
	var header filesystem.FileHeader
	f := filesystem.NewHeaderBackedFile(sectorDevice, sectorAllocator, &header, headerSector)

	sectorDevice.EXPECT().WriteSector(headerSector, gomock.Len(filesystem.SectorSizeBytes)).
		Return(status.Error(codes.Internal, "Disk on fire"))
	n, err := f.Append(make([]byte, 200))
	require.Equal(t, 0, n)
	testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to write file header to sector 1: Disk on fire"), err)
	require.Equal(t, int64(0), f.Size())
	require.Empty(t, header.GetSectors())
	require.Equal(t, 62, sectorAllocator.GetFreeSectorCount())

	// A subsequent write should succeed normally.
	sectorDevice.EXPECT().WriteSector(headerSector, gomock.Len(filesystem.SectorSizeBytes))
	sectorDevice.EXPECT().WriteSector(gomock.Not(headerSector), gomock.Len(filesystem.SectorSizeBytes))
	n, err = f.Append([]byte("Hello"))
	require.Equal(t, 5, n)
	require.NoError(t, err)
	require.Equal(t, int64(5), f.Size())
	require.Len(t, header.GetSectors(), 1)
	require.Equal(t, 61, sectorAllocator.GetFreeSectorCount())
}
