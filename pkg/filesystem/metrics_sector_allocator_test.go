package filesystem_test

import (
	"testing"

	"github.com/buildbarn/bb-sector-fs/internal/mock"
	"github.com/buildbarn/bb-sector-fs/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.uber.org/mock/gomock"
)

func TestMetricsSectorAllocator(t *testing.T) {
	ctrl := gomock.NewController(t)

	// The decorator should forward all calls to the underlying
	// allocator without altering their results.
	baseAllocator := mock.NewMockSectorAllocator(ctrl)
	allocator := filesystem.NewMetricsSectorAllocator(baseAllocator)

	baseAllocator.EXPECT().AllocateSector().Return(uint32(12), nil)
	sector, err := allocator.AllocateSector()
	require.NoError(t, err)
	require.Equal(t, uint32(12), sector)

	baseAllocator.EXPECT().AllocateSector().Return(uint32(0), status.Error(codes.ResourceExhausted, "No free sectors available"))
	_, err = allocator.AllocateSector()
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)

	baseAllocator.EXPECT().GetFreeSectorCount().Return(42)
	require.Equal(t, 42, allocator.GetFreeSectorCount())

	baseAllocator.EXPECT().FreeList([]uint32{12, 0})
	allocator.FreeList([]uint32{12, 0})
}
