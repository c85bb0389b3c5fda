package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCodeSource struct {
	mock.Mock
}

func (m *MockCodeSource) MaxCode(ctx context.Context, prefix string) (string, error) {
	args := m.Called(ctx, prefix)
	return args.String(0), args.Error(1)
}

func TestNextCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		last string
		want string
	}{
		{"first of the year", "", "STU-2025-0001"},
		{"after first", "STU-2025-0001", "STU-2025-0002"},
		{"carries digits", "STU-2025-0099", "STU-2025-0100"},
		{"past four digits", "STU-2025-9999", "STU-2025-10000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(MockCodeSource)
			src.On("MaxCode", ctx, "STU-2025-").Return(tt.last, nil)

			got, err := NextCode(ctx, src, StudentCodePrefix, 2025)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			src.AssertExpectations(t)
		})
	}

	t.Run("store error", func(t *testing.T) {
		src := new(MockCodeSource)
		src.On("MaxCode", ctx, "TCH-2024-").Return("", errors.New("connection refused"))
		_, err := NextCode(ctx, src, EmployeeCodePrefix, 2024)
		assert.Error(t, err)
	})

	t.Run("garbage sequence", func(t *testing.T) {
		src := new(MockCodeSource)
		src.On("MaxCode", ctx, "TCH-2024-").Return("TCH-2024-ABCD", nil)
		_, err := NextCode(ctx, src, EmployeeCodePrefix, 2024)
		assert.Error(t, err)
	})
}

func TestBatchCode(t *testing.T) {
	assert.Equal(t, "B21", BatchCode("Batch 21"))
	assert.Equal(t, "B2025", BatchCode("  Evening   Batch\t2025 "))
	assert.Equal(t, "BAlpha", BatchCode("Alpha"))
	assert.Equal(t, "", BatchCode("   "))
}
