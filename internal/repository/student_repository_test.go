package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStudent(t *testing.T, repo *StudentRepository, code, first, last, phone string) *model.Student {
	t.Helper()
	s, err := repo.Create(context.Background(), &model.Student{
		StudentCode:    code,
		FirstName:      first,
		LastName:       last,
		Phone:          phone,
		EnrollmentDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:         model.StudentActive,
	})
	require.NoError(t, err)
	return s
}

func TestStudentRepository_MaxCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db.DB)
	ctx := context.Background()

	code, err := repo.MaxCode(ctx, "STU-2025-")
	require.NoError(t, err)
	assert.Empty(t, code)

	createStudent(t, repo, "STU-2025-0002", "A", "B", "")
	createStudent(t, repo, "STU-2025-0010", "C", "D", "")
	createStudent(t, repo, "STU-2024-0099", "E", "F", "")

	code, err = repo.MaxCode(ctx, "STU-2025-")
	require.NoError(t, err)
	assert.Equal(t, "STU-2025-0010", code)

	t.Run("soft deleted codes still count", func(t *testing.T) {
		s := createStudent(t, repo, "STU-2025-0011", "G", "H", "")
		require.NoError(t, repo.Deactivate(ctx, s.ID))

		code, err := repo.MaxCode(ctx, "STU-2025-")
		require.NoError(t, err)
		assert.Equal(t, "STU-2025-0011", code)
	})
}

func TestStudentRepository_FindByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db.DB)
	ctx := context.Background()

	exact := createStudent(t, repo, "STU-2025-0001", "Rahim", "Uddin", "")
	swapped := createStudent(t, repo, "STU-2025-0002", "Uddin", "Rahim", "")
	partial := createStudent(t, repo, "STU-2025-0003", "Abdur Rahim", "Uddin Khan", "")
	createStudent(t, repo, "STU-2025-0004", "Karim", "Ali", "")

	found, err := repo.FindByName(ctx, "rahim", "UDDIN")
	require.NoError(t, err)

	ids := make([]string, 0, len(found))
	for _, s := range found {
		ids = append(ids, s.StudentCode)
	}
	assert.ElementsMatch(t, []string{exact.StudentCode, swapped.StudentCode, partial.StudentCode}, ids)

	t.Run("both names are required", func(t *testing.T) {
		found, err := repo.FindByName(ctx, "Rahim", " ")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestStudentRepository_FindByPhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db.DB)
	ctx := context.Background()

	createStudent(t, repo, "STU-2025-0001", "A", "B", "+8801712345678")
	createStudent(t, repo, "STU-2025-0002", "C", "D", "+8801999999999")

	found, err := repo.FindByPhone(ctx, "1712345")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "STU-2025-0001", found[0].StudentCode)

	found, err = repo.FindByPhone(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStudentRepository_UpdatesAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStudentRepository(db.DB)
	ctx := context.Background()

	s := createStudent(t, repo, "STU-2025-0001", "Nadia", "Islam", "")
	createStudent(t, repo, "STU-2025-0002", "Farhan", "Kabir", "")

	require.NoError(t, repo.Updates(ctx, s.ID, map[string]interface{}{"city": "Dhaka", "status": string(model.StudentSuspended)}))

	loaded, err := repo.GetByCode(ctx, "STU-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", loaded.City)
	assert.Equal(t, model.StudentSuspended, loaded.Status)

	items, total, err := repo.List(ctx, model.StudentFilter{Status: model.StudentSuspended})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, s.ID, items[0].ID)

	items, total, err = repo.List(ctx, model.StudentFilter{Search: "kabir"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Farhan", items[0].FirstName)

	require.NoError(t, repo.Deactivate(ctx, s.ID))
	_, total, err = repo.List(ctx, model.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
