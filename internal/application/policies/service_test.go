package policies

import (
	"context"
	"testing"

	"horas-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.VacationPolicy{}))
	return &Service{DB: db}
}

func TestLoad_EmptyStoreFallsBackToDefaults(t *testing.T) {
	svc := setupService(t)
	set := svc.Load(context.Background())
	assert.Equal(t, Defaults(), set)
}

func TestLoad_ParsesStoredValues(t *testing.T) {
	svc := setupService(t)
	require.NoError(t, svc.Set(context.Background(), map[string]string{
		KeyMinAdvanceDays:     "14",
		KeyMaxConsecutiveDays: "10",
		KeyNotifyOnRequest:    "false",
	}))

	set := svc.Load(context.Background())
	assert.Equal(t, 14, set.MinAdvanceDays)
	assert.Equal(t, 10, set.MaxConsecutiveDays)
	assert.False(t, set.NotifyOnRequest)
	// Keys not stored keep their defaults
	assert.Equal(t, Defaults().MaxRequestsPerYear, set.MaxRequestsPerYear)
}

func TestLoad_UnparseableValueKeepsDefault(t *testing.T) {
	svc := setupService(t)
	require.NoError(t, svc.DB.Create(&domain.VacationPolicy{
		Key: KeyMinAdvanceDays, Value: "quince",
	}).Error)

	set := svc.Load(context.Background())
	assert.Equal(t, Defaults().MinAdvanceDays, set.MinAdvanceDays)
}

func TestLoad_NegativeValueKeepsDefault(t *testing.T) {
	svc := setupService(t)
	require.NoError(t, svc.DB.Create(&domain.VacationPolicy{
		Key: KeyMaxRequestsPerYear, Value: "-3",
	}).Error)

	set := svc.Load(context.Background())
	assert.Equal(t, Defaults().MaxRequestsPerYear, set.MaxRequestsPerYear)
}

func TestSet_RejectsUnknownKey(t *testing.T) {
	svc := setupService(t)
	err := svc.Set(context.Background(), map[string]string{"max_hours_per_day": "8"})
	var unknown ErrUnknownPolicyKey
	require.ErrorAs(t, err, &unknown)

	// Nothing was written
	var count int64
	require.NoError(t, svc.DB.Model(&domain.VacationPolicy{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSet_UpsertsExistingKey(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, map[string]string{KeyMinAdvanceDays: "10"}))
	require.NoError(t, svc.Set(ctx, map[string]string{KeyMinAdvanceDays: "3"}))

	var rows []domain.VacationPolicy
	require.NoError(t, svc.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "3", rows[0].Value)
	assert.Equal(t, 3, svc.Load(ctx).MinAdvanceDays)
}

func TestGetAll_MergesDefaultsAndStore(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, map[string]string{KeyMaxConsecutiveDays: "15"}))

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 9)
	assert.Equal(t, "15", all[KeyMaxConsecutiveDays].Value)
	assert.Equal(t, "7", all[KeyMinAdvanceDays].Value)
	assert.NotEmpty(t, all[KeyMaxConsecutiveDays].Description)
}

func TestGetPublic_ReturnsSubsetOnly(t *testing.T) {
	svc := setupService(t)
	pub := svc.GetPublic(context.Background())
	assert.Equal(t, map[string]string{
		KeyMinAdvanceDays:     "7",
		KeyMaxConsecutiveDays: "30",
		KeyMaxRequestsPerYear: "5",
	}, pub)
}
