package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkaraoglu/stajportal/internal/models"
)

func TestPinSecurityRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.Teardown(ctx) })

	attempts, principals, events := InitializeRepositories(testDB.DB)

	var teacherID string

	t.Run("attempt ledger", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		teacherID, err = SeedTeacher(ctx, testDB.Pool, "Ayşe Yılmaz", "ayse@example.edu.tr", "482917")
		require.NoError(t, err)

		now := time.Now().UTC()
		ip := "10.0.0.1"

		for i := 0; i < 3; i++ {
			require.NoError(t, attempts.RecordAttempt(ctx, &models.PinAttempt{
				EntityType:  models.EntityTypeTeacher,
				EntityID:    teacherID,
				Success:     false,
				AttemptedAt: now.Add(time.Duration(i) * time.Second),
				IPAddress:   &ip,
				ExpiresAt:   now.Add(24 * time.Hour),
			}))
		}
		require.NoError(t, attempts.RecordAttempt(ctx, &models.PinAttempt{
			EntityType:  models.EntityTypeTeacher,
			EntityID:    teacherID,
			Success:     true,
			AttemptedAt: now.Add(3 * time.Second),
			ExpiresAt:   now.Add(24 * time.Hour),
		}))

		count, err := attempts.CountFailedSince(ctx, models.EntityTypeTeacher, teacherID, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		// Failures before the window are excluded
		count, err = attempts.CountFailedSince(ctx, models.EntityTypeTeacher, teacherID, now.Add(500*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		last, err := attempts.LastFailureSince(ctx, models.EntityTypeTeacher, teacherID, now.Add(-time.Minute))
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.WithinDuration(t, now.Add(2*time.Second), *last, time.Millisecond)

		success, err := attempts.LastSuccessTime(ctx, models.EntityTypeTeacher, teacherID)
		require.NoError(t, err)
		require.NotNil(t, success)
		assert.WithinDuration(t, now.Add(3*time.Second), *success, time.Millisecond)

		// Another principal's attempts are invisible
		count, err = attempts.CountFailedSince(ctx, models.EntityTypeCompany, teacherID, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("retention purge", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		teacherID, err = SeedTeacher(ctx, testDB.Pool, "Ayşe Yılmaz", "ayse@example.edu.tr", "482917")
		require.NoError(t, err)

		now := time.Now().UTC()
		require.NoError(t, attempts.RecordAttempt(ctx, &models.PinAttempt{
			EntityType:  models.EntityTypeTeacher,
			EntityID:    teacherID,
			AttemptedAt: now.Add(-25 * time.Hour),
			ExpiresAt:   now.Add(-time.Hour),
		}))
		require.NoError(t, attempts.RecordAttempt(ctx, &models.PinAttempt{
			EntityType:  models.EntityTypeTeacher,
			EntityID:    teacherID,
			AttemptedAt: now,
			ExpiresAt:   now.Add(24 * time.Hour),
		}))

		deleted, err := attempts.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("lockout round trip", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		teacherID, err = SeedTeacher(ctx, testDB.Pool, "Ayşe Yılmaz", "ayse@example.edu.tr", "482917")
		require.NoError(t, err)

		state, err := principals.GetLockout(ctx, models.EntityTypeTeacher, teacherID)
		require.NoError(t, err)
		assert.False(t, state.IsLocked)

		lockStart := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, principals.SaveLockout(ctx, models.EntityTypeTeacher, teacherID, models.LockoutState{
			IsLocked:          true,
			LockStartTime:     &lockStart,
			FailedAttempts:    4,
			LastFailedAttempt: &lockStart,
		}))

		state, err = principals.GetLockout(ctx, models.EntityTypeTeacher, teacherID)
		require.NoError(t, err)
		assert.True(t, state.IsLocked)
		assert.Equal(t, 4, state.FailedAttempts)
		require.NotNil(t, state.LockStartTime)
		assert.WithinDuration(t, lockStart, *state.LockStartTime, time.Millisecond)

		// Manual unlock clears every field
		require.NoError(t, principals.SaveLockout(ctx, models.EntityTypeTeacher, teacherID, models.LockoutState{}))
		state, err = principals.GetLockout(ctx, models.EntityTypeTeacher, teacherID)
		require.NoError(t, err)
		assert.False(t, state.IsLocked)
		assert.Nil(t, state.LockStartTime)
		assert.Equal(t, 0, state.FailedAttempts)
	})

	t.Run("unknown principal", func(t *testing.T) {
		_, err := principals.GetPrincipal(ctx, models.EntityTypeTeacher, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, models.ErrNotFound)

		err = principals.SaveLockout(ctx, models.EntityTypeTeacher,
			"00000000-0000-0000-0000-000000000000", models.LockoutState{})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("principal lookup", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))
		companyID, err := SeedCompany(ctx, testDB.Pool, "Acme Bilişim", "info@acme.com.tr", "917364")
		require.NoError(t, err)

		principal, err := principals.GetPrincipal(ctx, models.EntityTypeCompany, companyID)
		require.NoError(t, err)
		assert.Equal(t, models.EntityTypeCompany, principal.Type)
		assert.Equal(t, companyID, principal.ID)
		assert.NotEmpty(t, principal.PinHash)
	})

	t.Run("security events", func(t *testing.T) {
		require.NoError(t, testDB.CleanupTables(ctx))

		err := events.Create(ctx, &models.SecurityEvent{
			UserID:   "teacher-1",
			Action:   models.AuditActionManualUnlock,
			Severity: models.SeverityWarning,
			Details:  models.EventDetails{"entity_type": "teacher"},
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, testDB.Pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM security_events WHERE action = $1",
			models.AuditActionManualUnlock).Scan(&count))
		assert.Equal(t, 1, count)
	})
}
