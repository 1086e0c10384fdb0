package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "citamed/pkg/domain-errors"
)

func newTestAppointment(t *testing.T, now time.Time) *Appointment {
	t.Helper()
	insuredID, err := ParseInsuredID("123")
	require.NoError(t, err)
	appt, err := New("APT-a1b2c3d4", insuredID, 42, CountryPE, nil, now)
	require.NoError(t, err)
	return appt
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("creates pending appointment", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		assert.Equal(t, "APT-a1b2c3d4", appt.ID)
		assert.Equal(t, "00123", appt.InsuredID.String())
		assert.Equal(t, int64(42), appt.ScheduleID)
		assert.Equal(t, CountryPE, appt.Country)
		assert.Equal(t, StatusPending, appt.Status)
		assert.Equal(t, now, appt.CreatedAt)
		assert.Equal(t, now, appt.UpdatedAt)
		assert.Nil(t, appt.CompletedAt)
	})

	t.Run("rejects non-positive schedule", func(t *testing.T) {
		insuredID, err := ParseInsuredID("123")
		require.NoError(t, err)
		for _, scheduleID := range []int64{0, -1} {
			_, err := New("APT-a1b2c3d4", insuredID, scheduleID, CountryPE, nil, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("copies caller metadata", func(t *testing.T) {
		insuredID, err := ParseInsuredID("123")
		require.NoError(t, err)
		meta := map[string]string{"channel": "web"}
		appt, err := New("APT-a1b2c3d4", insuredID, 42, CountryPE, meta, now)
		require.NoError(t, err)
		meta["channel"] = "mobile"
		assert.Equal(t, "web", appt.Metadata["channel"])
	})
}

func TestComplete(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	t.Run("pending to completed sets completedAt", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Complete(later))
		assert.Equal(t, StatusCompleted, appt.Status)
		require.NotNil(t, appt.CompletedAt)
		assert.Equal(t, later, *appt.CompletedAt)
		assert.Equal(t, later, appt.UpdatedAt)
	})

	t.Run("rejected from cancelled without mutation", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Cancel("", later))
		before := appt.Clone()

		err := appt.Complete(later.Add(time.Minute))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, before, appt)
	})
}

func TestFail(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	t.Run("records reason in metadata", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Fail("broker unavailable", later))
		assert.Equal(t, StatusFailed, appt.Status)
		assert.Equal(t, "broker unavailable", appt.Metadata[MetadataKeyFailureReason])
		assert.Nil(t, appt.CompletedAt)
	})

	t.Run("failed appointment can be retried to pending", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Fail("broker unavailable", later))
		assert.True(t, appt.Status.CanTransitionTo(StatusPending))
	})

	t.Run("rejected from completed", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Complete(later))
		err := appt.Fail("too late", later)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	t.Run("pending to cancelled with reason", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Cancel("patient request", later))
		assert.Equal(t, StatusCancelled, appt.Status)
		assert.Equal(t, "patient request", appt.Metadata[MetadataKeyCancellationReason])
	})

	t.Run("completed appointment can still be cancelled", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Complete(later))
		require.NoError(t, appt.Cancel("", later.Add(time.Minute)))
		assert.Equal(t, StatusCancelled, appt.Status)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.NoError(t, appt.Cancel("", later))
		err := appt.Cancel("", later)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestMergeMetadata(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("incoming key wins, others preserved", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		appt.MergeMetadata(map[string]string{"channel": "web", "priority": "high"})
		appt.MergeMetadata(map[string]string{"channel": "mobile"})
		assert.Equal(t, "mobile", appt.Metadata["channel"])
		assert.Equal(t, "high", appt.Metadata["priority"])
	})

	t.Run("merge into nil map", func(t *testing.T) {
		appt := newTestAppointment(t, now)
		require.Nil(t, appt.Metadata)
		appt.MergeMetadata(map[string]string{"channel": "web"})
		assert.Equal(t, "web", appt.Metadata["channel"])
	})
}

func TestClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	appt := newTestAppointment(t, now)
	appt.MergeMetadata(map[string]string{"channel": "web"})
	require.NoError(t, appt.Complete(now.Add(time.Minute)))

	cp := appt.Clone()
	cp.Metadata["channel"] = "mobile"
	*cp.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, "web", appt.Metadata["channel"])
	assert.Equal(t, now.Add(time.Minute), *appt.CompletedAt)
}
