package service

import (
	"testing"
	"time"

	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SettingsDefaultsAndUpdate(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	eve := f.user(t, "Eve")
	convID := f.direct(t, alice, bob)

	settings, err := f.prefs.Get(t.Context(), convID, alice.ID)
	require.NoError(t, err)
	assert.False(t, settings.IsMuted)
	assert.False(t, settings.IsPinned)
	assert.True(t, settings.CustomNotifications)

	_, err = f.prefs.Get(t.Context(), convID, eve.ID)
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)

	until := time.Now().Add(2 * time.Hour)
	settings, err = f.prefs.Update(t.Context(), convID, alice.ID, model.UpdateSettingsRequest{
		IsMuted:    ptr(true),
		MutedUntil: &until,
		IsArchived: ptr(true),
	})
	require.NoError(t, err)
	assert.True(t, settings.IsMuted)
	require.NotNil(t, settings.MutedUntil)
	assert.True(t, settings.IsArchived)
	assert.True(t, settings.MutedAt(time.Now()))

	settings, err = f.prefs.Update(t.Context(), convID, alice.ID, model.UpdateSettingsRequest{IsMuted: ptr(false)})
	require.NoError(t, err)
	assert.False(t, settings.IsMuted)
	assert.Nil(t, settings.MutedUntil)
	assert.True(t, settings.IsArchived, "untouched fields keep their value")
}

func Test_Drafts(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	eve := f.user(t, "Eve")
	convID := f.direct(t, alice, bob)

	draft, err := f.prefs.GetDraft(t.Context(), convID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, draft.Content)

	_, err = f.prefs.SaveDraft(t.Context(), convID, eve.ID, "sneaky")
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)

	_, err = f.prefs.SaveDraft(t.Context(), convID, alice.ID, "half a thought")
	require.NoError(t, err)
	_, err = f.prefs.SaveDraft(t.Context(), convID, alice.ID, "a whole thought")
	require.NoError(t, err)

	draft, err = f.prefs.GetDraft(t.Context(), convID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "a whole thought", draft.Content)

	other, err := f.prefs.GetDraft(t.Context(), convID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Content)

	cleared, err := f.prefs.SaveDraft(t.Context(), convID, alice.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, cleared)

	draft, err = f.prefs.GetDraft(t.Context(), convID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, draft.Content)

	_, err = f.prefs.SaveDraft(t.Context(), convID, alice.ID, "again")
	require.NoError(t, err)
	require.NoError(t, f.prefs.DeleteDraft(t.Context(), convID, alice.ID))
	draft, err = f.prefs.GetDraft(t.Context(), convID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, draft.Content)
}

func Test_RegisterDevice(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "Alice")

	req := model.RegisterDeviceRequest{FCMToken: "token-1", DeviceType: "android"}
	require.NoError(t, f.prefs.RegisterDevice(t.Context(), alice.ID, req))
	require.NoError(t, f.prefs.RegisterDevice(t.Context(), alice.ID, req))

	devices, err := f.users.GetUserDevices(t.Context(), alice.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "token-1", devices[0].FCMToken)
}
