/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Track{}, &models.PlaylistMembership{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedTrack(t *testing.T, db *gorm.DB, title string, low, medium, high bool) models.Track {
	t.Helper()

	track := models.Track{
		Title:        title,
		Artist:       "Skald",
		Genre:        "ambient",
		EnergyLow:    low,
		EnergyMedium: medium,
		EnergyHigh:   high,
	}
	if err := db.Create(&track).Error; err != nil {
		t.Fatalf("seed track %q: %v", title, err)
	}
	return track
}

func TestSnapshotFiltersByTier(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	seedTrack(t, db, "calm", true, false, false)
	seedTrack(t, db, "steady", false, true, false)
	seedTrack(t, db, "versatile", true, true, true)

	acc := NewAccessor(db, AllowAll, 0, zerolog.Nop())

	tracks, err := acc.Snapshot(context.Background(), uuid.NewString(), models.TierMedium)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) = %d, want 2", len(tracks))
	}
	for _, track := range tracks {
		if !track.EnergyMedium {
			t.Fatalf("track %q not flagged medium", track.Title)
		}
	}
}

func TestSnapshotOrdersByID(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	seedTrack(t, db, "first", false, false, true)
	seedTrack(t, db, "second", false, false, true)
	seedTrack(t, db, "third", false, false, true)

	acc := NewAccessor(db, AllowAll, 0, zerolog.Nop())

	tracks, err := acc.Snapshot(context.Background(), uuid.NewString(), models.TierHigh)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for i := 1; i < len(tracks); i++ {
		if tracks[i-1].ID >= tracks[i].ID {
			t.Fatalf("tracks out of id order at %d: %d >= %d", i, tracks[i-1].ID, tracks[i].ID)
		}
	}
}

func TestSnapshotExcludesSoftDeleted(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	kept := seedTrack(t, db, "kept", true, false, false)
	removed := seedTrack(t, db, "removed", true, false, false)
	if err := db.Delete(&models.Track{}, removed.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	acc := NewAccessor(db, AllowAll, 0, zerolog.Nop())

	tracks, err := acc.Snapshot(context.Background(), uuid.NewString(), models.TierLow)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != kept.ID {
		t.Fatalf("snapshot = %+v, want only track %d", tracks, kept.ID)
	}
}

func TestSnapshotRespectsMaxSize(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	for i := 0; i < 5; i++ {
		seedTrack(t, db, "bulk", false, true, false)
	}

	acc := NewAccessor(db, AllowAll, 3, zerolog.Nop())

	tracks, err := acc.Snapshot(context.Background(), uuid.NewString(), models.TierMedium)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("len(tracks) = %d, want cap of 3", len(tracks))
	}
}

func TestSnapshotRejectsUnknownTier(t *testing.T) {
	t.Parallel()

	acc := NewAccessor(testDB(t), AllowAll, 0, zerolog.Nop())

	if _, err := acc.Snapshot(context.Background(), uuid.NewString(), "extreme"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSnapshotEnforcesAccessPolicy(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	seedTrack(t, db, "guarded", true, true, true)

	allowed := uuid.NewString()
	policy := func(_ context.Context, channelID string) error {
		if channelID != allowed {
			return errors.New("channel not permitted")
		}
		return nil
	}
	acc := NewAccessor(db, policy, 0, zerolog.Nop())

	if _, err := acc.Snapshot(context.Background(), uuid.NewString(), models.TierLow); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
	if _, err := acc.Snapshot(context.Background(), allowed, models.TierLow); err != nil {
		t.Fatalf("allowed channel rejected: %v", err)
	}
}

func TestLegacyMembersScopedByChannelAndTier(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	channel := uuid.NewString()
	other := uuid.NewString()

	rows := []models.PlaylistMembership{
		{ID: uuid.NewString(), ChannelID: channel, EnergyTier: models.TierHigh, TrackID: 11},
		{ID: uuid.NewString(), ChannelID: channel, EnergyTier: models.TierHigh, TrackID: 12},
		{ID: uuid.NewString(), ChannelID: channel, EnergyTier: models.TierLow, TrackID: 13},
		{ID: uuid.NewString(), ChannelID: other, EnergyTier: models.TierHigh, TrackID: 14},
	}
	for _, row := range rows {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}

	acc := NewAccessor(db, AllowAll, 0, zerolog.Nop())

	ids, err := acc.LegacyMembers(context.Background(), channel, models.TierHigh)
	if err != nil {
		t.Fatalf("legacy members: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want two entries", ids)
	}
	seen := map[int64]bool{ids[0]: true, ids[1]: true}
	if !seen[11] || !seen[12] {
		t.Fatalf("ids = %v, want 11 and 12", ids)
	}
}

func TestLegacyMembersEmpty(t *testing.T) {
	t.Parallel()

	acc := NewAccessor(testDB(t), AllowAll, 0, zerolog.Nop())

	ids, err := acc.LegacyMembers(context.Background(), uuid.NewString(), models.TierMedium)
	if err != nil {
		t.Fatalf("legacy members: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want empty", ids)
	}
}
