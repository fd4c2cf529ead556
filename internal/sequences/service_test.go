/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequences

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/events"
	"github.com/friendsincode/bragi_sequencer/internal/models"
	"github.com/friendsincode/bragi_sequencer/internal/sequencing"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SlotStrategy{}, &models.SavedSequence{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewService(db, nil, events.NewBus(), zerolog.Nop()), db
}

func seedStrategy(t *testing.T, db *gorm.DB) *models.SlotStrategy {
	t.Helper()

	doc := sequencing.Document{
		SlotCount:    3,
		RepeatWindow: 1,
		Slots: []sequencing.SlotSpec{
			{Index: 1, Targets: map[string]float64{"tempo": 120}},
		},
	}
	raw, err := sequencing.EncodeDocument(doc)
	if err != nil {
		t.Fatalf("encode document: %v", err)
	}

	strategy := &models.SlotStrategy{
		ID:           uuid.NewString(),
		ChannelID:    uuid.NewString(),
		EnergyTier:   models.TierMedium,
		SlotCount:    doc.SlotCount,
		RepeatWindow: doc.RepeatWindow,
		Document:     raw,
	}
	if err := db.Create(strategy).Error; err != nil {
		t.Fatalf("seed strategy: %v", err)
	}
	return strategy
}

func TestSaveSnapshotsStrategyDocument(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	seq, err := svc.Save(context.Background(), strategy.ID, "evening rotation")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if seq.Name != "evening rotation" {
		t.Fatalf("name = %q", seq.Name)
	}
	if seq.ChannelID != strategy.ChannelID || seq.EnergyTier != strategy.EnergyTier {
		t.Fatalf("provenance mismatch: channel=%q tier=%q", seq.ChannelID, seq.EnergyTier)
	}

	var reloaded models.SlotStrategy
	if err := db.First(&reloaded, "id = ?", strategy.ID).Error; err != nil {
		t.Fatalf("reload strategy: %v", err)
	}
	if reloaded.SourceSequenceID == nil || *reloaded.SourceSequenceID != seq.ID {
		t.Fatalf("strategy not marked with source sequence id")
	}
	if reloaded.SourceSequenceName != "evening rotation" {
		t.Fatalf("source name = %q", reloaded.SourceSequenceName)
	}
}

func TestSaveIsolatesSnapshotFromLaterEdits(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	seq, err := svc.Save(context.Background(), strategy.ID, "before edit")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutate the strategy document after the snapshot was taken.
	edited := sequencing.Document{SlotCount: 9, RepeatWindow: 4}
	raw, err := sequencing.EncodeDocument(edited)
	if err != nil {
		t.Fatalf("encode edited document: %v", err)
	}
	if err := db.Model(&models.SlotStrategy{}).Where("id = ?", strategy.ID).
		Updates(&models.SlotStrategy{Document: raw}).Error; err != nil {
		t.Fatalf("update strategy: %v", err)
	}

	stored, err := svc.Get(context.Background(), seq.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc, err := sequencing.ParseDocument(stored.Document)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if doc.SlotCount != 3 || doc.RepeatWindow != 1 {
		t.Fatalf("snapshot leaked edits: slot_count=%d repeat_window=%d", doc.SlotCount, doc.RepeatWindow)
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	if _, err := svc.Save(context.Background(), strategy.ID, ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
}

func TestSaveUnknownStrategy(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)

	if _, err := svc.Save(context.Background(), uuid.NewString(), "x"); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("err = %v, want ErrStrategyNotFound", err)
	}
}

func TestLoadAppliesDeepCopy(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	seq, err := svc.Save(context.Background(), strategy.ID, "baseline")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := svc.Load(context.Background(), strategy.ID, seq.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SlotCount != 3 || loaded.RepeatWindow != 1 {
		t.Fatalf("loaded strategy shape: slot_count=%d repeat_window=%d", loaded.SlotCount, loaded.RepeatWindow)
	}
	if loaded.SourceSequenceID == nil || *loaded.SourceSequenceID != seq.ID {
		t.Fatalf("loaded strategy missing source sequence id")
	}
	if loaded.SourceSequenceName != "baseline" {
		t.Fatalf("source name = %q", loaded.SourceSequenceName)
	}

	// Mutating the applied document must not reach the stored snapshot.
	loaded.Document["slot_count"] = float64(99)

	stored, err := svc.Get(context.Background(), seq.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc, err := sequencing.ParseDocument(stored.Document)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if doc.SlotCount != 3 {
		t.Fatalf("snapshot mutated through loaded copy: slot_count=%d", doc.SlotCount)
	}
}

func TestLoadUnknownSequence(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	if _, err := svc.Load(context.Background(), strategy.ID, uuid.NewString()); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("err = %v, want ErrSequenceNotFound", err)
	}
}

func TestDeleteNullsReferencesKeepsName(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	strategy := seedStrategy(t, db)

	seq, err := svc.Save(context.Background(), strategy.ID, "retired mix")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := svc.Delete(context.Background(), seq.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(context.Background(), seq.ID); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("sequence still readable after delete: %v", err)
	}

	var reloaded models.SlotStrategy
	if err := db.First(&reloaded, "id = ?", strategy.ID).Error; err != nil {
		t.Fatalf("reload strategy: %v", err)
	}
	if reloaded.SourceSequenceID != nil {
		t.Fatalf("source sequence id not nulled: %v", *reloaded.SourceSequenceID)
	}
	if reloaded.SourceSequenceName != "retired mix" {
		t.Fatalf("denormalized name lost: %q", reloaded.SourceSequenceName)
	}
}

func TestDeleteUnknownSequence(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)

	if err := svc.Delete(context.Background(), uuid.NewString()); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("err = %v, want ErrSequenceNotFound", err)
	}
}

func TestListFiltersByChannel(t *testing.T) {
	t.Parallel()

	svc, db := testService(t)
	first := seedStrategy(t, db)
	second := seedStrategy(t, db)

	if _, err := svc.Save(context.Background(), first.ID, "a"); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if _, err := svc.Save(context.Background(), second.ID, "b"); err != nil {
		t.Fatalf("save b: %v", err)
	}

	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d", len(all))
	}

	scoped, err := svc.List(context.Background(), first.ChannelID)
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Name != "a" {
		t.Fatalf("scoped list = %+v", scoped)
	}
}

// memStore is an in-memory ObjectStore used to observe archive traffic.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func TestArchiveMirrorsSaveAndDelete(t *testing.T) {
	t.Parallel()

	_, db := testService(t)
	store := newMemStore()
	svc := NewService(db, store, events.NewBus(), zerolog.Nop())
	strategy := seedStrategy(t, db)

	seq, err := svc.Save(context.Background(), strategy.ID, "archived")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(context.Background(), archiveKey(seq.ID)); err != nil {
		t.Fatalf("snapshot not archived: %v", err)
	}

	if err := svc.Delete(context.Background(), seq.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), archiveKey(seq.ID)); err == nil {
		t.Fatalf("archived object survived delete")
	}
}
