/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Platform-level models
		&models.User{},
		&models.APIKey{},
		&models.AuditLog{},

		// Catalog
		&models.Channel{},
		&models.Track{},
		&models.PlaylistMembership{},

		// Sequencing
		&models.SlotStrategy{},
		&models.SavedSequence{},
		&models.AssignmentRun{},
	); err != nil {
		return err
	}

	if err := backfillSourceSequenceNames(database); err != nil {
		return err
	}

	return nil
}

// backfillSourceSequenceNames denormalizes sequence names onto strategies
// created before the name column existed, so the display name survives a
// later sequence delete.
func backfillSourceSequenceNames(database *gorm.DB) error {
	type row struct {
		ID   string
		Name string
	}
	var rows []row
	err := database.
		Table("slot_strategies").
		Select("slot_strategies.id AS id, saved_sequences.name AS name").
		Joins("JOIN saved_sequences ON saved_sequences.id = slot_strategies.source_sequence_id").
		Where("slot_strategies.source_sequence_name = '' OR slot_strategies.source_sequence_name IS NULL").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("backfill sequence names query: %w", err)
	}

	for _, r := range rows {
		if r.Name == "" {
			continue
		}
		err := database.Table("slot_strategies").
			Where("id = ?", r.ID).
			Update("source_sequence_name", r.Name).Error
		if err != nil {
			return fmt.Errorf("backfill sequence name for %s: %w", r.ID, err)
		}
	}

	return nil
}
