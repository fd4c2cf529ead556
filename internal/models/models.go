package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleCurator RoleName = "curator"
)

// User represents an authenticated account.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Role      RoleName `gorm:"type:varchar(16)"`
	Suspended bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnergyTier is the coarse intensity classification for channel playlists.
type EnergyTier string

const (
	TierLow    EnergyTier = "low"
	TierMedium EnergyTier = "medium"
	TierHigh   EnergyTier = "high"
)

// Valid reports whether the tier is one of the three known values.
func (t EnergyTier) Valid() bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}

// Channel groups slot strategies and playback sequences.
type Channel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Track is one catalog entry. The integer primary key doubles as the
// deterministic tie-break order during slot assignment, so it must remain
// stable across catalog re-imports.
type Track struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	Title        string
	Artist       string `gorm:"index"`
	Genre        string `gorm:"index"`
	CatalogClass string `gorm:"type:varchar(64)"`
	MusicalKey   string `gorm:"type:varchar(8)"`

	EnergyLow    bool `gorm:"index"`
	EnergyMedium bool `gorm:"index"`
	EnergyHigh   bool `gorm:"index"`

	// Continuous analysis fields. Tempo is in BPM; the rest are normalized
	// to [0,1] by the analysis pipeline. Nullable because sidecar metadata
	// imports deliver them incrementally.
	Tempo      *float64
	Speed      *float64
	Intensity  *float64
	Brightness *float64
	Complexity *float64
	Valence    *float64
	Arousal    *float64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// HasTier reports whether the track is flagged for the given energy tier.
func (t Track) HasTier(tier EnergyTier) bool {
	switch tier {
	case TierLow:
		return t.EnergyLow
	case TierMedium:
		return t.EnergyMedium
	case TierHigh:
		return t.EnergyHigh
	}
	return false
}

// SlotStrategy owns the sequencing configuration for one channel and
// energy tier. The composite unique index enforces at most one strategy
// per pair.
type SlotStrategy struct {
	ID           string     `gorm:"type:uuid;primaryKey"`
	ChannelID    string     `gorm:"type:uuid;uniqueIndex:idx_strategy_channel_tier"`
	EnergyTier   EnergyTier `gorm:"type:varchar(8);uniqueIndex:idx_strategy_channel_tier"`
	SlotCount    int
	RepeatWindow int

	// Document carries the slot definitions, boosts, and rule groups as one
	// JSON configuration document (see sequencing.Document).
	Document map[string]any `gorm:"type:jsonb;serializer:json"`

	// SourceSequenceID references the saved sequence this strategy was last
	// loaded from. Deleting the sequence nulls the reference; the
	// denormalized name survives for display.
	SourceSequenceID   *string `gorm:"type:uuid"`
	SourceSequenceName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SavedSequence is a named, immutable snapshot of a strategy's
// configuration document. Names need not be unique.
type SavedSequence struct {
	ID       string         `gorm:"type:uuid;primaryKey"`
	Name     string         `gorm:"index"`
	Document map[string]any `gorm:"type:jsonb;serializer:json"`

	// Provenance, for display only. Never used to resolve anything.
	ChannelID  string     `gorm:"type:uuid;index"`
	EnergyTier EnergyTier `gorm:"type:varchar(8)"`

	CreatedAt time.Time
}

// PlaylistMembership is a legacy direct-assignment row. Strategies that
// predate rule groups draw their candidates exclusively from these.
type PlaylistMembership struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	ChannelID  string     `gorm:"type:uuid;index:idx_membership_channel_tier"`
	EnergyTier EnergyTier `gorm:"type:varchar(8);index:idx_membership_channel_tier"`
	TrackID    int64      `gorm:"index"`
	CreatedAt  time.Time
}

// AssignmentRun records one completed sequencing run for a strategy.
type AssignmentRun struct {
	ID         string     `gorm:"type:uuid;primaryKey"`
	StrategyID string     `gorm:"type:uuid;index"`
	ChannelID  string     `gorm:"type:uuid;index"`
	EnergyTier EnergyTier `gorm:"type:varchar(8)"`

	// Result holds the ordered (slot, track) pairs plus unassigned slot
	// indices as returned by the engine.
	Result map[string]any `gorm:"type:jsonb;serializer:json"`

	Candidates int
	Assigned   int
	Starved    int
	CreatedAt  time.Time
}
