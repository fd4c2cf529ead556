/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package importer loads track libraries and playlist assignments from a
// legacy sequencer's SQLite database into the catalog.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/bragi_sequencer/internal/models"
)

// Options controls a legacy library import.
type Options struct {
	SourcePath  string // path to the legacy SQLite database
	ChannelName string // override target channel; defaults to legacy playlist names
	DryRun      bool   // analyze without writing
}

// Report summarizes what an import did (or would do, under DryRun).
type Report struct {
	Channels          int
	Tracks            int
	TracksSkipped     int
	Memberships       int
	MembershipsMissed int // playlist rows whose track was absent from the source
}

// Service performs legacy imports against the primary database.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates an importer.
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "importer").Logger(),
	}
}

// Legacy schema rows. The predecessor kept a flat tracks table plus
// playlists joined through playlist_tracks.

type legacyTrack struct {
	ID     int64    `gorm:"column:id"`
	Title  string   `gorm:"column:title"`
	Artist string   `gorm:"column:artist"`
	Genre  string   `gorm:"column:genre"`
	Tempo  *float64 `gorm:"column:bpm"`
	Energy int      `gorm:"column:energy"` // 1=low 2=medium 3=high, 0=unrated
}

func (legacyTrack) TableName() string { return "tracks" }

type legacyPlaylist struct {
	ID     int64  `gorm:"column:id"`
	Name   string `gorm:"column:name"`
	Energy int    `gorm:"column:energy"`
}

func (legacyPlaylist) TableName() string { return "playlists" }

type legacyPlaylistTrack struct {
	PlaylistID int64 `gorm:"column:playlist_id"`
	TrackID    int64 `gorm:"column:track_id"`
}

func (legacyPlaylistTrack) TableName() string { return "playlist_tracks" }

func tierFromEnergy(energy int) models.EnergyTier {
	switch energy {
	case 1:
		return models.TierLow
	case 3:
		return models.TierHigh
	default:
		return models.TierMedium
	}
}

// ImportLegacyLibrary reads the legacy database and creates channels,
// tracks, and playlist memberships. Tracks keep their legacy integer IDs
// so existing tie-break ordering carries over.
func (s *Service) ImportLegacyLibrary(ctx context.Context, opts Options) (*Report, error) {
	if _, err := os.Stat(opts.SourcePath); err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}

	source, err := gorm.Open(sqlite.Open(opts.SourcePath+"?mode=ro"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	sqlDB, err := source.DB()
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	defer sqlDB.Close()

	var srcTracks []legacyTrack
	if err := source.WithContext(ctx).Find(&srcTracks).Error; err != nil {
		return nil, fmt.Errorf("read legacy tracks: %w", err)
	}
	var srcPlaylists []legacyPlaylist
	if err := source.WithContext(ctx).Find(&srcPlaylists).Error; err != nil {
		return nil, fmt.Errorf("read legacy playlists: %w", err)
	}
	var srcLinks []legacyPlaylistTrack
	if err := source.WithContext(ctx).Find(&srcLinks).Error; err != nil {
		return nil, fmt.Errorf("read legacy playlist links: %w", err)
	}

	s.logger.Info().
		Int("tracks", len(srcTracks)).
		Int("playlists", len(srcPlaylists)).
		Int("links", len(srcLinks)).
		Bool("dry_run", opts.DryRun).
		Msg("legacy library scanned")

	report := &Report{}
	trackIDs := make(map[int64]struct{}, len(srcTracks))
	for _, t := range srcTracks {
		trackIDs[t.ID] = struct{}{}
	}

	if opts.DryRun {
		report.Tracks = len(srcTracks)
		report.Channels = s.countTargetChannels(srcPlaylists, opts)
		for _, link := range srcLinks {
			if _, ok := trackIDs[link.TrackID]; ok {
				report.Memberships++
			} else {
				report.MembershipsMissed++
			}
		}
		return report, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range srcTracks {
			track := models.Track{
				ID:     t.ID,
				Title:  t.Title,
				Artist: t.Artist,
				Genre:  t.Genre,
				Tempo:  t.Tempo,
			}
			switch tierFromEnergy(t.Energy) {
			case models.TierLow:
				track.EnergyLow = true
			case models.TierHigh:
				track.EnergyHigh = true
			default:
				track.EnergyMedium = true
			}

			var existing int64
			if err := tx.Model(&models.Track{}).Where("id = ?", t.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				report.TracksSkipped++
				continue
			}
			if err := tx.Create(&track).Error; err != nil {
				return fmt.Errorf("create track %d: %w", t.ID, err)
			}
			report.Tracks++
		}

		// Channel per playlist unless an override channel is given.
		channelIDs := make(map[int64]string, len(srcPlaylists))
		tierByPlaylist := make(map[int64]models.EnergyTier, len(srcPlaylists))
		var overrideID string
		if opts.ChannelName != "" {
			id, created, err := s.ensureChannel(tx, opts.ChannelName)
			if err != nil {
				return err
			}
			overrideID = id
			if created {
				report.Channels++
			}
		}
		for _, p := range srcPlaylists {
			tierByPlaylist[p.ID] = tierFromEnergy(p.Energy)
			if overrideID != "" {
				channelIDs[p.ID] = overrideID
				continue
			}
			id, created, err := s.ensureChannel(tx, p.Name)
			if err != nil {
				return err
			}
			channelIDs[p.ID] = id
			if created {
				report.Channels++
			}
		}

		for _, link := range srcLinks {
			if _, ok := trackIDs[link.TrackID]; !ok {
				report.MembershipsMissed++
				continue
			}
			channelID, ok := channelIDs[link.PlaylistID]
			if !ok {
				report.MembershipsMissed++
				continue
			}
			membership := models.PlaylistMembership{
				ID:         uuid.NewString(),
				ChannelID:  channelID,
				EnergyTier: tierByPlaylist[link.PlaylistID],
				TrackID:    link.TrackID,
				CreatedAt:  time.Now().UTC(),
			}
			if err := tx.Create(&membership).Error; err != nil {
				return fmt.Errorf("create membership: %w", err)
			}
			report.Memberships++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("channels", report.Channels).
		Int("tracks", report.Tracks).
		Int("memberships", report.Memberships).
		Int("missed", report.MembershipsMissed).
		Msg("legacy import complete")

	return report, nil
}

func (s *Service) countTargetChannels(playlists []legacyPlaylist, opts Options) int {
	if opts.ChannelName != "" {
		return 1
	}
	names := make(map[string]struct{}, len(playlists))
	for _, p := range playlists {
		names[p.Name] = struct{}{}
	}
	return len(names)
}

func (s *Service) ensureChannel(tx *gorm.DB, name string) (string, bool, error) {
	var channel models.Channel
	err := tx.Where("name = ?", name).First(&channel).Error
	if err == nil {
		return channel.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}

	channel = models.Channel{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "imported from legacy library",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := tx.Create(&channel).Error; err != nil {
		return "", false, fmt.Errorf("create channel %q: %w", name, err)
	}
	return channel.ID, true, nil
}
