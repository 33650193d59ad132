package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"grammardrill/internal/drillfile"
	"grammardrill/internal/models"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Drills     []DrillBackup `json:"drills"`
}

// DrillBackup represents a drill with its questions in order
type DrillBackup struct {
	Filename  string                  `json:"filename"`
	Upvotes   int                     `json:"upvotes"`
	Downvotes int                     `json:"downvotes"`
	CreatedAt time.Time               `json:"created_at"`
	Metadata  models.DrillMetadata    `json:"metadata"`
	Questions []models.QuestionFields `json:"questions"`
}

// BackupService handles backup and restore of drills
type BackupService struct {
	drills DrillStore
}

// NewBackupService creates a new backup service
func NewBackupService(drills DrillStore) *BackupService {
	return &BackupService{drills: drills}
}

// Export writes every drill, oldest first, as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	drills, err := s.drills.List(ctx, models.DrillFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list drills: %w", err)
	}

	backup := &BackupData{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Drills:     make([]DrillBackup, 0, len(drills)),
	}

	// List is newest first; restore order should match creation order
	for i := len(drills) - 1; i >= 0; i-- {
		d := drills[i]
		questions, err := s.drills.GetQuestions(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export questions of drill %d: %w", d.ID, err)
		}
		backup.Drills = append(backup.Drills, DrillBackup{
			Filename:  d.Filename,
			Upvotes:   d.Upvotes,
			Downvotes: d.Downvotes,
			CreatedAt: d.CreatedAt,
			Metadata:  d.DrillMetadata,
			Questions: models.QuestionFieldsOf(questions),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported %d drills", len(backup.Drills))
	return backup, nil
}

// ImportResult counts what an import did
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import restores drills from a backup. With clear set, all existing drills
// are deleted first; otherwise drills whose content already exists are skipped.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) (*ImportResult, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	if clear {
		log.Println("Clearing existing drills...")
		if err := s.drills.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear drills: %w", err)
		}
	}

	result := &ImportResult{}
	for i, b := range backup.Drills {
		if len(b.Questions) == 0 {
			return nil, fmt.Errorf("drill %d (%q) in backup: %w", i, b.Metadata.Title, ErrNoQuestions)
		}

		meta := b.Metadata
		meta.ApplyDefaults()
		meta.DeriveGrammarConcept(b.Questions, models.DefaultGrammarConcept)

		hash := drillfile.Fingerprint(meta, b.Questions)
		existing, err := s.drills.GetByContentHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		filename := b.Filename
		if filename == "" {
			filename = slugFilename(meta.Title)
		}
		if _, err := s.drills.CreateWithQuestions(ctx, &models.Drill{
			Filename:      filename,
			Upvotes:       b.Upvotes,
			Downvotes:     b.Downvotes,
			ContentHash:   hash,
			DrillMetadata: meta,
		}, b.Questions); err != nil {
			return nil, fmt.Errorf("failed to import drill %q: %w", meta.Title, err)
		}
		result.Imported++
	}

	log.Printf("Import completed: %d imported, %d skipped", result.Imported, result.Skipped)
	return result, nil
}

// ExportToFile writes a backup to outputPath
func (s *BackupService) ExportToFile(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.Export(ctx, file)
}

// ImportFromFile restores a backup from inputPath
func (s *BackupService) ImportFromFile(ctx context.Context, inputPath string, clear bool) (*ImportResult, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.Import(ctx, file, clear)
}
