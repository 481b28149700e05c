package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/modules/statement"
)

const (
	archivePrefix     = "foresight-run-"
	archiveTimeFormat = "2006-01-02-150405"

	// Rotation never deletes below this count, regardless of age.
	minArchivesToKeep = 3
)

// ObjectStorage is the bucket surface the archiver needs. *ObjectStore
// satisfies it.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// Archiver packages completed forecast runs into gzip'd tar bundles and
// uploads them to object storage. Each bundle carries the rendered income
// statement report, the full msgpack run snapshot, and a manifest with
// checksums, so a run survives even if results.db is lost.
type Archiver struct {
	store   ObjectStorage
	runs    *forecast.Repository
	dataDir string
	log     zerolog.Logger
}

// ArchiveManifest describes the contents of one uploaded bundle.
type ArchiveManifest struct {
	RunID             string        `json:"run_id"`
	RunCreatedAt      time.Time     `json:"run_created_at"`
	ArchivedAt        time.Time     `json:"archived_at"`
	AssumptionSet     string        `json:"assumption_set"`
	AssumptionVersion int           `json:"assumption_version"`
	Horizon           int           `json:"horizon"`
	Quarters          int           `json:"quarters"`
	Warnings          []string      `json:"warnings,omitempty"`
	Files             []ArchiveFile `json:"files"`
}

// ArchiveFile records size and checksum for one file inside the bundle.
type ArchiveFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// ArchiveInfo is the listing view of a bundle stored in the bucket.
type ArchiveInfo struct {
	Filename  string    `json:"filename"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

func NewArchiver(store ObjectStorage, runs *forecast.Repository, dataDir string, log zerolog.Logger) *Archiver {
	return &Archiver{
		store:   store,
		runs:    runs,
		dataDir: dataDir,
		log:     log.With().Str("service", "archiver").Logger(),
	}
}

// ArchiveRun bundles one completed run and uploads it. Returns the object key.
func (a *Archiver) ArchiveRun(ctx context.Context, runID string) (string, error) {
	startTime := time.Now()

	run, err := a.runs.Run(runID)
	if err != nil {
		return "", fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if run.Status != forecast.StatusCompleted {
		return "", fmt.Errorf("run %s is %s, only completed runs are archived", run.ID, run.Status)
	}

	a.log.Info().Str("run_id", run.ID).Msg("Archiving forecast run")

	staging, err := os.MkdirTemp(a.dataDir, "archive-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	report := statement.Render(run.Statements)
	if err := os.WriteFile(filepath.Join(staging, "report.txt"), []byte(report), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	snapshot, err := msgpack.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode run snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "run.msgpack"), snapshot, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	archivedAt := time.Now().UTC()
	manifest := ArchiveManifest{
		RunID:             run.ID,
		RunCreatedAt:      run.CreatedAt,
		ArchivedAt:        archivedAt,
		AssumptionSet:     run.AssumptionName,
		AssumptionVersion: run.AssumptionVersion,
		Horizon:           run.Horizon,
		Quarters:          len(run.Statements),
		Warnings:          run.Warnings,
	}

	for _, name := range []string{"report.txt", "run.msgpack"} {
		path := filepath.Join(staging, name)

		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", name, err)
		}
		checksum, err := checksumFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to checksum %s: %w", name, err)
		}

		manifest.Files = append(manifest.Files, ArchiveFile{
			Name:      name,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	if err := writeManifest(filepath.Join(staging, "manifest.json"), manifest); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	archiveName := fmt.Sprintf("%s%s-%s.tar.gz", archivePrefix, archivedAt.Format(archiveTimeFormat), run.ID)
	archivePath := filepath.Join(staging, archiveName)

	if err := writeArchive(archivePath, staging, []string{"report.txt", "run.msgpack", "manifest.json"}); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := a.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	a.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", info.Size()).
		Msg("Run archived")

	return archiveName, nil
}

// List returns all run bundles in the bucket, newest first.
func (a *Archiver) List(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := a.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	archives := make([]ArchiveInfo, 0, len(objects))
	now := time.Now().UTC()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		// Key format: foresight-run-2026-01-08-143022-<run id>.tar.gz
		filename := *obj.Key
		if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
			continue
		}

		rest := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
		if len(rest) < len(archiveTimeFormat)+2 || rest[len(archiveTimeFormat)] != '-' {
			continue
		}

		timestamp, err := time.Parse(archiveTimeFormat, rest[:len(archiveTimeFormat)])
		if err != nil {
			a.log.Warn().Str("filename", filename).Msg("Failed to parse timestamp from archive name")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		archives = append(archives, ArchiveInfo{
			Filename:  filename,
			RunID:     rest[len(archiveTimeFormat)+1:],
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})

	return archives, nil
}

// Rotate deletes bundles older than the retention period. The newest
// minArchivesToKeep always survive; retentionDays 0 keeps everything.
func (a *Archiver) Rotate(ctx context.Context, retentionDays int) error {
	archives, err := a.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list archives: %w", err)
	}

	if len(archives) <= minArchivesToKeep {
		a.log.Debug().Int("count", len(archives)).Msg("Too few archives to rotate")
		return nil
	}

	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -retentionDays)
	}

	deleted := 0
	for i, archive := range archives {
		if i < minArchivesToKeep {
			continue
		}
		if retentionDays == 0 {
			continue
		}

		if archive.Timestamp.Before(cutoff) {
			if err := a.store.Delete(ctx, archive.Filename); err != nil {
				a.log.Error().
					Err(err).
					Str("filename", archive.Filename).
					Msg("Failed to delete old archive")
				continue
			}

			a.log.Info().
				Str("filename", archive.Filename).
				Time("timestamp", archive.Timestamp).
				Msg("Deleted old archive")
			deleted++
		}
	}

	if deleted > 0 {
		a.log.Info().
			Int("deleted", deleted).
			Int("remaining", len(archives)-deleted).
			Msg("Archive rotation completed")
	}

	return nil
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeManifest(path string, manifest ArchiveManifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(manifest)
}

func writeArchive(archivePath, sourceDir string, filenames []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, name := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	return nil
}

func addFileToArchive(tarWriter *tar.Writer, path, nameInArchive string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}

	return nil
}
