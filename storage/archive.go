package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dosada05/movie-tournament/config"
	"github.com/Dosada05/movie-tournament/models"
)

// ResultArchiver stores closed match results outside the database.
type ResultArchiver interface {
	Archive(ctx context.Context, result models.MatchResult) (*UploadResult, error)
}

type uploaderArchiver struct {
	uploader FileUploader
	prefix   string
}

// NewResultArchiver writes each result as JSON under
// {prefix}/rounds/{round}.json, e.g. "results/rounds/000042.json".
func NewResultArchiver(uploader FileUploader, prefix string) ResultArchiver {
	return &uploaderArchiver{uploader: uploader, prefix: prefix}
}

func ResultKey(prefix string, round int) string {
	key := fmt.Sprintf("rounds/%06d.json", round)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (a *uploaderArchiver) Archive(ctx context.Context, result models.MatchResult) (*UploadResult, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match result %d: %w", result.MatchID, err)
	}
	return a.uploader.Upload(ctx, ResultKey(a.prefix, result.RoundNumber), "application/json", bytes.NewReader(body))
}

// NopArchiver is used when no archive bucket is configured.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, models.MatchResult) (*UploadResult, error) {
	return nil, nil
}

// NewArchiverFromConfig returns a NopArchiver when no bucket is configured.
func NewArchiverFromConfig(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (ResultArchiver, error) {
	if !cfg.Enabled() {
		logger.Info("result archive disabled")
		return NopArchiver{}, nil
	}
	uploader, err := NewS3Uploader(ctx, S3UploaderConfig{
		AccountID:       cfg.AccountID,
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		BucketName:      cfg.Bucket,
		PublicBaseURL:   cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("result archive enabled", slog.String("bucket", cfg.Bucket))
	return NewResultArchiver(uploader, cfg.Prefix), nil
}
