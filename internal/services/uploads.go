// Audio upload workflow: hash, pre-signed transfer, transcode polling.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/shared"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultWaitTimeout  = 5 * time.Minute
)

// UploadResult is the outcome of a complete song upload.
type UploadResult struct {
	UploadID      string
	FileName      string
	SHA256        string
	Size          int64
	Transcode     *TranscodeResult
	AlreadyExists bool
}

// Uploader drives the multi-stage song upload workflow against a [ContentAPI]:
// upload-URL acquisition, raw transfer, and transcode polling.
type Uploader struct {
	api          ContentAPI
	logger       *log.Logger
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewUploader creates an Uploader with default polling cadence (5s interval,
// 5m wall-clock timeout).
func NewUploader(api ContentAPI, logger *log.Logger) *Uploader {
	return &Uploader{
		api:          api,
		logger:       logger,
		pollInterval: defaultPollInterval,
		waitTimeout:  defaultWaitTimeout,
	}
}

// SetPolling overrides the transcode polling cadence. Zero values keep the
// current settings.
func (u *Uploader) SetPolling(interval, timeout time.Duration) {
	if interval > 0 {
		u.pollInterval = interval
	}
	if timeout > 0 {
		u.waitTimeout = timeout
	}
}

// hashFile computes the base64url sha256 of a file's contents, matching the
// digest format the upload endpoint expects.
func hashFile(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// UploadSong uploads one audio file and waits for transcoding to finish.
//
// Files already known to the service skip the raw transfer but still go
// through the transcode wait so the result carries full metadata.
func (u *Uploader) UploadSong(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fileName := filepath.Base(path)
	digest := hashFile(data)

	slot, err := u.api.GetUploadURL(ctx, digest, fileName)
	if err != nil {
		return nil, err
	}

	if slot.AlreadyExists {
		u.logger.Infof("file already exists remotely, skipping transfer: %s", fileName)
	} else {
		u.logger.Infof("uploading %s (%d bytes)", fileName, len(data))
		if err := u.api.PutFile(ctx, slot.UploadURL, data); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
		}
	}

	transcode, err := u.WaitForTranscoding(ctx, slot.UploadID)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		UploadID:      slot.UploadID,
		FileName:      fileName,
		SHA256:        digest,
		Size:          int64(len(data)),
		Transcode:     transcode,
		AlreadyExists: slot.AlreadyExists,
	}, nil
}

// WaitForTranscoding polls transcode status at the configured interval until
// completion or the wall-clock timeout elapses. The timeout error names the
// upload id and the elapsed bound.
func (u *Uploader) WaitForTranscoding(ctx context.Context, uploadID string) (*TranscodeResult, error) {
	deadline := time.Now().Add(u.waitTimeout)

	for {
		status, err := u.api.TranscodeStatus(ctx, uploadID)
		if err != nil {
			return nil, err
		}
		if status.Complete() {
			u.logger.Debugf("transcoding completed for upload %s", uploadID)
			return status, nil
		}

		if time.Now().After(deadline) {
			break
		}

		u.logger.Debugf("transcoding in progress for %s, waiting %s", uploadID, u.pollInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(u.pollInterval):
		}
	}

	return nil, fmt.Errorf("%w: transcoding did not complete within %s for upload %s",
		shared.ErrTimeout, u.waitTimeout, uploadID)
}
