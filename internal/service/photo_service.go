package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
	"github.com/noah-isme/staff-records-api/pkg/storage"
)

const maxReportedPhotoErrors = 10

var allowedPhotoExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// photoExtension returns the lower-cased extension of filename when it is an accepted image type.
func photoExtension(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := allowedPhotoExt[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, "only jpg, jpeg, png and gif files are accepted")
	}
	return ext, nil
}

// PhotoContentType maps a stored photo name to its MIME type.
func PhotoContentType(name string) string {
	if ct, ok := allowedPhotoExt[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

type photoProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.StaffProfile, error)
	GetByStaffID(ctx context.Context, staffID string) (*models.StaffProfile, error)
	UpdateProfilePicture(ctx context.Context, id, path string) error
}

type photoBlobStore interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
}

type urlSigner interface {
	Generate(subject, path string) (string, time.Time, error)
	Parse(token string) (*storage.SignedToken, error)
}

// SignedPhotoURL is a temporary download link for a profile photo.
type SignedPhotoURL struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PhotoService stores profile photos and issues signed download links for them.
type PhotoService struct {
	profiles  photoProfileStore
	blobs     photoBlobStore
	signer    urlSigner
	apiPrefix string
	maxBytes  int64
	audit     auditRecorder
	logger    *zap.Logger
}

// NewPhotoService constructs a PhotoService. maxBytes bounds a single image; zero disables the check.
func NewPhotoService(profiles photoProfileStore, blobs photoBlobStore, signer urlSigner, apiPrefix string, maxBytes int64, audit auditSink, logger *zap.Logger) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &PhotoService{
		profiles:  profiles,
		blobs:     blobs,
		signer:    signer,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		maxBytes:  maxBytes,
		audit:     auditRecorder{sink: audit, logger: logger},
		logger:    logger,
	}
}

func (s *PhotoService) store(ctx context.Context, profile *models.StaffProfile, ext string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "photo is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("photo exceeds %d bytes", s.maxBytes))
	}
	stored, err := s.blobs.Save(path.Join(staffPhotoDir, profile.StaffID+ext), data)
	if err != nil {
		return "", appErrors.Internal(err, "failed to store photo")
	}
	if err := s.profiles.UpdateProfilePicture(ctx, profile.ID, stored); err != nil {
		return "", storeError(err, "staff profile not found", "failed to update staff profile")
	}
	return stored, nil
}

// UploadProfilePhoto stores an image as the profile picture of profileID.
func (s *PhotoService) UploadProfilePhoto(ctx context.Context, profileID, filename string, data []byte, actor Actor) (*models.StaffProfile, error) {
	ext, err := photoExtension(filename)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, storeError(err, "staff profile not found", "failed to load staff profile")
	}
	stored, err := s.store(ctx, profile, ext, data)
	if err != nil {
		return nil, err
	}
	profile.ProfilePicture = stored
	s.audit.record(ctx, actor, models.AuditActionUpdate, models.ResourcePhoto, profile.ID, "uploaded photo for "+profile.StaffID)
	return profile, nil
}

func skippedZipEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

// BatchUpload assigns each image of a ZIP archive to the profile named by the file's base name.
func (s *PhotoService) BatchUpload(ctx context.Context, archive []byte, actor Actor) (*dto.PhotoBatchResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "photo archive could not be read")
	}
	result := &dto.PhotoBatchResult{Errors: []string{}}
	fail := func(msg string) {
		result.ErrorCount++
		if len(result.Errors) < maxReportedPhotoErrors {
			result.Errors = append(result.Errors, msg)
		}
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skippedZipEntry(f.Name) {
			continue
		}
		base := path.Base(f.Name)
		ext, err := photoExtension(base)
		if err != nil {
			fail(fmt.Sprintf("%s: unsupported file type", base))
			continue
		}
		staffID := strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
		profile, err := s.profiles.GetByStaffID(ctx, staffID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				fail(fmt.Sprintf("%s: staff id %s not found", base, staffID))
			} else {
				s.logger.Warn("photo batch lookup failed", zap.String("staff_id", staffID), zap.Error(err))
				fail(fmt.Sprintf("%s: lookup failed", base))
			}
			continue
		}
		data, err := readZipEntry(f, s.maxBytes)
		if err != nil {
			fail(fmt.Sprintf("%s: %s", base, err.Error()))
			continue
		}
		if _, err := s.store(ctx, profile, ext, data); err != nil {
			fail(fmt.Sprintf("%s: %s", base, appErrors.FromError(err).Message))
			continue
		}
		result.SuccessCount++
	}

	s.audit.record(ctx, actor, models.AuditActionImport, models.ResourcePhoto, "",
		fmt.Sprintf("batch photo upload: %d stored, %d failed", result.SuccessCount, result.ErrorCount))
	s.logger.Info("photo batch processed", zap.Int("success", result.SuccessCount), zap.Int("errors", result.ErrorCount))
	return result, nil
}

func readZipEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.New("unreadable entry")
	}
	defer rc.Close() //nolint:errcheck
	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("unreadable entry")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("photo exceeds %d bytes", limit)
	}
	return data, nil
}

// SignedURL issues a temporary download link for the profile picture.
func (s *PhotoService) SignedURL(ctx context.Context, profileID string) (*SignedPhotoURL, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, storeError(err, "staff profile not found", "failed to load staff profile")
	}
	if profile.ProfilePicture == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "profile has no photo")
	}
	token, expiresAt, err := s.signer.Generate(profile.ID, profile.ProfilePicture)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign photo url")
	}
	return &SignedPhotoURL{
		URL:       fmt.Sprintf("%s/photos/%s", s.apiPrefix, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and returns the photo bytes and content type.
func (s *PhotoService) Resolve(token string) ([]byte, string, error) {
	payload, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "photo link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid photo link")
	}
	data, err := s.blobs.Read(payload.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, "", appErrors.Internal(err, "failed to read photo")
	}
	return data, PhotoContentType(payload.Path), nil
}
