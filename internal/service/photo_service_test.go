package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-records-api/internal/models"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
	"github.com/noah-isme/staff-records-api/pkg/storage"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestUploadProfilePhoto(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	id := seedProfile(t, f, models.StaffProfile{StaffID: "P001", StaffName: "Fung", IsActive: true})
	svc := f.photoService(nil, 8)

	profile, err := svc.UploadProfilePhoto(context.Background(), id, "portrait.JPG", []byte("jpeg"), hrActor)
	require.NoError(t, err)
	assert.Equal(t, "staff_photos/P001.jpg", profile.ProfilePicture)
	assert.Equal(t, "staff_photos/P001.jpg", f.store.profiles[id].ProfilePicture)

	_, err = svc.UploadProfilePhoto(context.Background(), id, "notes.txt", []byte("text"), hrActor)
	assert.Equal(t, appErrors.ErrUnsupportedMedia.Code, appErrors.FromError(err).Code)

	_, err = svc.UploadProfilePhoto(context.Background(), id, "big.png", []byte("0123456789"), hrActor)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)

	_, err = svc.UploadProfilePhoto(context.Background(), "missing", "a.png", []byte("png"), hrActor)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBatchUploadPhotos(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	seedProfile(t, f, models.StaffProfile{StaffID: "P010", StaffName: "Au", IsActive: true})
	seedProfile(t, f, models.StaffProfile{StaffID: "P011", StaffName: "Bo", IsActive: true})
	archive := buildZip(t, map[string]string{
		"photos/P010.png":     "png",
		"P011.jpeg":           "jpeg",
		"P999.jpg":            "orphan",
		"readme.txt":          "ignored type",
		"__MACOSX/._P010.png": "resource fork",
		"photos/.DS_Store":    "finder",
	})

	result, err := f.photoService(nil, 0).BatchUpload(context.Background(), archive, hrActor)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, "staff_photos/P011.jpeg", f.profileByStaffID("P011").ProfilePicture)

	_, err = f.photoService(nil, 0).BatchUpload(context.Background(), []byte("not a zip"), hrActor)
	assert.Equal(t, appErrors.ErrInvalidImportFile.Code, appErrors.FromError(err).Code)
}

func TestBatchUploadCapsReportedErrors(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	files := map[string]string{}
	for i := 0; i < 15; i++ {
		files[string(rune('a'+i))+".gif"] = "gif"
	}
	result, err := f.photoService(nil, 0).BatchUpload(context.Background(), buildZip(t, files), hrActor)
	require.NoError(t, err)
	assert.Equal(t, 15, result.ErrorCount)
	assert.Len(t, result.Errors, maxReportedPhotoErrors)
}

func TestSignedPhotoURL(t *testing.T) {
	f := newFixture(fixedClock(2024, time.March, 10))
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc := f.photoService(signer, 0)
	id := seedProfile(t, f, models.StaffProfile{StaffID: "P020", StaffName: "Chu", IsActive: true})

	_, err := svc.SignedURL(context.Background(), id)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.UploadProfilePhoto(context.Background(), id, "me.png", []byte("png"), hrActor)
	require.NoError(t, err)
	link, err := svc.SignedURL(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/photos/"+link.Token, link.URL)

	data, contentType, err := svc.Resolve(link.Token)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", contentType)

	_, _, err = svc.Resolve(link.Token + "x")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
