package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"donorlink/internal/pkg/errs"
)

const (
	// MaxPhotoSizeMB is the maximum allowed photo size in megabytes.
	MaxPhotoSizeMB = 8

	// MaxPhotoSize is the maximum allowed photo size in bytes.
	MaxPhotoSize = MaxPhotoSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an upload URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// Kind is the folder a photo belongs to.
type Kind string

const (
	KindDonation Kind = "donations"
	KindProfile  Kind = "profiles"
)

// AllowedMIMETypes lists the accepted photo types.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// ExtToMIME maps file extensions to their MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ParseKind maps a client-provided purpose to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindDonation, "donation":
		return KindDonation, true
	case KindProfile, "profile":
		return KindProfile, true
	}
	return "", false
}

// ValidatePhotoSize checks the declared size.
func ValidatePhotoSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if fileSize > MaxPhotoSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}
	return nil
}

// ValidatePhotoType checks that the MIME type is allowed and agrees with the extension.
func ValidatePhotoType(fileName, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[strings.ToLower(filepath.Ext(fileName))]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// ObjectKey builds the key for a new photo owned by userID.
func ObjectKey(kind Kind, userID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.New().String(), strings.ToLower(filepath.Ext(fileName)))
}

// OwnsKey reports whether key lives under userID's folder of any kind.
func OwnsKey(userID, key string) bool {
	for _, kind := range []Kind{KindDonation, KindProfile} {
		if strings.HasPrefix(key, string(kind)+"/"+userID+"/") {
			return true
		}
	}
	return false
}
