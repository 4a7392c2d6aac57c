package handler

import (
	"net/http"

	"donorlink/internal/app/storage"
	"donorlink/internal/pkg/auth/jwt"
	"donorlink/internal/pkg/errs"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/req"
	"donorlink/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input for generating an upload URL.
type PresignUploadInput struct {
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// requireStorage answers 503 when uploads are not configured.
func requireStorage(deps *AppDeps, w http.ResponseWriter, r *http.Request) bool {
	if deps.Storage == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageUnavailable))
		return false
	}
	return true
}

// HandlePresignUpload returns a time-limited URL the client can PUT a photo to.
// The object key lives under the caller's folder for the requested kind.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireStorage(deps, w, r) {
			return
		}
		identity := jwt.GetPayloadFromContext(r)

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		kind, ok := storage.ParseKind(input.Kind)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := storage.ValidatePhotoSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidatePhotoType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := storage.ObjectKey(kind, identity.ID, input.FileName)

		url, err := deps.Storage.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, storage.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "presign_upload: storage failed", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondOK(w, r, map[string]any{
			"uploadUrl": url,
			"key":       key,
			"url":       deps.AssetURL(key),
		})
	}
}

// HandleUpload accepts a multipart photo upload and streams it to storage.
// Form fields: "kind" and "file".
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireStorage(deps, w, r) {
			return
		}
		identity := jwt.GetPayloadFromContext(r)

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		defer r.MultipartForm.RemoveAll()

		kind, ok := storage.ParseKind(r.FormValue("kind"))
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingFields, "file"))
			return
		}
		defer file.Close()

		if customErr := storage.ValidatePhotoSize(header.Size); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if customErr := storage.ValidatePhotoType(header.Filename, mimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := storage.ObjectKey(kind, identity.ID, header.Filename)

		if err := deps.Storage.Upload(r.Context(), key, mimeType, file); err != nil {
			logx.Error(err, "upload: storage failed", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondCreated(w, r, map[string]any{
			"key": key,
			"url": deps.AssetURL(key),
		})
	}
}
