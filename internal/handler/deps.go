package handler

import (
	"strings"

	"donorlink/internal/app/donation"
	"donorlink/internal/app/storage"
	"donorlink/internal/app/user"
	"donorlink/internal/configs"
)

// AppDeps carries everything the handlers need.
type AppDeps struct {
	Config    *configs.AppConfig
	Users     user.Repository
	Donations *donation.Service

	// Storage is nil when uploads are not configured.
	Storage storage.StorageService
}

// AssetURL expands a stored object key into a URL the client can fetch.
func (d *AppDeps) AssetURL(key string) string {
	if d.Storage == nil {
		return key
	}
	return d.Storage.PublicURL(key)
}

// profileOf renders u for clients.
func (d *AppDeps) profileOf(u *user.User) user.Profile {
	return u.Profile(d.AssetURL)
}

// assetKey turns one of our public asset URLs back into its object key.
// Other references are returned unchanged.
func (d *AppDeps) assetKey(ref string) string {
	base := strings.TrimRight(d.Config.PublicAssetURL, "/")
	if base != "" && strings.HasPrefix(ref, base+"/") {
		return strings.TrimPrefix(ref, base+"/")
	}
	return ref
}
