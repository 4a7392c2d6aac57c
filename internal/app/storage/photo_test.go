package storage

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhoto(t *testing.T) {
	assert.Nil(t, ValidatePhotoType("coat.JPG", "image/jpeg"))
	assert.Nil(t, ValidatePhotoType("bear.webp", "image/webp"))
	assert.NotNil(t, ValidatePhotoType("bear.png", "image/jpeg"))
	assert.NotNil(t, ValidatePhotoType("anim.gif", "image/gif"))
	assert.NotNil(t, ValidatePhotoType("noext", "image/png"))

	assert.Nil(t, ValidatePhotoSize(1024))
	require.NotNil(t, ValidatePhotoSize(MaxPhotoSize+1))
	assert.Equal(t, http.StatusBadRequest, ValidatePhotoSize(0).Status)
}

func TestObjectKeyOwnership(t *testing.T) {
	key := ObjectKey(KindProfile, "u1", "Me.PNG")
	assert.True(t, strings.HasPrefix(key, "profiles/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, OwnsKey("u1", key))
	assert.False(t, OwnsKey("u2", key))
	assert.False(t, OwnsKey("u1", "profiles/u10/x.png"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.test/profiles/u1/a.png", PublicURL("https://cdn.test/", "profiles/u1/a.png"))
	assert.Equal(t, "https://elsewhere/a.png", PublicURL("https://cdn.test", "https://elsewhere/a.png"))
	assert.Equal(t, "profiles/u1/a.png", PublicURL("", "profiles/u1/a.png"))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("Donation")
	assert.True(t, ok)
	assert.Equal(t, KindDonation, k)
	_, ok = ParseKind("avatar")
	assert.False(t, ok)
}
