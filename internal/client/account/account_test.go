package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, User{ID: "u1", Username: "donor1"}.Validate())
	assert.Error(t, User{Username: "donor1"}.Validate())
	assert.Error(t, User{ID: "u1"}.Validate())
	assert.Error(t, User{ID: "u1", Username: "donor1", Points: -1}.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	img := "https://cdn.test/a.png"
	u := &User{ID: "u1", Username: "donor1", ProfileImage: &img}
	cp := u.Clone()
	*cp.ProfileImage = "changed"
	assert.Equal(t, "https://cdn.test/a.png", *u.ProfileImage)
	assert.Nil(t, (*User)(nil).Clone())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{Username: "ada1", Firstname: "Ada", Lastname: "Lovelace"}).DisplayName())
	assert.Equal(t, "ada1", (&User{Username: "ada1"}).DisplayName())
}
