package validation

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("Admin@Example.com"))
	assert.False(t, ValidateEmail("admin@"))
	assert.False(t, ValidateEmail("no-at-sign"))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Str0ng!pass"))
	assert.False(t, ValidatePassword("short1!"))
	assert.False(t, ValidatePassword("alllowercase1!"))
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "jpg", FileExtension("Holiday.JPG"))
	assert.Equal(t, "mov", FileExtension("clip.final.mov"))
	assert.Equal(t, "", FileExtension("README"))
}

func TestResolveContentType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	assert.Equal(t, "image/png", ResolveContentType("", buf.Bytes()))
	assert.Equal(t, "image/png", ResolveContentType("application/octet-stream", buf.Bytes()))
	assert.Equal(t, "video/quicktime", ResolveContentType("video/quicktime", []byte("whatever")))
	assert.Equal(t, "image/jpeg", ResolveContentType("image/jpeg; charset=binary", nil))
}

func TestKinds(t *testing.T) {
	assert.True(t, IsImage("image/webp"))
	assert.True(t, IsVideo("video/mp4"))
	assert.False(t, IsVideo("image/png"))
}
