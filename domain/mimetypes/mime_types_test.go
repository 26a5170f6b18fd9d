package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Normalize_Strips_Parameters(t *testing.T) {
	req := require.New(t)

	m, ok := Normalize("image/png; charset=binary")
	req.True(ok)
	req.Equal(ImagePNG, m)
}

func Test_Normalize_Garbage(t *testing.T) {
	req := require.New(t)

	m, ok := Normalize(";;;")
	req.False(ok)
	req.Equal(Unknown, m)
}

func Test_Allowed_Family_Wildcard(t *testing.T) {
	req := require.New(t)
	allowList := []string{"image/*", "application/pdf"}

	req.True(Allowed(ImageJPEG, allowList))
	req.True(Allowed(ImageWebP, allowList))
	req.True(Allowed(ApplicationPDF, allowList))
	req.False(Allowed("application/zip", allowList))
	req.False(Allowed("video/mp4", allowList))
}

func Test_IsImage(t *testing.T) {
	req := require.New(t)

	req.True(IsImage(ImageGIF))
	req.False(IsImage(ApplicationPDF))
}
