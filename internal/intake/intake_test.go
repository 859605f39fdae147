package intake

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/domain"
)

var (
	pngHeader  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	webpHeader = append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)
)

// padded returns header followed by zeros up to size bytes.
func padded(header []byte, size int) []byte {
	b := make([]byte, size)
	copy(b, header)
	return b
}

func TestCheckImage(t *testing.T) {
	accepted := []string{"image/png", "image/jpeg", "image/webp", "IMAGE/PNG", "image/jpeg; charset=binary"}
	sizes := []int{1, 512, 1024 * 1024, MaxImageBytes}

	for _, mt := range accepted {
		for _, size := range sizes {
			assert.NoError(t, CheckImage(mt, size), "%s at %d bytes", mt, size)
		}
	}

	rejectedTypes := []string{"image/gif", "image/bmp", "application/pdf", "text/plain", ""}
	for _, mt := range rejectedTypes {
		err := CheckImage(mt, 512)
		require.Error(t, err, mt)
		assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
	}

	for _, mt := range accepted {
		err := CheckImage(mt, MaxImageBytes+1)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
	}
}

func TestCollectImage(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantErr  bool
	}{
		{name: "PNG", data: padded(pngHeader, 64), wantMIME: "image/png"},
		{name: "JPEG", data: padded(jpegHeader, 64), wantMIME: "image/jpeg"},
		{name: "WebP", data: padded(webpHeader, 64), wantMIME: "image/webp"},
		{name: "JPEG at limit", data: padded(jpegHeader, MaxImageBytes), wantMIME: "image/jpeg"},
		{name: "JPEG over limit", data: padded(jpegHeader, MaxImageBytes+1), wantErr: true},
		{name: "GIF", data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"), wantErr: true},
		{name: "PDF disguised as image", data: []byte("%PDF-1.4 malicious content"), wantErr: true},
		{name: "RIFF but not WebP", data: append([]byte("RIFF\x00\x00\x00\x00WAVEfmt "), make([]byte, 16)...), wantErr: true},
		{name: "empty", data: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := CollectImage(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, art)
				assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, art.MIMEType)
			assert.Len(t, art.Data, len(tt.data))
		})
	}
}

func TestReadImage(t *testing.T) {
	data, err := ReadImage(bytes.NewReader(padded(pngHeader, 2048)))
	require.NoError(t, err)
	assert.Len(t, data, 2048)

	_, err = ReadImage(bytes.NewReader(make([]byte, MaxImageBytes+10)))
	require.Error(t, err)
	assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))

	_, err = ReadImage(iotest.ErrReader(errors.New("disk gone")))
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, "The image could not be read. Please try another file.", apperr.Message(err))
	assert.ErrorContains(t, err, "disk gone")
}

func TestCollectText(t *testing.T) {
	for _, s := range []string{"a", " cough ", "fever\n", strings.Repeat("x", 5000), "頭痛"} {
		art, err := CollectText(s)
		require.NoError(t, err, "%q", s)
		assert.Equal(t, s, art.Symptoms)
	}

	for _, s := range []string{"", " ", "\n\t  \r\n"} {
		art, err := CollectText(s)
		require.Error(t, err, "%q", s)
		assert.Nil(t, art)
		assert.Equal(t, apperr.ReasonEmptyInput, apperr.ReasonOf(err))
	}
}

func TestCollect(t *testing.T) {
	art, err := Collect(TextInput("headache"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindSymptoms, art.Kind())

	art, err = Collect(ImageInput(padded(jpegHeader, 32)))
	require.NoError(t, err)
	assert.Equal(t, domain.KindXRay, art.Kind())

	_, err = Collect(Input{Kind: "audio"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
