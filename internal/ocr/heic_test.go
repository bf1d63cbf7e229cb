package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

func TestHEICConverterPassesThroughOtherTypes(t *testing.T) {
	r := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		t.Fatal("runner should not be called")
		return nil, nil, nil
	}}
	doc := entity.RawDocument{Name: "a.png", MediaType: constants.MediaTypePNG, Data: []byte("png")}
	out, warns, err := NewHEICConverter("magick", "", r, nil).Convert(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, doc, out)
}

func TestHEICConverterWithCache(t *testing.T) {
	cache := t.TempDir()
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		out := args[len(args)-1]
		return nil, nil, os.WriteFile(out, []byte("converted"), 0o600)
	}}
	conv := NewHEICConverter("magick", cache, r, nil)
	doc := entity.RawDocument{Name: "photo.heic", MediaType: constants.MediaTypeHEIC, Data: []byte("heic bytes")}

	out, warns, err := conv.Convert(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, constants.MediaTypePNG, out.MediaType)
	assert.Equal(t, "photo.heic", out.Name)
	assert.Equal(t, []byte("converted"), out.Data)
	assert.Len(t, warns, 1)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "magick", r.calls[0].name)

	// second call is served from the cache
	out, _, err = conv.Convert(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []byte("converted"), out.Data)
	assert.Len(t, r.calls, 1)
}

func TestConfigNewHEICConverter(t *testing.T) {
	assert.Nil(t, Config{}.NewHEICConverter(nil, nil))

	cache := t.TempDir()
	r := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return nil, nil, os.WriteFile(args[len(args)-1], []byte("converted"), 0o600)
	}}
	conv := Config{HeicConverter: "heif-convert", ArtifactCacheDir: cache}.NewHEICConverter(r, nil)
	require.NotNil(t, conv)
	assert.Equal(t, cache, conv.CacheDir())

	doc := entity.RawDocument{Name: "scan.heic", MediaType: constants.MediaTypeHEIC, Data: []byte("heic")}
	_, _, err := conv.Convert(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "heif-convert", r.calls[0].name)
	assert.FileExists(t, filepath.Join(cache, doc.ContentHash()+".png"))
}

func TestHEICConverterErrors(t *testing.T) {
	doc := entity.RawDocument{Name: "p.heif", MediaType: constants.MediaTypeHEIF, Data: []byte("x")}

	_, _, err := NewHEICConverter("", "", &fakeRunner{}, nil).Convert(context.Background(), doc)
	assert.True(t, errors.Is(err, common.ErrDecode))

	failing := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("no delegate"), errors.New("exit 1")
	}}
	_, warns, err := NewHEICConverter("sips", "", failing, nil).Convert(context.Background(), doc)
	assert.True(t, errors.Is(err, common.ErrDecode))
	assert.Equal(t, []string{"no delegate"}, warns)
	assert.Equal(t, []string{"-s", "format", "png"}, failing.calls[0].args[:3])
}
