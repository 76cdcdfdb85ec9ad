package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRecording_ClearsPendingAttachment(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.SetAttachment([]byte("img"), "jpg", "photo.jpg", "image"))
	_, staged := c.Preview()
	require.True(t, staged)

	require.NoError(t, c.StartRecording())

	_, staged = c.Preview()
	assert.False(t, staged, "file selection and recording are mutually exclusive")
	assert.True(t, c.Recording())
}

func TestStartRecording_RejectedWhileActive(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.StartRecording())
	assert.ErrorIs(t, c.StartRecording(), ErrRecorderBusy)
}

func TestStopRecording_ProducesAudioBlob(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.StartRecording())
	require.NoError(t, c.AppendAudio([]byte("chunk1")))
	require.NoError(t, c.AppendAudio([]byte("chunk2")))

	elapsed, err := c.StopRecording()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
	assert.False(t, c.Recording())

	media, staged := c.Preview()
	require.True(t, staged)
	assert.Equal(t, "audio", media.Type)
	assert.Equal(t, []byte("chunk1chunk2"), media.Data)
}

func TestStopRecording_WithoutStart(t *testing.T) {
	c := NewComposer()

	_, err := c.StopRecording()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestAppendAudio_WithoutRecording(t *testing.T) {
	c := NewComposer()

	assert.ErrorIs(t, c.AppendAudio([]byte("x")), ErrNotRecording)
}

func TestSetAttachment_DisplacesRecording(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.StartRecording())
	require.NoError(t, c.AppendAudio([]byte("audio")))

	require.NoError(t, c.SetAttachment([]byte("doc"), "pdf", "quote.pdf", "document"))

	assert.False(t, c.Recording())
	media, staged := c.Preview()
	require.True(t, staged)
	assert.Equal(t, "document", media.Type, "an explicit file wins over a recording")
}

func TestSetAttachment_SizeCeilings(t *testing.T) {
	c := NewComposer()

	tooBig := make([]byte, 5<<20+1)
	err := c.SetAttachment(tooBig, "jpg", "big.jpg", "image")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "big.jpg")

	_, staged := c.Preview()
	assert.False(t, staged, "a rejected attachment never occupies the slot")

	justFits := make([]byte, 5<<20)
	assert.NoError(t, c.SetAttachment(justFits, "jpg", "ok.jpg", "image"))
}

func TestSetAttachment_UnknownType(t *testing.T) {
	c := NewComposer()

	assert.Error(t, c.SetAttachment([]byte("x"), "bin", "x.bin", "sticker"))
}

func TestTakeMedia_TransfersOwnershipOnce(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.SetAttachment([]byte("img"), "jpg", "photo.jpg", "image"))

	media := c.TakeMedia()
	require.NotNil(t, media)
	assert.Equal(t, "photo.jpg", media.FileName)

	assert.Nil(t, c.TakeMedia(), "the slot is released on send")
	_, staged := c.Preview()
	assert.False(t, staged)
}

func TestDiscard_ReleasesEverything(t *testing.T) {
	c := NewComposer()

	require.NoError(t, c.StartRecording())
	require.NoError(t, c.AppendAudio([]byte("audio")))
	c.Discard()

	assert.False(t, c.Recording())
	assert.Nil(t, c.TakeMedia())
}

func TestRegistry_OneComposerPerSurface(t *testing.T) {
	r := NewRegistry()

	a := r.Get("conv:1")
	b := r.Get("conv:2")
	assert.NotSame(t, a, b)
	assert.Same(t, a, r.Get("conv:1"))

	require.NoError(t, a.SetAttachment([]byte("x"), "jpg", "x.jpg", "image"))
	r.Release("conv:1")
	_, staged := r.Get("conv:1").Preview()
	assert.False(t, staged, "teardown frees held media")
}
