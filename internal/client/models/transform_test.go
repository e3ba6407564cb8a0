package models

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransform(t *testing.T) {
	tr := DefaultTransform()
	require.Equal(t, Transform{
		Saturation: 1, Warmth: 0, Sharpen: 0, Blur: 1,
		Brightness: 1, Contrast: 1, Grey: 0.5, Vignette: 2,
	}, tr)
}

func TestTransformParams_Order(t *testing.T) {
	want := []string{"saturation", "warmth", "sharpen", "blur", "brightness", "contrast", "grey", "vignette"}
	require.Equal(t, want, TransformParamNames())

	params := DefaultTransform().Params()
	require.Len(t, params, len(want))
	for i, p := range params {
		assert.Equal(t, want[i], p.Name)
	}
	assert.Equal(t, 0.5, params[6].Value)
}

func TestTransform_SetGet(t *testing.T) {
	tr := DefaultTransform()
	require.NoError(t, tr.Set("contrast", 1.4))

	v, ok := tr.Get("contrast")
	require.True(t, ok)
	assert.Equal(t, 1.4, v)

	_, ok = tr.Get("hue")
	assert.False(t, ok)
	assert.ErrorIs(t, tr.Set("hue", 1), ErrUnknownParam)
}

func TestTransform_Attributes(t *testing.T) {
	tr := DefaultTransform()
	tr.Warmth = -0.05

	attrs := tr.Attributes()
	assert.Equal(t, "1", attrs["saturation"])
	assert.Equal(t, "-0.05", attrs["warmth"])
	assert.Equal(t, "0", attrs["sharpen"])
	assert.Equal(t, "0.5", attrs["grey"])
	assert.Len(t, attrs, 8)
}

func TestTransformFromAttributes(t *testing.T) {
	fallback := DefaultTransform()
	fallback.Brightness = 1.3

	got := TransformFromAttributes(map[string]string{
		"saturation": "0",
		"warmth":     "0.02",
		"contrast":   "not-a-number",
		"grey":       " 0.75 ",
		"vignette":   "NaN",
		"unknown":    "5",
	}, fallback)

	assert.Equal(t, 0.0, got.Saturation, "explicit zero is kept")
	assert.Equal(t, 0.02, got.Warmth)
	assert.Equal(t, 1.0, got.Contrast, "invalid value falls back")
	assert.Equal(t, 0.75, got.Grey)
	assert.Equal(t, 2.0, got.Vignette)
	assert.Equal(t, 1.3, got.Brightness, "missing value falls back")
}

func TestTransform_AttributesRoundTrip(t *testing.T) {
	tr := Transform{Saturation: 0.3, Warmth: 0.07, Sharpen: -1.5, Blur: 2, Brightness: 0, Contrast: 1.9, Grey: 0.1, Vignette: 0.4}
	assert.Equal(t, tr, TransformFromAttributes(tr.Attributes(), DefaultTransform()))
}

func TestApplyAssignments(t *testing.T) {
	tr := DefaultTransform()
	require.NoError(t, tr.ApplyAssignments([]string{"saturation=0.2", " blur = 3"}))
	assert.Equal(t, 0.2, tr.Saturation)
	assert.Equal(t, 3.0, tr.Blur)

	assert.ErrorIs(t, tr.ApplyAssignments([]string{"saturation"}), ErrIncorrectAssign)
	assert.ErrorIs(t, tr.ApplyAssignments([]string{"saturation=x"}), ErrIncorrectAssign)
	assert.ErrorIs(t, tr.ApplyAssignments([]string{"hue=1"}), ErrUnknownParam)
}

func TestRandomize_StaysInRange(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		var tr Transform
		tr.Randomize(r)
		assert.GreaterOrEqual(t, tr.Warmth, -0.08)
		assert.LessOrEqual(t, tr.Warmth, 0.08)
		assert.GreaterOrEqual(t, tr.Blur, 0.01)
		assert.LessOrEqual(t, tr.Grey, 1.0)
	}
}
