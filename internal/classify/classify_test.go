package classify

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected Category
	}{
		{"KEY_A", CategoryKey},
		{"KEY_LEFTSHIFT", CategoryKey},
		{"KEY_CODE_999", CategoryKey},
		{"CLICK_LEFT", CategoryClick},
		{"CLICK_OTHER", CategoryClick},
		{"WHEEL_VERTICAL", CategoryWheel},
		{"WHEEL_HORIZONTAL", CategoryWheel},
		{"", CategoryOther},
		{"KEY", CategoryOther},
		{"key_a", CategoryOther},
		{"TOUCH_TAP", CategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.name), "Classify(%q)", tt.name)
	}
}

func TestClassify_PrefixProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("category is determined solely by the prefix", prop.ForAll(
		func(suffix string) bool {
			return Classify("KEY_"+suffix) == CategoryKey &&
				Classify("CLICK_"+suffix) == CategoryClick &&
				Classify("WHEEL_"+suffix) == CategoryWheel
		},
		gen.AlphaString(),
	))

	properties.Property("names without a known prefix are OTHER", prop.ForAll(
		func(name string) bool {
			if strings.HasPrefix(name, "KEY_") ||
				strings.HasPrefix(name, "CLICK_") ||
				strings.HasPrefix(name, "WHEEL_") {
				return true
			}
			return Classify(name) == CategoryOther
		},
		gen.AnyString(),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(name string) bool {
			return Classify(name) == Classify(name)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestWheelNotches(t *testing.T) {
	tests := []struct {
		delta    float64
		expected uint64
	}{
		{0, 0},
		{15.0, 1},
		{-15.0, 1},
		{30.0, 2},
		{-45.0, 3},
		{7.4, 0},
		{7.5, 1},
		{22.6, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, WheelNotches(tt.delta), "WheelNotches(%v)", tt.delta)
	}
}

func TestButtonName(t *testing.T) {
	assert.Equal(t, "CLICK_LEFT", ButtonName(0x110))
	assert.Equal(t, "CLICK_RIGHT", ButtonName(0x111))
	assert.Equal(t, "CLICK_MIDDLE", ButtonName(0x112))
	assert.Equal(t, "CLICK_OTHER", ButtonName(0x113))
	assert.Equal(t, "CLICK_OTHER", ButtonName(0))
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "KEY_A", KeyName(30))
	assert.Equal(t, "KEY_SPACE", KeyName(57))
	assert.Equal(t, "KEY_F12", KeyName(88))

	// Unknown codes get an opaque name that still classifies as KEY.
	name := KeyName(999)
	assert.Equal(t, "KEY_CODE_999", name)
	assert.Equal(t, CategoryKey, Classify(name))
}
