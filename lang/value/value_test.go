package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anissen/delta/lang/value"
)

func TestStringConversions(t *testing.T) {
	assert.Equal(t, "42", value.Integer(42).String())
	assert.Equal(t, "-7", value.Integer(-7).String())
	assert.Equal(t, "3.5", value.Float(3.5).String())
	assert.Equal(t, "3.0", value.Float(3).String())
	assert.Equal(t, "true", value.Boolean(true).String())
	assert.Equal(t, "false", value.Boolean(false).String())
	assert.Equal(t, "hi", value.String("hi").String())
	assert.Equal(t, ":red", value.SimpleTag{Name: "red"}.String())
	assert.Equal(t, ":some(5)", value.Tag{Name: "some", Payload: value.Integer(5)}.String())
	assert.Equal(t, "f", value.Function{Index: 0, Name: "f"}.String())
}

func TestEqualIsStructuralAndVariantAware(t *testing.T) {
	assert.True(t, value.Equal(value.Integer(1), value.Integer(1)))
	assert.False(t, value.Equal(value.Integer(1), value.Integer(2)))
	assert.False(t, value.Equal(value.Integer(1), value.Float(1)))

	simple := value.SimpleTag{Name: "ok"}
	tagged := value.Tag{Name: "ok", Payload: value.Integer(0)}
	assert.False(t, value.Equal(simple, tagged))
	assert.False(t, value.Equal(tagged, simple))

	assert.True(t, value.Equal(
		value.Tag{Name: "ok", Payload: value.Integer(5)},
		value.Tag{Name: "ok", Payload: value.Integer(5)},
	))
	assert.False(t, value.Equal(
		value.Tag{Name: "ok", Payload: value.Integer(5)},
		value.Tag{Name: "ok", Payload: value.Integer(6)},
	))
}
