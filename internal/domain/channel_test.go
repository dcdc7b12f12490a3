package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoiceTransition_Branches(t *testing.T) {
	a := &Channel{ID: "200"}
	b := &Channel{ID: "201"}

	join := VoiceTransition{Current: a}
	assert.True(t, join.Entered())
	assert.False(t, join.Left())

	leave := VoiceTransition{Previous: a}
	assert.False(t, leave.Entered())
	assert.True(t, leave.Left())

	move := VoiceTransition{Previous: a, Current: b}
	assert.True(t, move.Entered())
	assert.True(t, move.Left())

	mute := VoiceTransition{Previous: a, Current: &Channel{ID: "200"}}
	assert.False(t, mute.Entered())
	assert.False(t, mute.Left())
}

func TestValidSnowflake(t *testing.T) {
	assert.True(t, ValidSnowflake("100"))
	assert.True(t, ValidSnowflake("1183742190231719976"))
	assert.False(t, ValidSnowflake(""))
	assert.False(t, ValidSnowflake("abc"))
	assert.False(t, ValidSnowflake("-1"))
	assert.False(t, ValidSnowflake("123456789012345678901"))
}
