package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResourceCode(t *testing.T) {
	code := GenerateResourceCode("王伟施工队")
	assert.True(t, strings.HasPrefix(code, "WWSGD-"), code)
	assert.Len(t, code, len("WWSGD-000"))

	assert.True(t, strings.HasPrefix(GenerateResourceCode(""), "CREW-"))
}

func TestGenerateRandomWorkTeamShiftIsValid(t *testing.T) {
	for i := 0; i < 200; i++ {
		shift := GenerateRandomWorkTeamShift("W1", GenerateRandomCrewName())
		require.NoError(t, ValidateWorkTeamShift(shift), "%+v", shift.Shifts)
		assert.NotEmpty(t, shift.WorkingDays)
	}
}

func TestGenerateRandomCalendarConfigIsValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.NoError(t, ValidateCalendarConfig(GenerateRandomCalendarConfig("CN", "default")))
	}
}
