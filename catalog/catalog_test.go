package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/scoring-engine/catalog"
	"github.com/warp/scoring-engine/gamification"
)

func intp(v int) *int { return &v }

func TestRequirementCodec_RoundTrip(t *testing.T) {
	req := gamification.Requirement{
		PointsMinimum: intp(500),
		StreakMinimum: intp(7),
	}

	data, err := catalog.EncodeRequirement(req)
	require.NoError(t, err)

	decoded, err := catalog.DecodeRequirement(data)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDecodeRequirement_EmptyInput(t *testing.T) {
	req, err := catalog.DecodeRequirement(nil)
	require.NoError(t, err)
	assert.True(t, req.Empty())
}

func TestDecodeRequirement_AbsentKeysStayNil(t *testing.T) {
	req, err := catalog.DecodeRequirement([]byte(`{"level_min": 5}`))
	require.NoError(t, err)

	require.NotNil(t, req.LevelMinimum)
	assert.Equal(t, 5, *req.LevelMinimum)
	assert.Nil(t, req.PointsMinimum)
	assert.Nil(t, req.StreakMinimum)
	assert.Nil(t, req.ScoreMinimum)
}

func TestDecodeRequirement_Malformed(t *testing.T) {
	_, err := catalog.DecodeRequirement([]byte(`{broken`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		def  gamification.AchievementDefinition
		ok   bool
	}{
		{"valid", gamification.AchievementDefinition{ID: "a", Name: "A", PointsAwarded: 10}, true},
		{"missing id", gamification.AchievementDefinition{Name: "A"}, false},
		{"missing name", gamification.AchievementDefinition{ID: "a"}, false},
		{"negative award", gamification.AchievementDefinition{ID: "a", Name: "A", PointsAwarded: -1}, false},
		{"negative points min", gamification.AchievementDefinition{ID: "a", Name: "A",
			Requirement: gamification.Requirement{PointsMinimum: intp(-5)}}, false},
		{"score min out of range", gamification.AchievementDefinition{ID: "a", Name: "A",
			Requirement: gamification.Requirement{ScoreMinimum: intp(6)}}, false},
		{"score min valid", gamification.AchievementDefinition{ID: "a", Name: "A",
			Requirement: gamification.Requirement{ScoreMinimum: intp(5)}}, true},
	}
	for _, c := range cases {
		err := catalog.Validate(c.def)
		if c.ok {
			assert.NoError(t, err, c.name)
		} else {
			assert.Error(t, err, c.name)
		}
	}
}

func TestDefaultCatalog_AllEntriesValid(t *testing.T) {
	defs := catalog.DefaultCatalog()
	require.NotEmpty(t, defs)

	seen := make(map[gamification.AchievementID]bool)
	for _, def := range defs {
		assert.NoError(t, catalog.Validate(def), "definition %s", def.ID)
		assert.True(t, def.Active, "built-in definitions ship active")
		assert.False(t, seen[def.ID], "duplicate id %s", def.ID)
		seen[def.ID] = true
	}

	// The first-evaluation achievement is the only unconditional one.
	var unconditional []gamification.AchievementID
	for _, def := range defs {
		if def.Requirement.Empty() {
			unconditional = append(unconditional, def.ID)
		}
	}
	assert.Equal(t, []gamification.AchievementID{"first_evaluation"}, unconditional)
}
