package merge

import (
	"testing"

	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecord() *types.ContentCreatorInfo {
	return &types.ContentCreatorInfo{
		FirstName:    "Jane",
		LastName:     "Doe",
		FullName:     "Jane Doe",
		MainLanguage: "English",
		LifeEvents:   []types.LifeEvent{{Name: "Moved to Berlin", Description: "Relocated in 2015"}},
		Business:     &types.Business{Name: "Doe Studio", Description: "Video courses for designers", Genesis: "Started from a blog"},
		Values:       []types.Value{{Name: "Resilience", Origin: "Childhood", ImpactToday: "Keeps shipping"}},
		Challenges:   []types.Challenge{{Description: "Burnout in 2019", Learnings: "Boundaries"}},
		Achievements: []types.Achievement{{Description: "1M subscribers"}},
	}
}

func keys[T any](items []T, key func(T) string) map[string]bool {
	out := make(map[string]bool)
	for _, it := range items {
		out[key(it)] = true
	}
	return out
}

func valueKey(v types.Value) string { return IdentityKey(v.Name, "") }

func TestMerge_ScenarioA_ListDedup(t *testing.T) {
	a := &types.ContentCreatorInfo{
		Values: []types.Value{{Name: "Resilience", Origin: "from A"}},
	}
	b := &types.ContentCreatorInfo{
		Values: []types.Value{
			{Name: "Resilience", Origin: "from B"},
			{Name: "Curiosity", Origin: "from B"},
		},
	}

	merged := Merge(a, b)

	require.Len(t, merged.Values, 2)
	assert.Equal(t, "Resilience", merged.Values[0].Name)
	assert.Equal(t, "from A", merged.Values[0].Origin)
	assert.Equal(t, "Curiosity", merged.Values[1].Name)
}

func TestMerge_ScenarioB_EmptyIdentityItems(t *testing.T) {
	a := &types.ContentCreatorInfo{
		Achievements: []types.Achievement{{Description: ""}, {Description: ""}},
	}

	t.Run("blank items are dropped", func(t *testing.T) {
		merged := Merge(a, &types.ContentCreatorInfo{})
		require.Len(t, merged.Achievements, 1)
		assert.Equal(t, types.DefaultAchievement(), merged.Achievements[0])
	})

	withContent := &types.ContentCreatorInfo{
		Values: []types.Value{
			{Origin: "Grew up on a farm"},
			{Origin: "First job in retail"},
		},
	}

	t.Run("keep policy treats each as unique", func(t *testing.T) {
		merged := New(Options{EmptyKeys: KeepEmptyKeys}).Merge(withContent, nil)
		require.Len(t, merged.Values, 2)
		assert.Equal(t, "Grew up on a farm", merged.Values[0].Origin)
		assert.Equal(t, "First job in retail", merged.Values[1].Origin)
	})

	t.Run("collapse policy keeps only the first", func(t *testing.T) {
		merged := New(Options{EmptyKeys: CollapseEmptyKeys}).Merge(withContent, nil)
		require.Len(t, merged.Values, 1)
		assert.Equal(t, "Grew up on a farm", merged.Values[0].Origin)
	})
}

func TestMerge_ScenarioC_DefaultSubstitution(t *testing.T) {
	merged := Merge(
		&types.ContentCreatorInfo{LifeEvents: []types.LifeEvent{}},
		&types.ContentCreatorInfo{LifeEvents: []types.LifeEvent{}},
	)

	assert.Equal(t, []types.LifeEvent{{Name: "Not specified", Description: "No information available"}}, merged.LifeEvents)
}

func TestMerge_Totality(t *testing.T) {
	cases := map[string][2]*types.ContentCreatorInfo{
		"both nil":          {nil, nil},
		"both zero":         {{}, {}},
		"both placeholders": {types.NewDefaultCreatorInfo(), types.NewDefaultCreatorInfo()},
		"full and nil":      {fullRecord(), nil},
		"nil and full":      {nil, fullRecord()},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			merged := Merge(tc[0], tc[1])
			require.NotNil(t, merged)
			assert.NotEmpty(t, merged.FirstName)
			assert.NotEmpty(t, merged.LastName)
			assert.NotEmpty(t, merged.FullName)
			assert.NotEmpty(t, merged.MainLanguage)
			assert.NotEmpty(t, merged.LifeEvents)
			assert.NotNil(t, merged.Business)
			assert.NotEmpty(t, merged.Values)
			assert.NotEmpty(t, merged.Challenges)
			assert.NotEmpty(t, merged.Achievements)
		})
	}
}

func TestMerge_PlaceholderIsIdentity(t *testing.T) {
	a := fullRecord()

	assert.Equal(t, a, Merge(a, types.NewDefaultCreatorInfo()))
	assert.Equal(t, a, Merge(types.NewDefaultCreatorInfo(), a))
}

func TestMerge_CoverageIsOrderIndependent(t *testing.T) {
	a := &types.ContentCreatorInfo{Values: []types.Value{{Name: "Resilience"}, {Name: "Honesty"}}}
	b := &types.ContentCreatorInfo{Values: []types.Value{{Name: "curiosity"}, {Name: "resilience "}}}

	ab := Merge(a, b)
	ba := Merge(b, a)

	expected := map[string]bool{"resilience": true, "honesty": true, "curiosity": true}
	assert.Equal(t, expected, keys(ab.Values, valueKey))
	assert.Equal(t, expected, keys(ba.Values, valueKey))
	assert.Equal(t, "Resilience", ab.Values[0].Name)
	assert.Equal(t, "curiosity", ba.Values[0].Name)
}

func TestMerge_IdentityKeysIgnoreCaseAndSpacing(t *testing.T) {
	a := &types.ContentCreatorInfo{Values: []types.Value{{Name: "Resilience", Origin: "from A"}}}
	b := &types.ContentCreatorInfo{Values: []types.Value{{Name: "  resilience", Origin: "from B"}}}

	merged := Merge(a, b)
	require.Len(t, merged.Values, 1)
	assert.Equal(t, "Resilience", merged.Values[0].Name)
	assert.Equal(t, "from A", merged.Values[0].Origin)
}

func TestMerge_Associative(t *testing.T) {
	a := &types.ContentCreatorInfo{
		FirstName:  "Jane",
		LifeEvents: []types.LifeEvent{{Name: "Graduated"}},
		Business:   &types.Business{Name: "Studio", Description: "short"},
	}
	b := &types.ContentCreatorInfo{
		LastName:     "Doe",
		LifeEvents:   []types.LifeEvent{{Name: "Moved"}, {Name: "Graduated", Description: "dup"}},
		Business:     &types.Business{Name: "Studio", Description: "a much longer description"},
		Achievements: []types.Achievement{{Description: "Award"}},
	}
	c := &types.ContentCreatorInfo{
		FirstName:  "Janet",
		FullName:   "Dr. Jane Doe",
		LifeEvents: []types.LifeEvent{{Description: "Had a child"}},
		Challenges: []types.Challenge{{Description: "Debt"}},
	}

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))

	assert.Equal(t, left, right)
	assert.Equal(t, left, MergeAll(a, b, c))
	assert.Equal(t, "Jane", left.FirstName)
	assert.Equal(t, "Dr. Jane Doe", left.FullName)
	assert.Len(t, left.LifeEvents, 3)
}

func TestMerge_BusinessLongestWins(t *testing.T) {
	a := &types.ContentCreatorInfo{Business: &types.Business{Name: "A", Description: "twelve chars"}}
	b := &types.ContentCreatorInfo{Business: &types.Business{Name: "B", Description: "twelve chars"}}
	c := &types.ContentCreatorInfo{Business: &types.Business{Name: "C", Description: "a longer description"}}

	assert.Equal(t, "A", Merge(a, b).Business.Name, "ties go to the first record")
	assert.Equal(t, "C", Merge(a, c).Business.Name)
	assert.Equal(t, "C", Merge(c, a).Business.Name)
}

func TestMerge_BusinessComparesRawDescriptionLength(t *testing.T) {
	a := &types.ContentCreatorInfo{Business: &types.Business{Name: "A", Description: "abc   "}}
	b := &types.ContentCreatorInfo{Business: &types.Business{Name: "B", Description: "abcde"}}

	assert.Equal(t, "A", Merge(a, b).Business.Name)
	assert.Equal(t, "A", Merge(b, a).Business.Name)
}

func TestMerge_BusinessEmptyLosesOutright(t *testing.T) {
	shop := &types.ContentCreatorInfo{Business: &types.Business{Name: "Shop", Description: "Tees"}}
	placeholder := &types.ContentCreatorInfo{Business: types.DefaultBusiness()}

	assert.Equal(t, "Shop", Merge(placeholder, shop).Business.Name)
	assert.Equal(t, "Shop", Merge(shop, &types.ContentCreatorInfo{}).Business.Name)
	assert.Equal(t, types.DefaultBusiness(), Merge(nil, placeholder).Business)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	a := fullRecord()
	merged := Merge(a, nil)

	merged.Values[0].Name = "changed"
	merged.Business.Name = "changed"

	assert.Equal(t, "Resilience", a.Values[0].Name)
	assert.Equal(t, "Doe Studio", a.Business.Name)
}

func TestMerge_NamesFallBackToUnknown(t *testing.T) {
	merged := Merge(&types.ContentCreatorInfo{LastName: "  "}, &types.ContentCreatorInfo{FirstName: "Unknown"})

	assert.Equal(t, "Unknown", merged.FirstName)
	assert.Equal(t, "Unknown", merged.LastName)
	assert.Equal(t, "Unknown", merged.FullName)
}

func TestMerge_FirstNonEmptyName(t *testing.T) {
	merged := Merge(&types.ContentCreatorInfo{LastName: "Doe"}, &types.ContentCreatorInfo{FirstName: "Jane", LastName: "Smith"})

	assert.Equal(t, "Jane", merged.FirstName)
	assert.Equal(t, "Doe", merged.LastName)
	assert.Equal(t, "Jane Doe", merged.FullName)
}

func TestMergeAll_NoRecords(t *testing.T) {
	assert.Equal(t, types.NewDefaultCreatorInfo(), MergeAll())
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "moved to berlin", IdentityKey("  Moved  to Berlin", "ignored"))
	assert.Equal(t, "a description", IdentityKey("", "A description"))
	assert.Equal(t, "a description", IdentityKey("Not specified", "A description"))
	assert.Equal(t, "", IdentityKey("", ""))
}
