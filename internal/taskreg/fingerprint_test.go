package taskreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_OrderInsensitive(t *testing.T) {
	t.Parallel()

	t.Run("permuted list values match", func(t *testing.T) {
		t.Parallel()

		a := Fingerprint(map[string]any{
			"survey_id":    "survey_1",
			"audience_ids": []any{1, 2, 3},
		})
		b := Fingerprint(map[string]any{
			"survey_id":    "survey_1",
			"audience_ids": []any{3, 2, 1},
		})

		assert.Equal(t, a, b, "permuting a list must not change the fingerprint")
	})

	t.Run("permuted string slices match", func(t *testing.T) {
		t.Parallel()

		a := Fingerprint(map[string]any{"ids": []string{"x", "y", "z"}})
		b := Fingerprint(map[string]any{"ids": []string{"z", "x", "y"}})

		assert.Equal(t, a, b)
	})

	t.Run("permuted int slices match", func(t *testing.T) {
		t.Parallel()

		a := Fingerprint(map[string]any{"ids": []int{10, 2, 33}})
		b := Fingerprint(map[string]any{"ids": []int{33, 10, 2}})

		assert.Equal(t, a, b)
	})

	t.Run("key order never matters", func(t *testing.T) {
		t.Parallel()

		// Go maps have no order, but nested maps must canonicalize too.
		a := Fingerprint(map[string]any{
			"outer": map[string]any{"x": 1, "y": 2},
		})
		b := Fingerprint(map[string]any{
			"outer": map[string]any{"y": 2, "x": 1},
		})

		assert.Equal(t, a, b)
	})
}

func TestFingerprint_SensitiveToValues(t *testing.T) {
	t.Parallel()

	base := Fingerprint(map[string]any{
		"survey_id":    "survey_1",
		"audience_ids": []any{1, 2, 3},
	})

	t.Run("changed scalar changes fingerprint", func(t *testing.T) {
		t.Parallel()

		changed := Fingerprint(map[string]any{
			"survey_id":    "survey_2",
			"audience_ids": []any{1, 2, 3},
		})

		assert.NotEqual(t, base, changed)
	})

	t.Run("changed list element changes fingerprint", func(t *testing.T) {
		t.Parallel()

		changed := Fingerprint(map[string]any{
			"survey_id":    "survey_1",
			"audience_ids": []any{1, 2, 4},
		})

		assert.NotEqual(t, base, changed)
	})

	t.Run("added key changes fingerprint", func(t *testing.T) {
		t.Parallel()

		changed := Fingerprint(map[string]any{
			"survey_id":    "survey_1",
			"audience_ids": []any{1, 2, 3},
			"task_type":    "survey_deployment",
		})

		assert.NotEqual(t, base, changed)
	})
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	params := map[string]any{
		"survey_id":    "survey_1",
		"audience_ids": []any{1, 2, 3},
		"task_type":    "survey_deployment",
	}

	first := Fingerprint(params)
	assert.Len(t, first, 16, "fingerprint should be a 16-character digest")

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(params))
	}
}
