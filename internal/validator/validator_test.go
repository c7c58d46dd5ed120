package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	JudgerID string `json:"judger_id" validate:"required,notblank"`
	ID       string `json:"id"        validate:"required,uuid"`
}

func TestCustomValidator(t *testing.T) {
	v := Create()

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(sample{JudgerID: "judger-1", ID: "0191c2a3-6f7e-7c4e-9a51-0c6e2c1f9b1a"}))
	})

	t.Run("BlankUsesJSONName", func(t *testing.T) {
		err := v.Validate(sample{JudgerID: "   ", ID: "0191c2a3-6f7e-7c4e-9a51-0c6e2c1f9b1a"})
		require.Error(t, err)

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "judger_id", verrs[0].Field())
		assert.Equal(t, "notblank", verrs[0].Tag())
	})

	t.Run("Var", func(t *testing.T) {
		assert.Error(t, v.Var("not-a-uuid", "uuid"))
		assert.NoError(t, v.Var("0191c2a3-6f7e-7c4e-9a51-0c6e2c1f9b1a", "uuid"))
	})
}
