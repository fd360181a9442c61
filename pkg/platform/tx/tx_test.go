package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextCarriesTx(t *testing.T) {
	ctx := context.Background()

	_, ok := From(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, WithTx(ctx, nil), "nil tx must not be stored")

	sqlTx := &sql.Tx{}
	got, ok := From(WithTx(ctx, sqlTx))
	assert.True(t, ok)
	assert.Same(t, sqlTx, got)
}

func TestRunJoinsExistingTx(t *testing.T) {
	ctx := WithTx(context.Background(), &sql.Tx{})
	called := false
	err := Run(ctx, nil, func(inner context.Context) error {
		called = true
		_, ok := From(inner)
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
