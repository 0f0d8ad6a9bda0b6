package swap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestMissingFields(t *testing.T) {
	t.Run("empty intent misses everything in order", func(t *testing.T) {
		missing := Intent{}.MissingFields()
		assert.Equal(t, []string{"sell token", "buy token", "sell amount", "chain"}, missing)
		assert.Equal(t, "sell token and buy token and sell amount and chain", strings.Join(missing, " and "))
	})

	t.Run("partial intent names the gaps", func(t *testing.T) {
		intent := Intent{SellTokenSymbol: strPtr("USDC"), Chain: strPtr("arbitrum")}
		assert.Equal(t, []string{"buy token", "sell amount"}, intent.MissingFields())
		assert.False(t, intent.Complete())
	})

	t.Run("full intent is complete", func(t *testing.T) {
		intent := Intent{
			SellTokenSymbol: strPtr("USDC"),
			SellAmount:      floatPtr(1.5),
			BuyTokenSymbol:  strPtr("WETH"),
			Chain:           strPtr("arbitrum"),
		}
		assert.Empty(t, intent.MissingFields())
		assert.True(t, intent.Complete())
	})
}
