package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_DropsStopwordsAndAccents(t *testing.T) {
	got := Tokenize("La Blusa de Seda Azul")
	assert.ElementsMatch(t, []string{"blusa", "seda", "azul"}, got)
	assert.Equal(t, got, Tokenize("La Blusa de Seda Azul"), "stable across calls")
	assert.ElementsMatch(t, got, Tokenize("azul, SEDA; blusa  blusa"))

	assert.ElementsMatch(t, []string{"camison", "algodon"}, Tokenize("Camisón de algodón"))
	assert.Empty(t, Tokenize("  de la  "))
}

func TestCompute_FallsBackToDocID(t *testing.T) {
	f := Compute("HA4A001__AM-M", map[string]any{"Descripcion": "Vestido Largo"})
	assert.Equal(t, "ha4a001/am-m", f.CodigoLower)
	assert.Equal(t, "vestido largo", f.DescripcionLower)
	assert.ElementsMatch(t, []string{"vestido", "largo"}, f.Tokens)
}

func TestNeedsUpdate(t *testing.T) {
	rec := map[string]any{"codigo": "HA4A001/AM-M", "descripcion": "Blusa roja"}
	assert.True(t, NeedsUpdate("HA4A001__AM-M", rec), "no index yet")

	for k, v := range Compute("HA4A001__AM-M", rec).Map(time.Now()) {
		rec[k] = v
	}
	assert.False(t, NeedsUpdate("HA4A001__AM-M", rec))

	rec["descripcion"] = "Blusa verde"
	assert.True(t, NeedsUpdate("HA4A001__AM-M", rec), "description changed")

	fresh := map[string]any{"codigo": "HA4A001/AM-M", "descripcion": "Blusa roja"}
	for k, v := range Compute("HA4A001__AM-M", fresh).Map(time.Now()) {
		fresh[k] = v
	}
	fresh[FieldVersion] = Version - 1
	assert.True(t, NeedsUpdate("HA4A001__AM-M", fresh), "old version")
}

func TestContainsAll_DecodedArrays(t *testing.T) {
	rec := map[string]any{FieldTokens: []any{"blusa", "seda", "azul"}}
	assert.True(t, ContainsAll(rec, []string{"seda", "blusa"}))
	assert.False(t, ContainsAll(rec, []string{"seda", "roja"}))
	assert.True(t, ContainsAll(rec, nil))
}
