package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello world", Normalize("  Hello   World  "))
	assert.Equal("grátis agora", Normalize("GRÁTIS\tagora"))
	assert.Equal("", Normalize("   "))

	// composed and decomposed spellings normalize to the same bytes
	assert.Equal(Normalize("grátis"), Normalize("grátis"))
}

func TestFold(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("gratis agora", Fold("GRÁTIS\tagora"))
	assert.Equal("promocao", Fold("Promoção"))
}

func TestMatchKeywords(t *testing.T) {
	assert := assert.New(t)

	keywords := []string{"grátis", "clique aqui", "garantido"}
	found := MatchKeywords("Produto GRÁTIS, clique   aqui, retorno garantido!", keywords)
	assert.Equal([]string{"grátis", "clique aqui", "garantido"}, found)

	assert.Empty(MatchKeywords("bom dia, tudo bem?", keywords))
	assert.Empty(MatchKeywords("oferta garantida", keywords))

	// stripping the accent does not dodge an accented keyword
	assert.Equal([]string{"grátis"}, MatchKeywords("produto gratis hoje", keywords))
	// nor does sending the decomposed spelling
	assert.Equal([]string{"grátis"}, MatchKeywords("produto grátis hoje", keywords))
}

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"promocao", "urgente", "so", "hoje"}, TokenizeText("Promoção URGENTE!!! só-hoje"))
	assert.Empty(TokenizeText("!!!"))
}

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("cliqueaqui", Slugify("Clique-Aqui!"))
	assert.Equal("abc123", Slugify(" a b.c 1_2/3 "))
}
