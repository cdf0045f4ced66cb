// file: internal/normalize/normalize_test.go
// version: 1.1.0
// guid: dad0754f-58a1-48d1-833b-367c7c82896a

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"clean text untouched", "La Novia del Titán", "La Novia del Titán"},
		{"latin1 o acute", "IlusiÃ³n", "Ilusión"},
		{"latin1 n tilde", "Diferencia de tamaÃ±o", "Diferencia de tamaño"},
		{"inverted exclamation", "Â¡El Amor Es Una IlusiÃ³n!", "¡El Amor Es Una Ilusión!"},
		{"inverted question", "Â¿QuiÃ©n?", "¿Quién?"},
		{"stray glyphs removed", "Titulo⇴ αιε", "Titulo "},
		{"full width bar becomes hyphen", "23 ｜ Given", "23 - Given"},
		{"lone A circumflex dropped", "EdiciÂon", "Edicion"},
		{"control characters dropped", "Giv\x00en", "Given"},
		{"nfkc folds compatibility forms", "ｆｕｌｌ ｗｉｄｔｈ", "full width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.in))
		})
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	inputs := []string{
		"Â¡Hola!",
		"ÃÂ³",
		"IlusiÃ³n",
		"plain",
		strings.Repeat("Ã", 9) + "Ñ",
		"Ilusi" + strings.Repeat("Ã", 20) + "³n",
	}
	for _, in := range inputs {
		once := Repair(in)
		assert.Equal(t, once, Repair(once), "input %q", in)
		c := Normalize(in).Comparable
		assert.Equal(t, c, Normalize(c).Comparable, "comparable for %q", in)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in             string
		wantObserved   string
		wantComparable string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"¡El Amor Es Una Ilusión!", "¡El Amor Es Una Ilusión!", "el amor es una ilusion"},
		{"  La   Novia\tdel  Titán ", "La Novia del Titán", "la novia del titan"},
		{"Â¡El Amor Es Una IlusiÃ³n!", "¡El Amor Es Una Ilusión!", "el amor es una ilusion"},
		{"Re:Zero -- Kara", "Re:Zero -- Kara", "re zero kara"},
		{"ＧＩＶＥＮ", "GIVEN", "given"},
		{"!!!", "!!!", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		assert.Equal(t, tt.wantObserved, got.Observed, "observed for %q", tt.in)
		assert.Equal(t, tt.wantComparable, got.Comparable, "comparable for %q", tt.in)
	}
}

func TestNormalizeDiacriticInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("Ilusión").Comparable, Normalize("Ilusion").Comparable)
	assert.Equal(t, Normalize("La Novia Del Titan").Comparable, Normalize("La novia del titán").Comparable)
}

func TestTitleIsEmpty(t *testing.T) {
	assert.True(t, Normalize("").IsEmpty())
	assert.True(t, Normalize("--").IsEmpty())
	assert.False(t, Normalize("Given").IsEmpty())
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"¡El Amor Es Una Ilusión!", "el-amor-es-una-ilusion"},
		{"La Novia del Titán", "la-novia-del-titan"},
		{"  --Given-- ", "given"},
		{"Superstar", "superstar"},
		{"side-b", "side-b"},
		{"", ""},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestGenerateCode(t *testing.T) {
	assert.Equal(t, "1D71", GenerateCode("Given"))
	assert.Equal(t, GenerateCode("Given"), GenerateCode("Given"))
	assert.Equal(t, "EC99", GenerateCode("¡El Amor Es Una Ilusión!"))
	assert.Equal(t, GenerateCode("¡El Amor Es Una Ilusión!"), GenerateCode("El Amor Es Una Ilusion"))
	assert.Equal(t, "8CAC", GenerateCode("La Novia del Titán"))
	assert.Equal(t, GenerateCode("La Novia Del Titan"), GenerateCode("La novia del titán"))
	assert.NotEqual(t, GenerateCode("Given"), GenerateCode("The Demon King"))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode("1D71"))
	assert.True(t, IsCode(GenerateCode("anything")))
	assert.False(t, IsCode("1d71"))
	assert.False(t, IsCode("1D7"))
	assert.False(t, IsCode("GHIJ"))
}
