package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairer-discovery/models"
)

const feedPage = `<html><body><div role="feed">
<div role="article" aria-label="Fix Mobile Lyon">
  <div class="fontHeadlineSmall">Fix Mobile Lyon</div>
  <span class="MW4etd">4,7</span><span class="UY7F9">(1 234)</span>
  <div class="W4Efsd">
    <div class="W4Efsd"><span>Réparation de téléphones mobiles</span> · <span>12 Rue de la République</span></div>
    <div class="W4Efsd"><span>Ouvert</span> · <span>Ferme à 19:00</span> · <span class="UsdlK">04 78 00 00 00</span></div>
  </div>
  <a data-value="Site Web" href="https://fixmobile.example">Site Web</a>
</div>
<div role="article" aria-label=""><div class="fontHeadlineSmall"></div></div>
<div role="article"><div class="fontHeadlineSmall">Atelier Vélo</div></div>
</div></body></html>`

func TestParse(t *testing.T) {
	listings, err := New("https://maps.example").Parse(feedPage)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Fix Mobile Lyon", first.Name)
	assert.Equal(t, 4.7, first.Rating)
	assert.Equal(t, 1234, first.ReviewCount)
	assert.Equal(t, "Réparation de téléphones mobiles", first.Category)
	assert.Equal(t, "12 Rue de la République", first.Address)
	assert.Equal(t, "04 78 00 00 00", first.Phone)
	assert.Equal(t, "Ouvert · Ferme à 19:00", first.OpeningHours)
	assert.Equal(t, "https://fixmobile.example", first.Website)
	assert.Equal(t, models.SourceMap, first.Source)

	second := listings[1]
	assert.Equal(t, "Atelier Vélo", second.Name)
	assert.Empty(t, second.Address)
	assert.Empty(t, second.OpeningHours)
}

func TestPageURL(t *testing.T) {
	e := New("https://maps.example/")
	assert.Equal(t, "https://maps.example/search/r%C3%A9paration%20Paris?hl=fr", e.PageURL("réparation", "Paris", 1))
	assert.Empty(t, e.PageURL("réparation", "Paris", 2))
}

func TestSplitFacts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Réparation · 3 rue Neuve", []string{"Réparation", "3 rue Neuve"}},
		{"  ·  ", nil},
		{"Seul", []string{"Seul"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitFacts(tt.in))
	}
}
