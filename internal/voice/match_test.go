package voice

import (
	"testing"

	"github.com/sufrahq/sufra-voice/domain/entities"
)

func matchFixtures() []*entities.Restaurant {
	return []*entities.Restaurant{
		{ID: "albaik", NameAr: "البيك", NameEn: "Al Baik"},
		{ID: "alromansiah", NameAr: "الرومانسية", NameEn: "Al Romansiah"},
		{ID: "mcdonalds", NameAr: "ماكدونالدز", NameEn: "McDonald's"},
	}
}

func TestMatchRestaurantVariants(t *testing.T) {
	restaurants := matchFixtures()

	cases := []struct {
		query string
		want  string
	}{
		{"البيك", "albaik"},
		{"بيك", "albaik"},
		{"baik", "albaik"},
		{"AL BAIK", "albaik"},
		{"  البيك  ", "albaik"},
		{"الرومانسية", "alromansiah"},
		{"رومانسي", "alromansiah"},
		{"romansiah", "alromansiah"},
		{"ماكدونالدز", "mcdonalds"},
		{"ماك", "mcdonalds"},
		{"mcdonald", "mcdonalds"},
		{"mcdonalds", "mcdonalds"},
	}

	for _, tc := range cases {
		got := MatchRestaurant(tc.query, restaurants)
		if got == nil {
			t.Errorf("MatchRestaurant(%q) = nil, want %s", tc.query, tc.want)
			continue
		}
		if got.ID != tc.want {
			t.Errorf("MatchRestaurant(%q) = %s, want %s", tc.query, got.ID, tc.want)
		}
	}
}

func TestMatchRestaurantMiss(t *testing.T) {
	restaurants := matchFixtures()

	for _, query := range []string{"", "  ", "كودو", "herfy", "pizza hut"} {
		if got := MatchRestaurant(query, restaurants); got != nil {
			t.Errorf("MatchRestaurant(%q) = %s, want nil", query, got.ID)
		}
	}
}

func TestMatchRestaurantIdempotent(t *testing.T) {
	restaurants := matchFixtures()

	first := MatchRestaurant("بيك", restaurants)
	second := MatchRestaurant("بيك", restaurants)
	if first != second {
		t.Error("repeated match resolved different restaurants")
	}
}

func TestKnownNamesAr(t *testing.T) {
	got := KnownNamesAr(matchFixtures())
	want := "البيك، الرومانسية، ماكدونالدز"
	if got != want {
		t.Errorf("KnownNamesAr = %q, want %q", got, want)
	}
}
