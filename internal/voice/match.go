package voice

import (
	"strings"

	"github.com/sufrahq/sufra-voice/domain/entities"
)

// aliasSubstrings maps common shorthand the model produces to a substring
// of the canonical restaurant name. Matching stays tolerant of the
// definite article and of transliteration.
var aliasSubstrings = []struct {
	input  string
	nameAr string
	nameEn string
}{
	{"بيك", "البيك", ""},
	{"baik", "", "baik"},
	{"رومانسي", "الرومانسية", ""},
	{"romansiah", "", "romansiah"},
	{"ماكدونالدز", "ماكدونالدز", ""},
	{"ماك", "ماكدونالدز", ""},
	{"mcdonald", "", "mcdonald"},
}

// MatchRestaurant resolves a spoken restaurant name against the known
// restaurants. The comparison is case-insensitive and tolerant of
// substrings in both directions, over the Arabic name, the English name,
// and the id, plus the alias table. Returns nil when nothing matches.
func MatchRestaurant(name string, restaurants []*entities.Restaurant) *entities.Restaurant {
	input := strings.ToLower(strings.TrimSpace(name))
	if input == "" {
		return nil
	}

	for _, r := range restaurants {
		nameAr := strings.ToLower(r.NameAr)
		nameEn := strings.ToLower(r.NameEn)
		id := strings.ToLower(r.ID)

		if containsEither(nameAr, input) ||
			containsEither(nameEn, input) ||
			strings.Contains(id, input) {
			return r
		}

		for _, alias := range aliasSubstrings {
			if !strings.Contains(input, alias.input) {
				continue
			}
			if alias.nameAr != "" && strings.Contains(nameAr, strings.ToLower(alias.nameAr)) {
				return r
			}
			if alias.nameEn != "" && strings.Contains(nameEn, alias.nameEn) {
				return r
			}
		}
	}
	return nil
}

// containsEither reports whether either string contains the other.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// KnownNamesAr joins the Arabic names of all known restaurants, the hint
// returned when resolution fails.
func KnownNamesAr(restaurants []*entities.Restaurant) string {
	names := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		names = append(names, r.NameAr)
	}
	return strings.Join(names, "، ")
}
