package source

// bannedGenres are never admitted into any fetch result.
var bannedGenres = map[string]struct{}{
	"Hentai":  {},
	"Erotica": {},
}

// IsSafe applies the content-safety policy to a raw record: adult-flagged
// records and records carrying a banned genre are rejected.
func IsSafe(isAdult bool, genres []string) bool {
	if isAdult {
		return false
	}
	for _, g := range genres {
		if _, banned := bannedGenres[g]; banned {
			return false
		}
	}
	return true
}
