package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Normalize converts a raw provider payload into a typed entity. It never
// fails for missing or wrong-typed fields: every field falls back to its
// declared default and malformed list elements are dropped individually.
// The only error case is an unknown entity kind.
func Normalize(kind string, raw json.RawMessage) (Entity, error) {
	data := map[string]any{}
	if len(raw) > 0 {
		// A payload that is not a JSON object normalizes like an empty one.
		_ = json.Unmarshal(raw, &data)
	}
	switch kind {
	case KindMovieDetails:
		return normalizeMovieDetails(data), nil
	case KindSeriesDetails:
		return normalizeSeriesDetails(data), nil
	case KindMovieCredits:
		return normalizeMovieCredits(data), nil
	case KindSeriesCredits:
		return normalizeSeriesCredits(data), nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

func normalizeMovieDetails(data map[string]any) MovieDetails {
	return MovieDetails{
		ID:                  asInt64(data, "id"),
		Title:               asString(data, "title"),
		OriginalTitle:       asString(data, "original_title"),
		Overview:            asString(data, "overview"),
		Adult:               asBool(data, "adult"),
		BackdropPath:        asString(data, "backdrop_path"),
		Budget:              asInt64(data, "budget"),
		Genres:              normalizeGenres(data["genres"]),
		Homepage:            asString(data, "homepage"),
		IMDBID:              asString(data, "imdb_id"),
		OriginCountry:       asStringSlice(data["origin_country"]),
		OriginalLanguage:    asString(data, "original_language"),
		Popularity:          asFloat(data, "popularity"),
		PosterPath:          asString(data, "poster_path"),
		ProductionCompanies: normalizeCompanies(data["production_companies"]),
		ProductionCountries: normalizeCountries(data["production_countries"]),
		ReleaseDate:         asString(data, "release_date"),
		Revenue:             asInt64(data, "revenue"),
		Runtime:             asInt(data, "runtime"),
		SpokenLanguages:     normalizeSpokenLanguages(data["spoken_languages"]),
		Status:              asString(data, "status"),
		Tagline:             asString(data, "tagline"),
		VoteAverage:         asFloat(data, "vote_average"),
		VoteCount:           asInt(data, "vote_count"),
	}
}

func normalizeSeriesDetails(data map[string]any) SeriesDetails {
	return SeriesDetails{
		ID:                  asInt64(data, "id"),
		Name:                asString(data, "name"),
		OriginalName:        asString(data, "original_name"),
		Overview:            asString(data, "overview"),
		Adult:               asBool(data, "adult"),
		BackdropPath:        asString(data, "backdrop_path"),
		CreatedBy:           normalizeCreators(data["created_by"]),
		EpisodeRunTime:      asIntSlice(data["episode_run_time"]),
		FirstAirDate:        asString(data, "first_air_date"),
		Genres:              normalizeGenres(data["genres"]),
		Homepage:            asString(data, "homepage"),
		InProduction:        asBool(data, "in_production"),
		Languages:           asStringSlice(data["languages"]),
		LastAirDate:         asString(data, "last_air_date"),
		LastEpisodeToAir:    normalizeEpisodePtr(data["last_episode_to_air"]),
		Networks:            normalizeNetworks(data["networks"]),
		NextEpisodeToAir:    normalizeEpisodePtr(data["next_episode_to_air"]),
		NumberOfEpisodes:    asInt(data, "number_of_episodes"),
		NumberOfSeasons:     asInt(data, "number_of_seasons"),
		OriginCountry:       asStringSlice(data["origin_country"]),
		OriginalLanguage:    asString(data, "original_language"),
		Popularity:          asFloat(data, "popularity"),
		PosterPath:          asString(data, "poster_path"),
		ProductionCompanies: normalizeCompanies(data["production_companies"]),
		ProductionCountries: normalizeCountries(data["production_countries"]),
		Seasons:             normalizeSeasons(data["seasons"]),
		SpokenLanguages:     normalizeSpokenLanguages(data["spoken_languages"]),
		Status:              asString(data, "status"),
		Tagline:             asString(data, "tagline"),
		Type:                asString(data, "type"),
		VoteAverage:         asFloat(data, "vote_average"),
		VoteCount:           asInt(data, "vote_count"),
	}
}

func normalizeMovieCredits(data map[string]any) MovieCredits {
	return MovieCredits{
		ID:   asInt64(data, "id"),
		Cast: normalizeCast(data["cast"]),
		Crew: normalizeCrew(data["crew"]),
	}
}

func normalizeSeriesCredits(data map[string]any) SeriesCredits {
	return SeriesCredits{
		ID:   asInt64(data, "id"),
		Cast: normalizeCast(data["cast"]),
		Crew: normalizeCrew(data["crew"]),
	}
}

func normalizeGenres(v any) []Genre {
	out := []Genre{}
	for _, item := range asMapSlice(v) {
		out = append(out, Genre{
			ID:   asInt64(item, "id"),
			Name: asString(item, "name"),
		})
	}
	return out
}

func normalizeCompanies(v any) []ProductionCompany {
	out := []ProductionCompany{}
	for _, item := range asMapSlice(v) {
		out = append(out, ProductionCompany{
			ID:            asInt64(item, "id"),
			Name:          asString(item, "name"),
			LogoPath:      asString(item, "logo_path"),
			OriginCountry: asString(item, "origin_country"),
		})
	}
	return out
}

func normalizeCountries(v any) []ProductionCountry {
	out := []ProductionCountry{}
	for _, item := range asMapSlice(v) {
		out = append(out, ProductionCountry{
			Code: asString(item, "iso_3166_1"),
			Name: asString(item, "name"),
		})
	}
	return out
}

func normalizeSpokenLanguages(v any) []SpokenLanguage {
	out := []SpokenLanguage{}
	for _, item := range asMapSlice(v) {
		out = append(out, SpokenLanguage{
			EnglishName: asString(item, "english_name"),
			Code:        asString(item, "iso_639_1"),
			Name:        asString(item, "name"),
		})
	}
	return out
}

func normalizeNetworks(v any) []Network {
	out := []Network{}
	for _, item := range asMapSlice(v) {
		out = append(out, Network{
			ID:            asInt64(item, "id"),
			Name:          asString(item, "name"),
			LogoPath:      asString(item, "logo_path"),
			OriginCountry: asString(item, "origin_country"),
		})
	}
	return out
}

func normalizeSeasons(v any) []Season {
	out := []Season{}
	for _, item := range asMapSlice(v) {
		out = append(out, Season{
			ID:           asInt64(item, "id"),
			Name:         asString(item, "name"),
			SeasonNumber: asInt(item, "season_number"),
			EpisodeCount: asInt(item, "episode_count"),
			AirDate:      asString(item, "air_date"),
			Overview:     asString(item, "overview"),
			PosterPath:   asString(item, "poster_path"),
			VoteAverage:  asFloat(item, "vote_average"),
		})
	}
	return out
}

func normalizeCreators(v any) []Creator {
	out := []Creator{}
	for _, item := range asMapSlice(v) {
		out = append(out, Creator{
			ID:           asInt64(item, "id"),
			Name:         asString(item, "name"),
			CreditID:     asString(item, "credit_id"),
			OriginalName: asString(item, "original_name"),
			ProfilePath:  asString(item, "profile_path"),
		})
	}
	return out
}

func normalizeEpisode(item map[string]any) Episode {
	return Episode{
		ID:            asInt64(item, "id"),
		Name:          asString(item, "name"),
		Overview:      asString(item, "overview"),
		AirDate:       asString(item, "air_date"),
		EpisodeNumber: asInt(item, "episode_number"),
		SeasonNumber:  asInt(item, "season_number"),
		VoteAverage:   asFloat(item, "vote_average"),
		VoteCount:     asInt(item, "vote_count"),
		Runtime:       asInt(item, "runtime"),
		StillPath:     asString(item, "still_path"),
	}
}

func normalizeEpisodePtr(v any) *Episode {
	item, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	ep := normalizeEpisode(item)
	return &ep
}

func normalizeCast(v any) []CastMember {
	out := []CastMember{}
	for _, item := range asMapSlice(v) {
		out = append(out, CastMember{
			ID:                 asInt64(item, "id"),
			Name:               asString(item, "name"),
			Character:          asString(item, "character"),
			KnownForDepartment: asString(item, "known_for_department"),
			OriginalName:       asString(item, "original_name"),
			Popularity:         asFloat(item, "popularity"),
			ProfilePath:        asString(item, "profile_path"),
			CreditID:           asString(item, "credit_id"),
			Order:              asInt(item, "order"),
		})
	}
	return out
}

func normalizeCrew(v any) []CrewMember {
	out := []CrewMember{}
	for _, item := range asMapSlice(v) {
		out = append(out, CrewMember{
			ID:                 asInt64(item, "id"),
			Name:               asString(item, "name"),
			Job:                asString(item, "job"),
			Department:         asString(item, "department"),
			KnownForDepartment: asString(item, "known_for_department"),
			OriginalName:       asString(item, "original_name"),
			Popularity:         asFloat(item, "popularity"),
			ProfilePath:        asString(item, "profile_path"),
			CreditID:           asString(item, "credit_id"),
		})
	}
	return out
}

// Field extraction helpers. Providers (and especially Xtream panels) are
// sloppy about numeric types, so numbers are accepted as JSON numbers or as
// numeric strings.

func asString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func asBool(m map[string]any, key string) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}

func asFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func asInt64(m map[string]any, key string) int64 {
	return int64(asFloat(m, key))
}

func asInt(m map[string]any, key string) int {
	return int(asFloat(m, key))
}

func asMapSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asIntSlice(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return []int{}
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
