package models

import (
	"encoding/json"
	"testing"
)

func TestNormalizeMovieDetails(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 123,
		"title": "Test Movie",
		"runtime": 120,
		"poster_path": "/abc.jpg",
		"genres": [{"id": 1, "name": "Action"}]
	}`)

	entity, err := Normalize(KindMovieDetails, raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	movie, ok := entity.(MovieDetails)
	if !ok {
		t.Fatalf("expected MovieDetails, got %T", entity)
	}

	if movie.ID != 123 {
		t.Errorf("expected id 123, got %d", movie.ID)
	}
	if movie.Title != "Test Movie" {
		t.Errorf("expected title %q, got %q", "Test Movie", movie.Title)
	}
	if got := movie.RuntimeString(); got != "2h 0m" {
		t.Errorf("expected runtime string %q, got %q", "2h 0m", got)
	}
	if len(movie.Genres) != 1 || movie.Genres[0].Name != "Action" {
		t.Errorf("expected one genre named Action, got %+v", movie.Genres)
	}
	if movie.PosterImagePath() != "/abc.jpg" {
		t.Errorf("unexpected poster path %q", movie.PosterImagePath())
	}
}

func TestNormalizeMinimalPayloads(t *testing.T) {
	// A payload missing every optional field must still normalize to an
	// entity with declared defaults.
	for _, kind := range []string{KindMovieDetails, KindSeriesDetails, KindMovieCredits, KindSeriesCredits} {
		t.Run(kind, func(t *testing.T) {
			entity, err := Normalize(kind, json.RawMessage(`{}`))
			if err != nil {
				t.Fatalf("Normalize(%s, {}) failed: %v", kind, err)
			}
			if entity.EntityKind() != kind {
				t.Errorf("kind mismatch: %q vs %q", entity.EntityKind(), kind)
			}
			if entity.DisplayTitle() != "" || entity.PlotOverview() != "" || entity.LanguageHint() != "" || entity.PosterImagePath() != "" {
				t.Errorf("expected empty defaults, got %+v", entity)
			}
		})
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `{{{`},
		{"json array", `[1,2,3]`},
		{"wrong types", `{"id":"not-a-number","title":42,"runtime":"abc","genres":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity, err := Normalize(KindMovieDetails, json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("Normalize should not fail on malformed payloads: %v", err)
			}
			movie := entity.(MovieDetails)
			if movie.ID != 0 || movie.Title != "" {
				t.Errorf("expected zero defaults, got id=%d title=%q", movie.ID, movie.Title)
			}
			if movie.Genres == nil || len(movie.Genres) != 0 {
				t.Errorf("expected empty genre slice, got %v", movie.Genres)
			}
			if got := movie.RuntimeString(); got != "0h 0m" {
				t.Errorf("expected %q for zero runtime, got %q", "0h 0m", got)
			}
		})
	}
}

func TestNormalizeNumericStrings(t *testing.T) {
	// Xtream-style panels report numbers as strings.
	raw := json.RawMessage(`{"id":"603","runtime":"136","vote_average":"8.7"}`)
	entity, _ := Normalize(KindMovieDetails, raw)
	movie := entity.(MovieDetails)
	if movie.ID != 603 {
		t.Errorf("expected id 603, got %d", movie.ID)
	}
	if movie.Runtime != 136 {
		t.Errorf("expected runtime 136, got %d", movie.Runtime)
	}
	if movie.VoteAverage != 8.7 {
		t.Errorf("expected vote average 8.7, got %v", movie.VoteAverage)
	}
}

func TestNormalizeDropsMalformedListElements(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 5,
		"genres": [{"id":1,"name":"Drama"}, "bogus", 7, {"id":2,"name":"Crime"}]
	}`)
	entity, _ := Normalize(KindMovieDetails, raw)
	movie := entity.(MovieDetails)
	if len(movie.Genres) != 2 {
		t.Fatalf("expected 2 genres after dropping malformed elements, got %d", len(movie.Genres))
	}
	if movie.Genres[0].Name != "Drama" || movie.Genres[1].Name != "Crime" {
		t.Errorf("unexpected genres: %+v", movie.Genres)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	if _, err := Normalize("live_channel", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown entity kind")
	}
}

func TestNormalizeSeriesDetails(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 1399,
		"name": "Test Series",
		"first_air_date": "2011-04-17",
		"episode_run_time": [55, 60],
		"in_production": true,
		"status": "Returning Series",
		"networks": [{"id":49,"name":"HBO","origin_country":"US"}],
		"created_by": [{"id":9813,"name":"David Benioff"}],
		"seasons": [
			{"id":3624,"name":"Season 1","season_number":1,"episode_count":10},
			"garbage"
		],
		"last_episode_to_air": {"id":63056,"name":"Finale","episode_number":6,"season_number":8}
	}`)

	entity, err := Normalize(KindSeriesDetails, raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	series := entity.(SeriesDetails)

	if series.FirstAirYear() != 2011 {
		t.Errorf("expected first air year 2011, got %d", series.FirstAirYear())
	}
	if series.AverageEpisodeRuntime() != 57 {
		t.Errorf("expected average runtime 57, got %d", series.AverageEpisodeRuntime())
	}
	if series.NetworksString() != "HBO" {
		t.Errorf("expected networks %q, got %q", "HBO", series.NetworksString())
	}
	if series.CreatorsString() != "David Benioff" {
		t.Errorf("expected creators %q, got %q", "David Benioff", series.CreatorsString())
	}
	if !series.IsCurrentlyAiring() {
		t.Error("expected series to be currently airing")
	}
	if len(series.Seasons) != 1 {
		t.Fatalf("expected malformed season dropped, got %d seasons", len(series.Seasons))
	}
	if series.LastEpisodeToAir == nil || series.LastEpisodeToAir.Name != "Finale" {
		t.Errorf("unexpected last episode: %+v", series.LastEpisodeToAir)
	}
	if series.NextEpisodeToAir != nil {
		t.Errorf("expected nil next episode, got %+v", series.NextEpisodeToAir)
	}
}

func TestNormalizeCreditsOrdering(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 603,
		"cast": [
			{"id":3,"name":"Third","order":2},
			{"id":1,"name":"First","order":0},
			{"id":2,"name":"Second","order":1}
		],
		"crew": [
			{"id":10,"name":"Jane Doe","job":"Director"},
			{"id":11,"name":"John Roe","job":"Screenplay"},
			{"id":12,"name":"Ann Poe","job":"Executive Producer"}
		]
	}`)

	entity, err := Normalize(KindMovieCredits, raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	credits := entity.(MovieCredits)

	main := credits.MainCast(2)
	if len(main) != 2 || main[0].Name != "First" || main[1].Name != "Second" {
		t.Errorf("unexpected main cast: %+v", main)
	}

	directors := credits.Directors()
	if len(directors) != 1 || directors[0].Name != "Jane Doe" {
		t.Errorf("unexpected directors: %+v", directors)
	}

	writers := credits.Writers()
	if len(writers) != 1 || writers[0].Name != "John Roe" {
		t.Errorf("unexpected writers: %+v", writers)
	}

	producers := credits.Producers()
	if len(producers) != 1 || producers[0].Name != "Ann Poe" {
		t.Errorf("unexpected producers: %+v", producers)
	}
}

func TestDerivedHelpersOnEmptyEntities(t *testing.T) {
	var movie MovieDetails
	if movie.ReleaseYear() != 0 {
		t.Errorf("expected 0 release year, got %d", movie.ReleaseYear())
	}
	if movie.RuntimeString() != "0h 0m" {
		t.Errorf("expected %q, got %q", "0h 0m", movie.RuntimeString())
	}
	if movie.GenresString() != "" {
		t.Errorf("expected empty genres string, got %q", movie.GenresString())
	}

	var series SeriesDetails
	if series.AverageEpisodeRuntime() != 0 {
		t.Errorf("expected 0 average runtime, got %d", series.AverageEpisodeRuntime())
	}

	var credits MovieCredits
	if got := credits.MainCast(10); len(got) != 0 {
		t.Errorf("expected empty main cast, got %+v", got)
	}
}

func TestCacheKey(t *testing.T) {
	if key := CacheKey(KindMovieDetails, 123); key != "movie_details_123" {
		t.Errorf("unexpected key %q", key)
	}
	if key := CacheKey(KindSeriesDetails, 9, "seasons"); key != "series_details_9_seasons" {
		t.Errorf("unexpected key %q", key)
	}
}

func TestYearOfMalformedDates(t *testing.T) {
	tests := map[string]int{
		"":           0,
		"199":        0,
		"abcd-01-01": 0,
		"1999-03-31": 1999,
		"2024":       2024,
	}
	for date, want := range tests {
		if got := yearOf(date); got != want {
			t.Errorf("yearOf(%q) = %d, want %d", date, got, want)
		}
	}
}
