package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Entity kinds understood by the normalization pipeline. The kind string
// doubles as the cache key prefix, e.g. "movie_details_603".
const (
	KindMovieDetails  = "movie_details"
	KindSeriesDetails = "series_details"
	KindMovieCredits  = "movie_credits"
	KindSeriesCredits = "series_credits"
)

// Entity is a normalized, typed metadata object. Implementations are plain
// value types; once constructed they are never mutated by the pipeline.
type Entity interface {
	EntityKind() string
	// DisplayTitle is the primary title used for language detection.
	DisplayTitle() string
	// PlotOverview is the text that enrichment may translate. Empty for
	// entity kinds that carry no plot (credits).
	PlotOverview() string
	// LanguageHint is the provider-reported original language, if any.
	LanguageHint() string
	// PosterImagePath is the provider-relative poster path, empty for
	// entity kinds without artwork (credits).
	PosterImagePath() string
}

// EnrichedEntity is what consumers receive: the normalized entity plus the
// display-ready plot text resolved by the enrichment pipeline.
type EnrichedEntity struct {
	Kind              string `json:"kind"`
	Entity            Entity `json:"entity"`
	DisplayPlot       string `json:"displayPlot"`
	PlotWasTranslated bool   `json:"plotWasTranslated"`
	PosterURL         string `json:"posterUrl,omitempty"`
}

// Genre is a single content genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany is a studio or production company credit.
type ProductionCompany struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

// ProductionCountry is an ISO 3166-1 country a title was produced in.
type ProductionCountry struct {
	Code string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// SpokenLanguage is an ISO 639-1 language spoken in a title.
type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	Code        string `json:"iso_639_1"`
	Name        string `json:"name"`
}

// Network is a broadcast network for series.
type Network struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path"`
	OriginCountry string `json:"origin_country"`
}

// Season summarizes one season of a series.
type Season struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	SeasonNumber int     `json:"season_number"`
	EpisodeCount int     `json:"episode_count"`
	AirDate      string  `json:"air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
}

// Episode is a single episode of a series.
type Episode struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Runtime       int     `json:"runtime"`
	StillPath     string  `json:"still_path"`
}

// Creator is a series creator credit.
type Creator struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CreditID     string `json:"credit_id"`
	OriginalName string `json:"original_name"`
	ProfilePath  string `json:"profile_path"`
}

// CastMember is an acting credit. Order is the billing order.
type CastMember struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Character          string  `json:"character"`
	KnownForDepartment string  `json:"known_for_department"`
	OriginalName       string  `json:"original_name"`
	Popularity         float64 `json:"popularity"`
	ProfilePath        string  `json:"profile_path"`
	CreditID           string  `json:"credit_id"`
	Order              int     `json:"order"`
}

// CrewMember is a non-acting credit (director, writer, producer, ...).
type CrewMember struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Job                string  `json:"job"`
	Department         string  `json:"department"`
	KnownForDepartment string  `json:"known_for_department"`
	OriginalName       string  `json:"original_name"`
	Popularity         float64 `json:"popularity"`
	ProfilePath        string  `json:"profile_path"`
	CreditID           string  `json:"credit_id"`
}

// MovieDetails is the normalized detail record for a movie.
type MovieDetails struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Adult               bool                `json:"adult"`
	BackdropPath        string              `json:"backdrop_path"`
	Budget              int64               `json:"budget"`
	Genres              []Genre             `json:"genres"`
	Homepage            string              `json:"homepage"`
	IMDBID              string              `json:"imdb_id"`
	OriginCountry       []string            `json:"origin_country"`
	OriginalLanguage    string              `json:"original_language"`
	Popularity          float64             `json:"popularity"`
	PosterPath          string              `json:"poster_path"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	ReleaseDate         string              `json:"release_date"`
	Revenue             int64               `json:"revenue"`
	Runtime             int                 `json:"runtime"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
}

func (m MovieDetails) EntityKind() string   { return KindMovieDetails }
func (m MovieDetails) DisplayTitle() string    { return m.Title }
func (m MovieDetails) PlotOverview() string    { return m.Overview }
func (m MovieDetails) LanguageHint() string    { return m.OriginalLanguage }
func (m MovieDetails) PosterImagePath() string { return m.PosterPath }

// ReleaseYear extracts the year from the release date, 0 when unknown.
func (m MovieDetails) ReleaseYear() int { return yearOf(m.ReleaseDate) }

// RuntimeString formats the runtime as "2h 0m". A zero runtime formats as
// "0h 0m" so the value is always defined for display code.
func (m MovieDetails) RuntimeString() string { return formatRuntime(m.Runtime) }

// GenresString joins genre names with commas for display.
func (m MovieDetails) GenresString() string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// CompaniesString joins production company names with commas.
func (m MovieDetails) CompaniesString() string {
	names := make([]string, 0, len(m.ProductionCompanies))
	for _, c := range m.ProductionCompanies {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// SeriesDetails is the normalized detail record for a series.
type SeriesDetails struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	OriginalName        string              `json:"original_name"`
	Overview            string              `json:"overview"`
	Adult               bool                `json:"adult"`
	BackdropPath        string              `json:"backdrop_path"`
	CreatedBy           []Creator           `json:"created_by"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	FirstAirDate        string              `json:"first_air_date"`
	Genres              []Genre             `json:"genres"`
	Homepage            string              `json:"homepage"`
	InProduction        bool                `json:"in_production"`
	Languages           []string            `json:"languages"`
	LastAirDate         string              `json:"last_air_date"`
	LastEpisodeToAir    *Episode            `json:"last_episode_to_air,omitempty"`
	Networks            []Network           `json:"networks"`
	NextEpisodeToAir    *Episode            `json:"next_episode_to_air,omitempty"`
	NumberOfEpisodes    int                 `json:"number_of_episodes"`
	NumberOfSeasons     int                 `json:"number_of_seasons"`
	OriginCountry       []string            `json:"origin_country"`
	OriginalLanguage    string              `json:"original_language"`
	Popularity          float64             `json:"popularity"`
	PosterPath          string              `json:"poster_path"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Seasons             []Season            `json:"seasons"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	Type                string              `json:"type"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
}

func (s SeriesDetails) EntityKind() string   { return KindSeriesDetails }
func (s SeriesDetails) DisplayTitle() string    { return s.Name }
func (s SeriesDetails) PlotOverview() string    { return s.Overview }
func (s SeriesDetails) LanguageHint() string    { return s.OriginalLanguage }
func (s SeriesDetails) PosterImagePath() string { return s.PosterPath }

// FirstAirYear extracts the year from the first air date, 0 when unknown.
func (s SeriesDetails) FirstAirYear() int { return yearOf(s.FirstAirDate) }

// AverageEpisodeRuntime returns the mean episode runtime in minutes, 0 when
// the provider reported none.
func (s SeriesDetails) AverageEpisodeRuntime() int {
	if len(s.EpisodeRunTime) == 0 {
		return 0
	}
	total := 0
	for _, r := range s.EpisodeRunTime {
		total += r
	}
	return total / len(s.EpisodeRunTime)
}

// GenresString joins genre names with commas for display.
func (s SeriesDetails) GenresString() string {
	names := make([]string, 0, len(s.Genres))
	for _, g := range s.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// NetworksString joins network names with commas.
func (s SeriesDetails) NetworksString() string {
	names := make([]string, 0, len(s.Networks))
	for _, n := range s.Networks {
		names = append(names, n.Name)
	}
	return strings.Join(names, ", ")
}

// CreatorsString joins creator names with commas.
func (s SeriesDetails) CreatorsString() string {
	names := make([]string, 0, len(s.CreatedBy))
	for _, c := range s.CreatedBy {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// IsCurrentlyAiring reports whether the series is still producing episodes.
func (s SeriesDetails) IsCurrentlyAiring() bool {
	status := strings.ToLower(s.Status)
	return s.InProduction && (status == "returning series" || status == "in production")
}

// MovieCredits is the normalized cast and crew list for a movie.
type MovieCredits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

func (c MovieCredits) EntityKind() string   { return KindMovieCredits }
func (c MovieCredits) DisplayTitle() string    { return "" }
func (c MovieCredits) PlotOverview() string    { return "" }
func (c MovieCredits) LanguageHint() string    { return "" }
func (c MovieCredits) PosterImagePath() string { return "" }

// MainCast returns up to limit cast members sorted by billing order.
func (c MovieCredits) MainCast(limit int) []CastMember { return mainCast(c.Cast, limit) }

// Directors returns crew members credited as director.
func (c MovieCredits) Directors() []CrewMember { return crewByJob(c.Crew, "director") }

// Writers returns crew members with writing credits.
func (c MovieCredits) Writers() []CrewMember { return writingCrew(c.Crew) }

// Producers returns crew members with producing credits.
func (c MovieCredits) Producers() []CrewMember {
	out := []CrewMember{}
	for _, m := range c.Crew {
		if strings.Contains(strings.ToLower(m.Job), "producer") {
			out = append(out, m)
		}
	}
	return out
}

// SeriesCredits is the normalized cast and crew list for a series.
type SeriesCredits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

func (c SeriesCredits) EntityKind() string   { return KindSeriesCredits }
func (c SeriesCredits) DisplayTitle() string    { return "" }
func (c SeriesCredits) PlotOverview() string    { return "" }
func (c SeriesCredits) LanguageHint() string    { return "" }
func (c SeriesCredits) PosterImagePath() string { return "" }

// MainCast returns up to limit cast members sorted by billing order.
func (c SeriesCredits) MainCast(limit int) []CastMember { return mainCast(c.Cast, limit) }

// Directors returns crew members credited as director.
func (c SeriesCredits) Directors() []CrewMember { return crewByJob(c.Crew, "director") }

// Writers returns crew members with writing credits.
func (c SeriesCredits) Writers() []CrewMember { return writingCrew(c.Crew) }

// CacheKey builds the persistent cache key for an entity, e.g.
// "movie_details_603". Subresources append a further segment.
func CacheKey(kind string, id int64, subresource ...string) string {
	key := fmt.Sprintf("%s_%d", kind, id)
	if len(subresource) > 0 {
		key += "_" + strings.Join(subresource, "_")
	}
	return key
}

// ValidKind reports whether kind names a normalizable entity kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindMovieDetails, KindSeriesDetails, KindMovieCredits, KindSeriesCredits:
		return true
	}
	return false
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func formatRuntime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func mainCast(cast []CastMember, limit int) []CastMember {
	out := make([]CastMember, len(cast))
	copy(out, cast)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func crewByJob(crew []CrewMember, job string) []CrewMember {
	out := []CrewMember{}
	for _, m := range crew {
		if strings.ToLower(m.Job) == job {
			out = append(out, m)
		}
	}
	return out
}

func writingCrew(crew []CrewMember) []CrewMember {
	out := []CrewMember{}
	for _, m := range crew {
		job := strings.ToLower(m.Job)
		if strings.Contains(job, "writer") || strings.Contains(job, "screenplay") {
			out = append(out, m)
		}
	}
	return out
}
