package anilist

import "encoding/json"

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type pageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
	CurrentPage int  `json:"currentPage"`
}

type rawMedia struct {
	ID         int    `json:"id"`
	IsAdult    bool   `json:"isAdult"`
	Type       string `json:"type"`
	SeasonYear *int   `json:"seasonYear"`
	StartDate  *struct {
		Year *int `json:"year"`
	} `json:"startDate"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Genres     []string `json:"genres"`
	CoverImage *struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	Description       string `json:"description"`
	NextAiringEpisode *struct {
		Episode  int   `json:"episode"`
		AiringAt int64 `json:"airingAt"`
	} `json:"nextAiringEpisode"`
}

type mediaPageData struct {
	Page struct {
		PageInfo pageInfo   `json:"pageInfo"`
		Media    []rawMedia `json:"media"`
	} `json:"Page"`
}

type rawAiring struct {
	ID       int       `json:"id"`
	AiringAt int64     `json:"airingAt"`
	Episode  int       `json:"episode"`
	Media    *rawMedia `json:"media"`
}

type airingData struct {
	Page struct {
		PageInfo        pageInfo    `json:"pageInfo"`
		AiringSchedules []rawAiring `json:"airingSchedules"`
	} `json:"Page"`
}

type mediaByIDData struct {
	Media *rawMedia `json:"Media"`
}
