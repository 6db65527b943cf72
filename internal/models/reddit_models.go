package models

import "time"

type RedditPost struct {
	PostID    string
	Title     string
	Body      string
	Author    string
	Subreddit string
	Permalink string
	CreatedAt time.Time
}

// RedditListing mirrors the subset of Reddit's search listing the
// retrieval source consumes.
type RedditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Author     string  `json:"author"`
				Subreddit  string  `json:"subreddit"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
