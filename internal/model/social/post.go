package social

import "time"

// Metrics mirrors the public engagement counters of a post.
type Metrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	ImpressionCount int `json:"impression_count,omitempty"`
}

// Post is a single social-media record returned by a search provider.
type Post struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	AuthorUsername string    `json:"author_username"`
	AuthorID       string    `json:"author_id"`
	CreatedAt      time.Time `json:"created_at"`
	Metrics        Metrics   `json:"public_metrics"`
	URL            string    `json:"url,omitempty"`
}
