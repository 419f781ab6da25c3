package signal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the record variant a Source produces
type Kind string

const (
	KindNews         Kind = "news"
	KindForum        Kind = "forum"
	KindProfessional Kind = "professional"
	KindQuote        Kind = "quote"
)

// Meta is the provenance every record carries
type Meta struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"` // 0-1
	Verified   bool    `json:"verified"`
}

// Signal is a record returned by an external source
type Signal interface {
	Kind() Kind
	At() time.Time
	Meta() Meta
}

// NewsArticle is a news search hit
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Outlet      string    `json:"outlet"`
	Provenance  Meta      `json:"provenance"`
}

func (n NewsArticle) Kind() Kind    { return KindNews }
func (n NewsArticle) At() time.Time { return n.PublishedAt }
func (n NewsArticle) Meta() Meta    { return n.Provenance }

// Text returns title and description joined for scoring
func (n NewsArticle) Text() string { return n.Title + " " + n.Description }

// ForumPost is a discussion-board post (Reddit-like)
type ForumPost struct {
	ID          string    `json:"id"`
	Community   string    `json:"community"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
	Text        string    `json:"text"`
	Provenance  Meta      `json:"provenance"`
}

func (p ForumPost) Kind() Kind    { return KindForum }
func (p ForumPost) At() time.Time { return p.CreatedAt }
func (p ForumPost) Meta() Meta    { return p.Provenance }

// ProfessionalPost is a post, update or mention on a professional network
type ProfessionalPost struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Category   string    `json:"category"` // post, update, mention
	Text       string    `json:"text"`
	Likes      int       `json:"likes"`
	Comments   int       `json:"comments"`
	Shares     int       `json:"shares"`
	PostedAt   time.Time `json:"posted_at"`
	Provenance Meta      `json:"provenance"`
}

func (p ProfessionalPost) Kind() Kind    { return KindProfessional }
func (p ProfessionalPost) At() time.Time { return p.PostedAt }
func (p ProfessionalPost) Meta() Meta    { return p.Provenance }

// Engagement is the total interaction count
func (p ProfessionalPost) Engagement() int { return p.Likes + p.Comments + p.Shares }

// PriceQuote is one daily bar of a financial quote series
type PriceQuote struct {
	Symbol     string          `json:"symbol"`
	Day        time.Time       `json:"day"`
	Open       decimal.Decimal `json:"open"`
	Close      decimal.Decimal `json:"close"`
	Volume     int64           `json:"volume"`
	Provenance Meta            `json:"provenance"`
}

func (q PriceQuote) Kind() Kind    { return KindQuote }
func (q PriceQuote) At() time.Time { return q.Day }
func (q PriceQuote) Meta() Meta    { return q.Provenance }

// Return is the close-over-open change of the bar in percent
func (q PriceQuote) Return() decimal.Decimal {
	if q.Open.IsZero() {
		return decimal.Zero
	}
	return q.Close.Sub(q.Open).Div(q.Open).Mul(decimal.NewFromInt(100))
}
