package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// ErrInvalidToken is returned when a page token cannot be decoded.
var ErrInvalidToken = errors.New("invalid_page_token")

// PageSize is the fixed number of records returned by list endpoints.
const PageSize = 50

type Pagination struct {
	PageToken string `form:"page_token"`
}

// Cursor points at the last record of the previous page. Listings are ordered
// by descending snowflake id, which is also creation order.
type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Apply restricts stmt to the page after token. It fetches one extra row so
// BuildCursorPageInfo can tell whether another page exists.
func Apply(stmt *gorm.DB, table string, token string) (*gorm.DB, error) {
	column := "id"
	if table != "" {
		column = table + ".id"
	}
	if token = strings.TrimSpace(token); token != "" {
		cursor, err := DecodeCursor(token)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if cursor.ID != "" {
			id, err := strconv.ParseInt(cursor.ID, 10, 64)
			if err != nil {
				return nil, ErrInvalidToken
			}
			stmt = stmt.Where(column+" < ?", id)
		}
	}
	return stmt.Order(column + " DESC").Limit(PageSize + 1), nil
}

// BuildCursorPageInfo trims data to limit and returns the trimmed slice with
// its page info.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, *PageInfo) {
	if len(data) == 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		pageInfo.NextPageToken = extractCursor(data[len(data)-1])
	}

	return data, pageInfo
}

// TokenForID encodes the cursor for a record id.
func TokenForID(id string) string {
	token, err := EncodeCursor(Cursor{ID: id})
	if err != nil {
		return ""
	}
	return token
}
