package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

type pageParams struct {
	page  int
	limit int
}

func (p pageParams) offset() int { return (p.page - 1) * p.limit }

// parsePageParams reads page/limit query parameters, falling back to page 1
// and the configured default page size.
func parsePageParams(c *gin.Context, defaultLimit int) pageParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	return pageParams{page: page, limit: limit}
}

// pagedResponse is the envelope every list endpoint returns.
type pagedResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func newPagedResponse(c *gin.Context, count int64, p pageParams, results interface{}) pagedResponse {
	resp := pagedResponse{Count: count, Results: results}
	if int64(p.offset()+p.limit) < count {
		next := pageURL(c, p.page+1)
		resp.Next = &next
	}
	if p.page > 1 {
		prev := pageURL(c, p.page-1)
		resp.Previous = &prev
	}
	return resp
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	abs := url.URL{Scheme: scheme, Host: c.Request.Host, Path: u.Path, RawQuery: u.RawQuery}
	return abs.String()
}
