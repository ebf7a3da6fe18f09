package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/traintrack/internal/core"
)

// LMSClient downloads course report workbooks from the LMS admin API.
type LMSClient struct {
	c          *client
	templateID int
}

var _ core.TheorySource = (*LMSClient)(nil)

// NewLMSClient creates a client for baseURL, e.g.
// https://admin.lms.shlx.vn/v1. templateID selects the report layout.
func NewLMSClient(baseURL string, templateID int, tokens TokenStore, opts Options) (*LMSClient, error) {
	c, err := newClient(ServiceLMS, baseURL, tokens, opts)
	if err != nil {
		return nil, err
	}
	return &LMSClient{c: c, templateID: templateID}, nil
}

// FetchReport returns the raw report workbook for courseID. The LMS takes
// its token as a query parameter on this endpoint.
func (l *LMSClient) FetchReport(ctx context.Context, courseID string) ([]byte, error) {
	tok, err := l.c.token(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("template_id", strconv.Itoa(l.templateID))
	q.Set("token", tok)

	path := "admin/courses/" + url.PathEscape(courseID) + "/report"
	body, err := l.c.get(ctx, l.c.endpoint(path, q), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch lms report %s: %w", courseID, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch lms report %s: empty file", courseID)
	}
	return body, nil
}
