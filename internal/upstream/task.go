package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/traintrack/internal/core"
)

// TaskClient reads the practice roster and course list from the
// task-tracking API.
type TaskClient struct {
	c *client
}

var (
	_ core.PracticeSource = (*TaskClient)(nil)
	_ core.CourseSource   = (*TaskClient)(nil)
)

// NewTaskClient creates a client for baseURL, e.g. https://jira.shlx.vn/v1.
func NewTaskClient(baseURL string, tokens TokenStore, opts Options) (*TaskClient, error) {
	c, err := newClient(ServiceTask, baseURL, tokens, opts)
	if err != nil {
		return nil, err
	}
	return &TaskClient{c: c}, nil
}

type itemsPage struct {
	Items []map[string]any `json:"items"`
}

// FetchPage fetches one page of trainees. Numeric fields may arrive as
// numbers or strings.
func (t *TaskClient) FetchPage(ctx context.Context, courseID string, page int) (core.PracticePage, error) {
	q := url.Values{}
	q.Set("course_id", courseID)
	q.Set("page", strconv.Itoa(page))

	var raw itemsPage
	if err := t.c.getJSON(ctx, t.c.endpoint("trainees", q), &raw); err != nil {
		return core.PracticePage{}, fmt.Errorf("fetch trainees page %d: %w", page, err)
	}

	out := core.PracticePage{Items: make([]core.PracticeRecord, 0, len(raw.Items))}
	for _, item := range raw.Items {
		out.Items = append(out.Items, core.PracticeRecord{
			Code:           core.NormalizeCode(str(item[core.FieldCode])),
			Name:           core.CleanText(str(item[core.FieldName])),
			Category:       core.CleanText(str(item[core.FieldCategory])),
			OutdoorSeconds: core.Normalize(item[core.FieldOutdoorSeconds]),
			OutdoorMeters:  core.Normalize(item[core.FieldOutdoorMeters]),
			NightSeconds:   core.Normalize(item[core.FieldNightSeconds]),
			AutoSeconds:    core.Normalize(item[core.FieldAutoSeconds]),
		})
	}
	return out, nil
}

// ListCourses fetches one page of courses.
func (t *TaskClient) ListCourses(ctx context.Context, page int) ([]core.Course, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	var raw itemsPage
	if err := t.c.getJSON(ctx, t.c.endpoint("courses", q), &raw); err != nil {
		return nil, fmt.Errorf("fetch courses page %d: %w", page, err)
	}

	courses := make([]core.Course, 0, len(raw.Items))
	for _, item := range raw.Items {
		id := str(item["id"])
		if id == "" {
			continue
		}
		courses = append(courses, core.Course{
			ID:       id,
			Code:     first(item, "ma_khoa_hoc", "maKhoaHoc", "code"),
			Name:     first(item, "ten_khoa_hoc", "tenKhoaHoc", "name"),
			Category: first(item, "ma_hang_dao_tao", "maHangDaoTao", "training_level"),
		})
	}
	return courses, nil
}

func first(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := core.CleanText(str(item[k])); s != "" {
			return s
		}
	}
	return ""
}

// str renders a JSON scalar as text. Integral numbers print without a
// fraction so numeric ids survive.
func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
