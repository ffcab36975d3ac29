package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/bapconnect/connect-api/internal/domain/entity"
	repo "github.com/bapconnect/connect-api/internal/domain/repository"
	"github.com/bapconnect/connect-api/pkg/helpers"
)

// FindUser loads one user by id. A soft-deleted account is indistinguishable
// from a missing one here; the trashed-inclusive lookup exists only for the
// delete flow.
func (s *Service) FindUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// FindUsersInput carries listing filters plus the cursor round-tripped from
// a previous response.
type FindUsersInput struct {
	Filter  repo.Filter
	Cursor  string
	PerPage int
}

// UsersPage is the listing envelope: both tokens are opaque cursors or nil.
type UsersPage struct {
	Users             []*entity.User
	NextPageToken     *string
	PreviousPageToken *string
}

// FindUsers runs the filtered, cursor-paginated listing. The repository
// hands back paginator URLs; only the cursor value survives past this
// boundary, so a malformed or foreign URL degrades to "no further page".
func (s *Service) FindUsers(ctx context.Context, in FindUsersInput) (*UsersPage, error) {
	perPage := in.PerPage
	if perPage <= 0 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}

	page, err := s.Repo.FindUsers(ctx, in.Filter, in.Cursor, perPage)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return &UsersPage{Users: []*entity.User{}}, nil
	}
	return &UsersPage{
		Users:             page.Items,
		NextPageToken:     helpers.ExtractCursorFromURL(page.NextPageURL),
		PreviousPageToken: helpers.ExtractCursorFromURL(page.PreviousPageURL),
	}, nil
}

// indexUser mirrors the latest profile into Elasticsearch, best effort, only
// ever after the owning transaction committed.
func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"name":       u.FullName(),
		"status":     u.Status,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

// SearchUsers performs a multi_match search on username, email and name.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
