package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	userapp "github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/internal/domain/entity"
	"github.com/bapconnect/connect-api/internal/domain/repository"
	"github.com/bapconnect/connect-api/internal/interface/middleware"
	"github.com/bapconnect/connect-api/pkg/response"
	"github.com/bapconnect/connect-api/pkg/validation"
)

const (
	birthdayLayout = "2006-01-02"
	maxAvatarBytes = 10 << 20 // 10 MB
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	FirstName string  `json:"first_name" binding:"required,max=100"`
	LastName  string  `json:"last_name" binding:"required,max=100"`
	Email     string  `json:"email" binding:"required,email,max=255"`
	Gender    string  `json:"gender" binding:"required,oneof=male female other"`
	Username  string  `json:"username" binding:"required,max=50"`
	Birthday  *string `json:"birthday" binding:"omitempty,datetime=2006-01-02"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	Province  string  `json:"province" binding:"omitempty,max=100"`
	District  string  `json:"district" binding:"omitempty,max=100"`
	Ward      string  `json:"ward" binding:"omitempty,max=100"`
	Address   string  `json:"address" binding:"omitempty,max=255"`
}

type verifyRequest struct {
	Token    string `json:"token" binding:"required,max=512"`
	Password string `json:"password" binding:"required,pwd,max=50"`
}

// userView renders the public shape of a user record. The split birthday
// columns are joined back into one ISO date.
func (h *UserHandler) userView(u *entity.User) gin.H {
	var birthday *string
	if u.BirthdayDay != nil && u.BirthdayMonth != nil && u.BirthdayYear != nil {
		b := fmt.Sprintf("%04d-%02d-%02d", *u.BirthdayYear, *u.BirthdayMonth, *u.BirthdayDay)
		birthday = &b
	}
	var avatar *string
	if url := h.Svc.AvatarURL(u); url != "" {
		avatar = &url
	}
	return gin.H{
		"id":                u.ID,
		"avatar":            avatar,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"birthday":          birthday,
		"province":          u.Province,
		"district":          u.District,
		"ward":              u.Ward,
		"address":           u.Address,
		"gender":            u.Gender,
		"phone":             u.Phone,
		"username":          u.Username,
		"email":             u.Email,
		"status":            u.Status,
		"email_verified_at": u.EmailVerifiedAt,
		"created_at":        u.CreatedAt,
		"updated_at":        u.UpdatedAt,
	}
}

// fail translates a use-case error into the response envelope. Clients see
// only the taxonomy sentinel's text; the wrapped cause stays in the log.
func (h *UserHandler) fail(c *gin.Context, err error) {
	status := userapp.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	response.Error[any](c, status, userapp.PublicMessage(err), nil)
}

// Register creates an unverified account and enqueues the verification email.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	in := userapp.RegisterInput{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Province:  req.Province,
		District:  req.District,
		Ward:      req.Ward,
		Address:   req.Address,
		Phone:     req.Phone,
	}
	if req.Birthday != nil {
		b, err := time.Parse(birthdayLayout, *req.Birthday)
		if err != nil || b.After(time.Now()) {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must be a valid date not in the future"})
			return
		}
		d, m, y := b.Day(), int(b.Month()), b.Year()
		in.BirthdayDay, in.BirthdayMonth, in.BirthdayYear = &d, &m, &y
	}

	u, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.userView(u), "user registered", gin.H{
		"verify_token_expires_at": u.VerifyTokenExpiration,
	})
}

// Verify activates an account: it checks the emailed token and sets the
// initial password.
func (h *UserHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.Verify(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{}, "user has been verified", nil)
}

// FindUsers lists users with optional filters and cursor pagination.
func (h *UserHandler) FindUsers(c *gin.Context) {
	in := userapp.FindUsersInput{
		Cursor: c.Query("cursor"),
		Filter: repository.Filter{
			FirstName: c.Query("first_name"),
			LastName:  c.Query("last_name"),
			Username:  c.Query("username"),
			Email:     c.Query("email"),
			Gender:    c.Query("gender"),
		},
	}
	if v := c.Query("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"per_page": "must be a positive integer"})
			return
		}
		in.PerPage = n
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{
		{"birthday_from", &in.Filter.BirthdayFrom},
		{"birthday_to", &in.Filter.BirthdayTo},
	} {
		if v := c.Query(q.name); v != "" {
			t, err := time.Parse(birthdayLayout, v)
			if err != nil {
				response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{q.name: "must match date format: " + birthdayLayout})
				return
			}
			*q.dst = &t
		}
	}

	page, err := h.Svc.FindUsers(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}

	views := make([]gin.H, 0, len(page.Users))
	for _, u := range page.Users {
		views = append(views, h.userView(u))
	}
	response.Success(c, http.StatusOK, views, "users", gin.H{
		"next_page_token":     page.NextPageToken,
		"previous_page_token": page.PreviousPageToken,
	})
}

// FindByID returns one user.
func (h *UserHandler) FindByID(c *gin.Context) {
	u, err := h.Svc.FindUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.userView(u), "user", nil)
}

// UpdateProfile applies a sparse change-set to the authenticated user.
// Absent JSON keys leave columns untouched; explicit nulls clear them.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	var in userapp.UpdateProfileInput
	stringFields := map[string]*userapp.Optional[string]{
		"username":   &in.Username,
		"first_name": &in.FirstName,
		"last_name":  &in.LastName,
		"gender":     &in.Gender,
		"province":   &in.Province,
		"district":   &in.District,
		"ward":       &in.Ward,
		"address":    &in.Address,
		"phone":      &in.Phone,
	}
	for key, dst := range stringFields {
		if err := optField(raw, key, dst); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{key: "must be a string or null"})
			return
		}
	}
	if g, ok := in.Gender.Get(); ok && g != entity.GenderMale && g != entity.GenderFemale && g != entity.GenderOther {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"gender": "must be one of: male, female, other"})
		return
	}

	// Birthday travels as one ISO date and maps to the three split columns
	// together.
	if b, present := raw["birthday"]; present {
		if string(b) == "null" {
			in.BirthdayDay = userapp.Null[int]()
			in.BirthdayMonth = userapp.Null[int]()
			in.BirthdayYear = userapp.Null[int]()
		} else {
			var s string
			if err := json.Unmarshal(b, &s); err != nil {
				response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must be a date string or null"})
				return
			}
			t, err := time.Parse(birthdayLayout, s)
			if err != nil || t.After(time.Now()) {
				response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must be a valid date not in the future"})
				return
			}
			in.BirthdayDay = userapp.Some(t.Day())
			in.BirthdayMonth = userapp.Some(int(t.Month()))
			in.BirthdayYear = userapp.Some(t.Year())
		}
	}

	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.userView(u), "update user successfully", nil)
}

// UpdateAvatar accepts a multipart image upload and stores it as the
// authenticated user's avatar.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)

	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "is required"})
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "must be at most 10MB"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "must be an image"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "could not read upload"})
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UpdateAvatar(c.Request.Context(), uid, f, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar": url}, "avatar updated", nil)
}

// Delete soft-deletes the authenticated user and retires their access token.
func (h *UserHandler) Delete(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	token := c.GetString(middleware.CtxTokenKey)

	if err := h.Svc.DeleteUser(c.Request.Context(), uid, token); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{}, "delete user was successful", nil)
}

// Search queries the search index for users by name, username or email.
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))

	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hits": hits}, "search results", nil)
}

func isImageContentType(ct string) bool {
	switch ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// optField reads one sparse JSON field: absent key leaves the Optional as
// absent, a JSON null marks it for clearing, anything else must decode as T.
func optField[T any](raw map[string]json.RawMessage, key string, dst *userapp.Optional[T]) error {
	b, ok := raw[key]
	if !ok {
		return nil
	}
	if string(b) == "null" {
		*dst = userapp.Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*dst = userapp.Some(v)
	return nil
}
