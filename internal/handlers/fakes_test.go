package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"
	"dating-backend/internal/services"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// tokenParser accepts tokens named after a subject. "admin" and "mod" carry
// the matching role.
type tokenParser struct{}

func (tokenParser) ParseToken(token string) (auth.Claims, error) {
	switch token {
	case "":
		return auth.Claims{}, errors.New("empty token")
	case "admin":
		return auth.Claims{Subject: "admin", Roles: auth.NewRoleSet(auth.RoleMember, auth.RoleAdmin)}, nil
	case "mod":
		return auth.Claims{Subject: "mod", Roles: auth.NewRoleSet(auth.RoleMember, auth.RoleModerator)}, nil
	case "expired":
		return auth.Claims{}, errors.New("token expired")
	default:
		return auth.Claims{Subject: token, Roles: auth.NewRoleSet(auth.RoleMember)}, nil
	}
}

type stamper struct{ ids []string }

func (s *stamper) TouchLastActive(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return nil
}

type fakeAuth struct {
	registered services.RegisterInput
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*models.Account, error) {
	if in.Username == "taken" {
		return nil, services.ErrUsernameTaken
	}
	if in.Password == "" {
		return nil, &services.ValidationError{Field: "password", Reason: "is required"}
	}
	f.registered = in
	return &models.Account{
		ID:          "new",
		Username:    in.Username,
		Gender:      in.Gender,
		DateOfBirth: in.DateOfBirth,
		KnownAs:     in.KnownAs,
	}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (*services.LoginResult, error) {
	if username != "lisa" || password != "pa$$w0rd" {
		return nil, services.ErrInvalidCredentials
	}
	return &services.LoginResult{Token: "lisa", ExpiresAt: testNow.Add(time.Hour)}, nil
}

type fakeDiscovery struct {
	got services.DiscoveryParams
}

func (f *fakeDiscovery) Discover(_ context.Context, claims auth.Claims, p services.DiscoveryParams) (*pagination.Page[models.AccountSummary], error) {
	f.got = p
	return &pagination.Page[models.AccountSummary]{
		Items: []models.AccountSummary{{ID: "a"}, {ID: "b"}},
		Meta:  pagination.Meta{CurrentPage: p.Page.PageNumber, ItemsPerPage: p.Page.PageSize, TotalItems: 12, TotalPages: 6},
	}, nil
}

// ownerOnly mirrors the service-side ownership check
func ownerOnly(claims auth.Claims, owner string) error {
	return auth.Authorize(claims, owner)
}

type fakeProfiles struct {
	update    services.ProfileUpdate
	pushToken string
}

func (f *fakeProfiles) Get(_ context.Context, claims auth.Claims, id string) (*models.AccountDetail, error) {
	if id == "missing" {
		return nil, services.ErrNotFound
	}
	return &models.AccountDetail{AccountSummary: models.AccountSummary{ID: id}}, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, claims auth.Claims, id string, u services.ProfileUpdate) error {
	if err := ownerOnly(claims, id); err != nil {
		return err
	}
	f.update = u
	return nil
}

func (f *fakeProfiles) UpdatePushToken(_ context.Context, claims auth.Claims, id, token string) error {
	if err := ownerOnly(claims, id); err != nil {
		return err
	}
	f.pushToken = token
	return nil
}

type fakeLikes struct{}

func (fakeLikes) Like(_ context.Context, claims auth.Claims, likerID, likeeID string) (*models.Like, error) {
	if err := ownerOnly(claims, likerID); err != nil {
		return nil, err
	}
	switch {
	case likerID == likeeID:
		return nil, services.ErrCannotLikeSelf
	case likeeID == "liked":
		return nil, services.ErrDuplicateLike
	case likeeID == "ghost":
		return nil, services.ErrNotFound
	}
	return &models.Like{LikerID: likerID, LikeeID: likeeID, CreatedAt: testNow}, nil
}

type fakeMessages struct {
	container models.MessageContainer
	page      pagination.Params
	deleted   []string
	read      []string
	sent      SendMessageRequest
}

func (f *fakeMessages) Send(_ context.Context, claims auth.Claims, senderID, recipientID, content string) (*models.MessageView, error) {
	if err := ownerOnly(claims, senderID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, &services.ValidationError{Field: "content", Reason: "is required"}
	}
	f.sent = SendMessageRequest{RecipientID: recipientID, Content: content}
	return &models.MessageView{ID: "m1", SenderID: senderID, RecipientID: recipientID, Content: content}, nil
}

func (f *fakeMessages) Get(_ context.Context, claims auth.Claims, ownerID, id string) (*models.MessageView, error) {
	if err := ownerOnly(claims, ownerID); err != nil {
		return nil, err
	}
	if id != "m1" {
		return nil, services.ErrNotFound
	}
	return &models.MessageView{ID: id}, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, claims auth.Claims, ownerID, id string) (*models.Message, error) {
	if err := ownerOnly(claims, ownerID); err != nil {
		return nil, err
	}
	f.read = append(f.read, id)
	return &models.Message{ID: id, IsRead: true}, nil
}

func (f *fakeMessages) Delete(_ context.Context, claims auth.Claims, ownerID, id string) error {
	if err := ownerOnly(claims, ownerID); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessages) Mailbox(_ context.Context, claims auth.Claims, ownerID string, c models.MessageContainer, p pagination.Params) (*pagination.Page[*models.MessageView], error) {
	if err := ownerOnly(claims, ownerID); err != nil {
		return nil, err
	}
	f.container, f.page = c, p
	return &pagination.Page[*models.MessageView]{
		Items: []*models.MessageView{},
		Meta:  pagination.Meta{CurrentPage: p.PageNumber, ItemsPerPage: p.PageSize},
	}, nil
}

func (f *fakeMessages) Thread(_ context.Context, claims auth.Claims, ownerID, otherID string) ([]*models.MessageView, error) {
	if err := ownerOnly(claims, ownerID); err != nil {
		return nil, err
	}
	return []*models.MessageView{{ID: "m1", SenderID: ownerID, RecipientID: otherID}}, nil
}

type fakePhotos struct {
	description string
	contentType string
}

func (f *fakePhotos) RequestUpload(_ context.Context, claims auth.Claims, ownerID, contentType, description string) (*services.UploadResponse, error) {
	if err := ownerOnly(claims, ownerID); err != nil {
		return nil, err
	}
	f.contentType, f.description = contentType, description
	return &services.UploadResponse{
		UploadURL: "https://bucket.example/put",
		ExpiresIn: 300,
		Photo:     &models.Photo{ID: "p1", AccountID: ownerID, IsMain: true},
	}, nil
}

func (f *fakePhotos) Get(_ context.Context, claims auth.Claims, photoID string) (*models.Photo, error) {
	if photoID != "p1" {
		return nil, services.ErrNotFound
	}
	return &models.Photo{ID: photoID}, nil
}

func (f *fakePhotos) SetMain(_ context.Context, claims auth.Claims, ownerID, photoID string) error {
	if err := ownerOnly(claims, ownerID); err != nil {
		return err
	}
	if photoID == "main" {
		return services.ErrAlreadyMain
	}
	return nil
}

func (f *fakePhotos) Delete(_ context.Context, claims auth.Claims, ownerID, photoID string) error {
	if err := ownerOnly(claims, ownerID); err != nil {
		return err
	}
	if photoID == "main" {
		return services.ErrMainPhoto
	}
	if photoID == "broken" {
		return errors.New("connection reset")
	}
	return nil
}

type fakeAdmin struct {
	edited []string
}

func (f *fakeAdmin) UsersWithRoles(context.Context, auth.Claims) ([]*models.AccountRoles, error) {
	return []*models.AccountRoles{{ID: "admin", Username: "admin", Roles: []string{"Admin", "Member"}}}, nil
}

func (f *fakeAdmin) EditRoles(_ context.Context, _ auth.Claims, username string, roleNames []string) ([]string, error) {
	if username == "nobody" {
		return nil, services.ErrNotFound
	}
	for _, n := range roleNames {
		if _, ok := auth.ParseRole(n); !ok {
			return nil, services.ErrUnknownRole
		}
	}
	f.edited = roleNames
	return roleNames, nil
}

func (f *fakeAdmin) ForModeration(context.Context, auth.Claims) ([]*models.PhotoForModeration, error) {
	return []*models.PhotoForModeration{}, nil
}

func (f *fakeAdmin) Approve(_ context.Context, _ auth.Claims, photoID string) error {
	if photoID != "p1" {
		return services.ErrNotFound
	}
	return nil
}

func (f *fakeAdmin) Reject(_ context.Context, _ auth.Claims, photoID string) error {
	if photoID == "main" {
		return services.ErrMainPhoto
	}
	return nil
}

type testAPI struct {
	handler   http.Handler
	auth      *fakeAuth
	discovery *fakeDiscovery
	profiles  *fakeProfiles
	messages  *fakeMessages
	photos    *fakePhotos
	admin     *fakeAdmin
	activity  *stamper
	hub       *services.WSHub
}

func newTestAPI() *testAPI {
	api := &testAPI{
		auth:      &fakeAuth{},
		discovery: &fakeDiscovery{},
		profiles:  &fakeProfiles{},
		messages:  &fakeMessages{},
		photos:    &fakePhotos{},
		admin:     &fakeAdmin{},
		activity:  &stamper{},
		hub:       services.NewWSHub(),
	}
	pages := PageConfig{DefaultPageSize: 10, MaxPageSize: 50}

	authHandler := NewAuthHandler(api.auth)
	authHandler.now = func() time.Time { return testNow }

	api.handler = NewRouter(RouterDeps{
		Auth:      authHandler,
		Users:     NewUserHandler(api.discovery, api.profiles, fakeLikes{}, pages),
		Messages:  NewMessageHandler(api.messages, pages),
		Photos:    NewPhotoHandler(api.photos),
		Admin:     NewAdminHandler(api.admin, api.admin),
		WebSocket: NewWebSocketHandler(api.hub, tokenParser{}, nil),
		Tokens:    tokenParser{},
		Activity:  api.activity,
	})
	return api
}

// do sends a request as token. An empty token sends no Authorization header.
func (api *testAPI) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	return w
}
