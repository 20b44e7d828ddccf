package service

import (
	"context"
	"sync"
	"time"

	"arcade/internal/models"
	"arcade/internal/relation"
	"arcade/internal/repository"
)

// memList is an ordered in-memory membership list with atomic add/remove.
type memList[T any] struct {
	mu      sync.Mutex
	key     func(T) string
	members map[models.ID][]T
}

func newMemList[T any](key func(T) string) *memList[T] {
	return &memList[T]{key: key, members: make(map[models.ID][]T)}
}

func (l *memList[T]) List(_ context.Context, parent models.ID) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T{}, l.members[parent]...), nil
}

func (l *memList[T]) AddFront(_ context.Context, parent models.ID, member T) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.members[parent] {
		if l.key(m) == l.key(member) {
			return false, nil
		}
	}
	l.members[parent] = append([]T{member}, l.members[parent]...)
	return true, nil
}

func (l *memList[T]) Remove(_ context.Context, parent models.ID, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.members[parent]
	for i, m := range list {
		if l.key(m) == key {
			l.members[parent] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// userRepoStub is an in-memory repository.UserRepository. The optional
// function fields override individual methods.
type userRepoStub struct {
	mu        sync.Mutex
	users     map[models.ID]*models.User
	favorites *memList[models.FavoriteGame]
	deleted   []models.ID

	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, *models.User) error
}

var _ repository.UserRepository = (*userRepoStub)(nil)

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{
		users:     make(map[models.ID]*models.User),
		favorites: newMemList(func(g models.FavoriteGame) string { return g.GameID }),
	}
}

func (s *userRepoStub) add(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = models.NewID()
	}
	s.users[u.ID] = u
	return u
}

func (s *userRepoStub) GetByID(_ context.Context, id models.ID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError(repository.MsgUserNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn != nil {
		return s.getByEmailFn(ctx, email)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *userRepoStub) GetSummaries(_ context.Context, ids []models.ID) (map[models.ID]models.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.ID]models.Author, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	user.CreatedAt = time.Now()
	cp := *user
	s.add(&cp)
	user.ID = cp.ID
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.NewNotFoundError(repository.MsgUserNotFound)
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userRepoStub) Delete(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *userRepoStub) Favorites() relation.Collection[models.FavoriteGame] {
	return s.favorites
}

// postRepoStub keeps posts, likes and comments in memory.
type postRepoStub struct {
	mu       sync.Mutex
	posts    map[models.ID]*models.Post
	order    []models.ID
	likes    *memList[models.ID]
	comments *memList[models.Comment]
}

var (
	_ repository.PostRepository    = (*postRepoStub)(nil)
	_ repository.CommentRepository = (*commentRepoStub)(nil)
)

func newPostRepoStub() *postRepoStub {
	return &postRepoStub{
		posts:    make(map[models.ID]*models.Post),
		likes:    newMemList(models.ID.String),
		comments: newMemList(func(c models.Comment) string { return c.ID.String() }),
	}
}

func (s *postRepoStub) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	post.CreatedAt = time.Now()
	cp := *post
	s.posts[post.ID] = &cp
	s.order = append([]models.ID{post.ID}, s.order...)
	return nil
}

func (s *postRepoStub) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	s.mu.Lock()
	p, ok := s.posts[id]
	s.mu.Unlock()
	if !ok {
		return nil, models.NewNotFoundError(repository.MsgPostNotFound)
	}
	cp := *p
	cp.Likes, _ = s.likes.List(ctx, id)
	cp.Comments, _ = s.comments.List(ctx, id)
	return &cp, nil
}

func (s *postRepoStub) List(ctx context.Context, forum *models.Forum) ([]models.Post, error) {
	s.mu.Lock()
	order := append([]models.ID{}, s.order...)
	s.mu.Unlock()

	out := []models.Post{}
	for _, id := range order {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if forum != nil && p.Forum != *forum {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *postRepoStub) Delete(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return models.NewNotFoundError(repository.MsgPostNotFound)
	}
	delete(s.posts, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *postRepoStub) Likes() relation.Collection[models.ID] {
	return s.likes
}

type commentRepoStub struct {
	posts *postRepoStub
}

func (s *commentRepoStub) Add(ctx context.Context, postID models.ID, comment *models.Comment) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return err
	}
	comment.ID = models.NewID()
	comment.PostID = postID
	comment.CreatedAt = time.Now()
	_, err := s.posts.comments.AddFront(ctx, postID, *comment)
	return err
}

func (s *commentRepoStub) Get(ctx context.Context, postID, commentID models.ID) (*models.Comment, error) {
	list, _ := s.posts.comments.List(ctx, postID)
	for _, c := range list {
		if c.ID == commentID {
			return &c, nil
		}
	}
	return nil, models.NewNotFoundError(repository.MsgCommentNotFound)
}

func (s *commentRepoStub) Remove(ctx context.Context, postID, commentID models.ID) (bool, error) {
	return s.posts.comments.Remove(ctx, postID, commentID.String())
}

func (s *commentRepoStub) List(ctx context.Context, postID models.ID) ([]models.Comment, error) {
	return s.posts.comments.List(ctx, postID)
}

// feedRecorder captures published feed events.
type feedRecorder struct {
	mu     sync.Mutex
	events []models.FeedEvent
}

func (r *feedRecorder) PublishFeed(_ context.Context, event models.FeedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *feedRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type tokenIssuerStub struct {
	issued []models.ID
	err    error
}

func (s *tokenIssuerStub) Issue(userID models.ID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.issued = append(s.issued, userID)
	return "token-" + userID.String(), nil
}

func assertCode(t interface {
	Helper()
	Fatalf(string, ...any)
}, err error, code string) {
	t.Helper()
	if !models.IsCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
